// Package catalog indexes the image records of completed scans and serves
// searchable, paginated views over them.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sydlexius/svgscout/internal/classify"
	"github.com/sydlexius/svgscout/internal/scanner"
)

// Paging defaults.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Query selects a page of images.
type Query struct {
	Page   int
	Limit  int
	Search string
}

// normalize applies defaults and bounds.
func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	// Keeps (Page-1)*Limit from overflowing into a negative offset.
	if maxPage := math.MaxInt / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}
	q.Search = strings.ToLower(q.Search)
	return q
}

// Pagination describes where a Page sits in the full result.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalFiles int  `json:"totalFiles"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Page is one page of images.
type Page struct {
	Files      []scanner.ImageRecord `json:"files"`
	Pagination Pagination            `json:"pagination"`
}

// EmptyPage is returned for queries made before any scan completed.
func EmptyPage(q Query) Page {
	q = q.normalize()
	return Page{
		Files:      []scanner.ImageRecord{},
		Pagination: paginate(q, 0),
	}
}

// Catalog stores image records per scan job.
type Catalog struct {
	db *sql.DB
}

// New creates a catalog over a migrated database.
func New(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

// Index replaces the stored images of jobID, keeping their order.
func (c *Catalog) Index(ctx context.Context, jobID string, images []scanner.ImageRecord) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("clearing images for job %s: %w", jobID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO images (job_id, seq, name, name_lower, path, size, kind, modified, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, img := range images {
		if _, err := stmt.ExecContext(ctx,
			jobID, i, img.Name, strings.ToLower(img.Name), img.Path, img.Size,
			string(img.Type), img.Modified.UTC().Format(time.RFC3339Nano), img.Content,
		); err != nil {
			return fmt.Errorf("inserting %s: %w", img.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing images for job %s: %w", jobID, err)
	}
	return nil
}

// Drop removes every image stored for jobID.
func (c *Catalog) Drop(ctx context.Context, jobID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM images WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("dropping images for job %s: %w", jobID, err)
	}
	return nil
}

// Query returns one page of jobID's images. Search is a case-insensitive
// substring match on the file name only, never on the directory part of
// the path.
func (c *Catalog) Query(ctx context.Context, jobID string, q Query) (Page, error) {
	q = q.normalize()

	where := `job_id = ?`
	args := []any{jobID}
	if q.Search != "" {
		where += ` AND instr(name_lower, ?) > 0`
		args = append(args, q.Search)
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE `+where, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("counting images: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT name, path, size, kind, modified, content
		FROM images WHERE `+where+`
		ORDER BY seq
		LIMIT ? OFFSET ?`,
		append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return Page{}, fmt.Errorf("querying images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := []scanner.ImageRecord{}
	for rows.Next() {
		var (
			img      scanner.ImageRecord
			kind     string
			modified string
		)
		if err := rows.Scan(&img.Name, &img.Path, &img.Size, &kind, &modified, &img.Content); err != nil {
			return Page{}, fmt.Errorf("scanning image row: %w", err)
		}
		img.Type = classify.Kind(kind)
		img.Modified, _ = time.Parse(time.RFC3339Nano, modified)
		files = append(files, img)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterating images: %w", err)
	}

	return Page{Files: files, Pagination: paginate(q, total)}, nil
}

func paginate(q Query, total int) Pagination {
	pages := (total + q.Limit - 1) / q.Limit
	return Pagination{
		Page:       q.Page,
		Limit:      q.Limit,
		TotalFiles: total,
		TotalPages: pages,
		HasNext:    q.Page < pages,
		HasPrev:    q.Page > 1,
	}
}
