package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/sydlexius/svgscout/internal/classify"
)

// DefaultExtensions are the file extensions read and classified.
var DefaultExtensions = []string{".svg", ".xml"}

// Options controls what a Scanner reads.
type Options struct {
	// Extensions to classify, compared case-insensitively. Empty means
	// DefaultExtensions.
	Extensions []string
	// MaxDepth bounds how many directory levels below the root are
	// entered. Zero means unlimited.
	MaxDepth int
	// IncludeContent stores each image's raw content on its record.
	IncludeContent bool
}

// Validate checks the options for obviously wrong values.
func (o Options) Validate() error {
	if o.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0, got %d", o.MaxDepth)
	}
	for _, ext := range o.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	return nil
}

// Scanner walks a directory tree and collects image files.
type Scanner struct {
	fs     afero.Fs
	opts   Options
	exts   map[string]bool
	logger *slog.Logger
}

// New creates a scanner over fs. Use afero.NewOsFs() for the real
// filesystem.
func New(fs afero.Fs, opts Options, logger *slog.Logger) *Scanner {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[strings.ToLower(e)] = true
	}
	return &Scanner{
		fs:     fs,
		opts:   opts,
		exts:   m,
		logger: logger.With("component", "scanner"),
	}
}

// Validate resolves root to an absolute path and checks that it is an
// existing directory.
func (s *Scanner) Validate(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidPath)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	info, err := s.fs.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		return "", fmt.Errorf("%w: stat %s: %w", ErrInvalidPath, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotADirectory, abs)
	}
	return abs, nil
}

// Scan validates root and walks it, updating progress as it goes. progress
// may be nil.
func (s *Scanner) Scan(ctx context.Context, root string, progress *Progress) (*Result, error) {
	abs, err := s.Validate(root)
	if err != nil {
		return nil, err
	}
	return s.walk(ctx, abs, progress)
}

// frame is one directory on the walk stack with its not-yet-visited entries.
type frame struct {
	path    string
	info    os.FileInfo
	depth   int
	entries []os.FileInfo
	next    int
}

// onStack reports whether dir is the same directory as one already being
// walked, which means following it would loop.
func onStack(stack []*frame, dir os.FileInfo) bool {
	for _, f := range stack {
		if f.info != nil && os.SameFile(f.info, dir) {
			return true
		}
	}
	return false
}

// walk visits root depth first in name order. Entries of a directory are
// handled in order and a subdirectory is fully walked before its next
// sibling, the same order a recursive walk would produce.
func (s *Scanner) walk(ctx context.Context, root string, progress *Progress) (*Result, error) {
	if progress == nil {
		progress = &Progress{}
	}
	progress.scanning.Store(true)
	defer progress.scanning.Store(false)

	res := &Result{
		Root:       root,
		AllFiles:   []FileRecord{},
		ImageFiles: []ImageRecord{},
		Warnings:   []Warning{},
	}

	entries, err := afero.ReadDir(s.fs, root)
	if err != nil {
		s.logger.Error("scan failed", "path", root, "error", err)
		return nil, fmt.Errorf("%w: reading %s: %w", ErrScanFailed, root, err)
	}
	progress.enterDir(root, len(entries))
	rootInfo, _ := s.fs.Stat(root)

	stack := []*frame{{path: root, info: rootInfo, entries: entries}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanFailed, err)
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		info := top.entries[top.next]
		top.next++
		path := filepath.Join(top.path, info.Name())

		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err := s.fs.Stat(path)
			if err != nil {
				s.warn(res, path, OpStat, err)
				continue
			}
			if resolved.IsDir() && onStack(stack, resolved) {
				s.logger.Info("not following symlink loop", "path", path)
				s.warn(res, path, OpLoop, errSymlinkLoop)
				continue
			}
			info = resolved
		}

		if info.IsDir() {
			depth := top.depth + 1
			if s.opts.MaxDepth > 0 && depth > s.opts.MaxDepth {
				continue
			}
			children, err := afero.ReadDir(s.fs, path)
			if err != nil {
				s.warn(res, path, OpReadDir, err)
				continue
			}
			progress.enterDir(path, len(children))
			stack = append(stack, &frame{path: path, info: info, depth: depth, entries: children})
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}
		s.visitFile(res, progress, path, info)
	}

	s.logger.Info("scan finished",
		"root", root,
		"files", len(res.AllFiles),
		"images", len(res.ImageFiles),
		"warnings", len(res.Warnings))
	return res, nil
}

func (s *Scanner) visitFile(res *Result, progress *Progress, path string, info os.FileInfo) {
	rec := FileRecord{Name: info.Name(), Path: path, Size: info.Size()}
	res.AllFiles = append(res.AllFiles, rec)
	progress.processed.Add(1)

	if !s.exts[strings.ToLower(filepath.Ext(info.Name()))] {
		return
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		s.warn(res, path, OpRead, err)
		return
	}
	content := string(data)
	kind := classify.Classify(content)
	if !kind.Valid() {
		return
	}

	img := ImageRecord{
		FileRecord: rec,
		Type:       kind,
		Modified:   info.ModTime().UTC(),
	}
	if s.opts.IncludeContent {
		img.Content = content
	}
	res.ImageFiles = append(res.ImageFiles, img)
	if n := progress.imagesFound.Add(1); n%100 == 0 {
		s.logger.Info("scan progress", "images", n, "dir", filepath.Dir(path))
	}
}

func (s *Scanner) warn(res *Result, path, op string, err error) {
	res.Warnings = append(res.Warnings, Warning{Path: path, Op: op, Error: err.Error()})
	s.logger.Warn("skipping entry", "path", path, "op", op, "error", err)
}
