package scanner

import (
	"sync/atomic"
	"time"

	"github.com/sydlexius/svgscout/internal/classify"
)

// Job statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Warning ops.
const (
	OpStat    = "stat"
	OpReadDir = "readdir"
	OpRead    = "read"
	OpLoop    = "loop"
)

// FileRecord describes a regular file visited during a scan.
type FileRecord struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// ImageRecord is a FileRecord that classified as an image.
type ImageRecord struct {
	FileRecord
	Type     classify.Kind `json:"type"`
	Modified time.Time     `json:"modified"`
	Content  string        `json:"content,omitempty"`
}

// Warning records a per-entry failure that did not stop the walk.
type Warning struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

// Result is the outcome of one scan, in discovery order.
type Result struct {
	Root       string        `json:"root"`
	AllFiles   []FileRecord  `json:"allFiles"`
	ImageFiles []ImageRecord `json:"imageFiles"`
	Warnings   []Warning     `json:"warnings"`
}

// Progress holds the live counters of a single scan. Readers take a
// Snapshot; fields are individually consistent but may be mid-update
// relative to each other.
type Progress struct {
	totalDiscovered atomic.Int64
	processed       atomic.Int64
	imagesFound     atomic.Int64
	currentDir      atomic.Pointer[string]
	scanning        atomic.Bool
}

// ProgressSnapshot is a point-in-time copy of Progress.
type ProgressSnapshot struct {
	TotalDiscovered  int64  `json:"totalDiscovered"`
	Processed        int64  `json:"processed"`
	ImagesFound      int64  `json:"imagesFound"`
	CurrentDirectory string `json:"currentDirectory"`
	IsScanning       bool   `json:"isScanning"`
}

// Snapshot copies the current counter values.
func (p *Progress) Snapshot() ProgressSnapshot {
	s := ProgressSnapshot{
		TotalDiscovered: p.totalDiscovered.Load(),
		Processed:       p.processed.Load(),
		ImagesFound:     p.imagesFound.Load(),
		IsScanning:      p.scanning.Load(),
	}
	if dir := p.currentDir.Load(); dir != nil {
		s.CurrentDirectory = *dir
	}
	return s
}

func (p *Progress) enterDir(dir string, entries int) {
	p.currentDir.Store(&dir)
	p.totalDiscovered.Add(int64(entries))
}

// Job is a snapshot of one scan's lifecycle.
type Job struct {
	ID          string           `json:"id"`
	Root        string           `json:"root"`
	Status      string           `json:"status"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Error       string           `json:"error,omitempty"`
	IndexError  string           `json:"indexError,omitempty"`
	Progress    ProgressSnapshot `json:"progress"`
}

// Done reports whether the job has reached a final status.
func (j Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
