package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sydlexius/svgscout/internal/event"
)

// DefaultJobHistory is how many jobs a Service remembers by default.
const DefaultJobHistory = 16

// Indexer stores the images of a completed job so they can be queried later.
type Indexer interface {
	Index(ctx context.Context, jobID string, images []ImageRecord) error
	Drop(ctx context.Context, jobID string) error
}

type job struct {
	Job
	progress *Progress
	result   *Result
}

// Service runs scans as jobs. Each job owns its progress and result, so
// scans of different roots can run at the same time.
type Service struct {
	scanner  *Scanner
	indexer  Indexer
	logger   *slog.Logger
	history  int
	eventBus *event.Bus

	mu    sync.Mutex
	jobs  map[string]*job
	order []string // job ids, oldest first
}

// NewService creates a job service. indexer may be nil. history <= 0 uses
// DefaultJobHistory.
func NewService(sc *Scanner, indexer Indexer, logger *slog.Logger, history int) *Service {
	if history <= 0 {
		history = DefaultJobHistory
	}
	return &Service{
		scanner: sc,
		indexer: indexer,
		logger:  logger.With("component", "scan-jobs"),
		history: history,
		jobs:    make(map[string]*job),
	}
}

// SetEventBus sets the event bus for publishing scan events.
func (s *Service) SetEventBus(bus *event.Bus) {
	s.eventBus = bus
}

// Run validates root and scans it before returning. A ScanFailed error is
// returned together with the failed job snapshot.
func (s *Service) Run(ctx context.Context, root string) (Job, *Result, error) {
	abs, err := s.scanner.Validate(root)
	if err != nil {
		return Job{}, nil, err
	}
	j := s.newJob(ctx, abs)
	res, err := s.execute(ctx, j)
	return s.snapshot(j), res, err
}

// Start validates root and scans it in the background. ctx must outlive
// the caller's request; canceling it aborts the scan.
func (s *Service) Start(ctx context.Context, root string) (Job, error) {
	abs, err := s.scanner.Validate(root)
	if err != nil {
		return Job{}, err
	}
	j := s.newJob(ctx, abs)
	snap := s.snapshot(j)
	go func() {
		_, _ = s.execute(ctx, j)
	}()
	return snap, nil
}

// Job returns a snapshot of the job with the given id.
func (s *Service) Job(id string) (Job, bool) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return Job{}, false
	}
	return s.snapshot(j), true
}

// Latest returns the most recently started job.
func (s *Service) Latest() (Job, bool) {
	s.mu.Lock()
	var j *job
	if n := len(s.order); n > 0 {
		j = s.jobs[s.order[n-1]]
	}
	s.mu.Unlock()
	if j == nil {
		return Job{}, false
	}
	return s.snapshot(j), true
}

// LatestCompleted returns the most recently started job that completed.
func (s *Service) LatestCompleted() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		j := s.jobs[s.order[i]]
		if j.Status == StatusCompleted {
			return s.snapshotLocked(j), true
		}
	}
	return Job{}, false
}

// Result returns the result of a completed job. The returned value is a
// copy of the result header; its slices are shared and must not be
// modified.
func (s *Service) Result(id string) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.result == nil {
		return nil, false
	}
	res := *j.result
	return &res, true
}

// Jobs returns snapshots of every remembered job, newest first.
func (s *Service) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.snapshotLocked(s.jobs[s.order[i]]))
	}
	return out
}

func (s *Service) newJob(ctx context.Context, root string) *job {
	j := &job{
		Job: Job{
			ID:        uuid.New().String(),
			Root:      root,
			Status:    StatusRunning,
			StartedAt: time.Now().UTC(),
		},
		progress: &Progress{},
	}
	j.progress.scanning.Store(true)

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)
	evicted := s.evictLocked()
	s.mu.Unlock()

	for _, id := range evicted {
		s.logger.Debug("evicting scan job", "job_id", id)
		if s.indexer != nil {
			if err := s.indexer.Drop(context.WithoutCancel(ctx), id); err != nil {
				s.logger.Warn("dropping evicted job from catalog", "job_id", id, "error", err)
			}
		}
	}
	return j
}

// evictLocked removes the oldest finished jobs beyond the history limit.
// Running jobs are never evicted.
func (s *Service) evictLocked() []string {
	var evicted []string
	excess := len(s.order) - s.history
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && s.jobs[id].Done() {
			delete(s.jobs, id)
			evicted = append(evicted, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return evicted
}

func (s *Service) execute(ctx context.Context, j *job) (*Result, error) {
	s.publish(event.ScanStarted, j, nil)
	s.logger.Info("scan started", "job_id", j.ID, "root", j.Root)

	res, err := s.scanner.walk(ctx, j.Root, j.progress)
	if err != nil {
		s.finish(j, nil, err, "")
		s.publish(event.ScanFailed, j, map[string]any{"error": err.Error()})
		return nil, err
	}

	var indexErr string
	if s.indexer != nil {
		if err := s.indexer.Index(context.WithoutCancel(ctx), j.ID, res.ImageFiles); err != nil {
			s.logger.Error("indexing scan result", "job_id", j.ID, "error", err)
			indexErr = err.Error()
		}
	}

	s.finish(j, res, nil, indexErr)
	s.publish(event.ScanCompleted, j, map[string]any{
		"files":  len(res.AllFiles),
		"images": len(res.ImageFiles),
	})
	return res, nil
}

func (s *Service) finish(j *job, res *Result, err error, indexErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.IndexError = indexErr
	if err != nil {
		j.Status = StatusFailed
		j.Error = err.Error()
		return
	}
	j.Status = StatusCompleted
	j.result = res
}

func (s *Service) publish(t event.Type, j *job, extra map[string]any) {
	if s.eventBus == nil {
		return
	}
	data := map[string]any{"job_id": j.ID, "root": j.Root}
	for k, v := range extra {
		data[k] = v
	}
	s.eventBus.Publish(event.Event{Type: t, Data: data})
}

func (s *Service) snapshot(j *job) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(j)
}

func (s *Service) snapshotLocked(j *job) Job {
	snap := j.Job
	snap.Progress = j.progress.Snapshot()
	return snap
}
