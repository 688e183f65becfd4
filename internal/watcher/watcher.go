package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sydlexius/svgscout/internal/event"
)

// RescanFunc starts a new scan of root.
type RescanFunc func(ctx context.Context, root string) error

// Service watches scanned roots for image files being added, changed or
// removed and rescans a root once its changes settle.
type Service struct {
	rescan   RescanFunc
	eventBus *event.Bus
	logger   *slog.Logger
	debounce time.Duration
	exts     map[string]bool

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	roots   map[string]bool
	dirs    map[string]string // watched directory -> root it belongs to
}

// NewService creates a watcher. Files whose extension is in exts are
// relevant; debounce <= 0 uses two seconds.
func NewService(rescan RescanFunc, eventBus *event.Bus, logger *slog.Logger, exts []string, debounce time.Duration) *Service {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[strings.ToLower(e)] = true
	}
	return &Service{
		rescan:   rescan,
		eventBus: eventBus,
		logger:   logger.With("component", "fs-watcher"),
		debounce: debounce,
		exts:     m,
		roots:    make(map[string]bool),
		dirs:     make(map[string]string),
	}
}

// SubscribeScans watches every root that completes a scan.
func (s *Service) SubscribeScans() {
	s.eventBus.Subscribe(event.ScanCompleted, func(e event.Event) {
		if root := e.String("root"); root != "" {
			s.Watch(root)
		}
	})
}

// Watch registers root and its subdirectories. Roots added before Start
// are registered when Start runs. Calling Watch again picks up directories
// created since.
func (s *Service) Watch(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.roots[root] {
		s.logger.Info("watching scanned root", "root", root)
	}
	s.roots[root] = true
	if s.watcher != nil {
		s.addTreeLocked(root, root)
	}
}

// Roots returns the watched roots in sorted order.
func (s *Service) Roots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.roots))
	for r := range s.roots {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Start blocks until ctx is canceled, dispatching filesystem events and
// triggering debounced rescans.
func (s *Service) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("fsnotify unavailable, watcher disabled", "error", err)
		return
	}
	defer w.Close() //nolint:errcheck

	s.mu.Lock()
	s.watcher = w
	for root := range s.roots {
		s.addTreeLocked(root, root)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.watcher = nil
		s.dirs = make(map[string]string)
		s.mu.Unlock()
	}()

	s.logger.Info("filesystem watcher starting", "debounce", s.debounce)

	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("filesystem watcher stopping")
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			root, relevant := s.handleFSEvent(ev)
			if !relevant {
				continue
			}
			pending[root] = true
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(s.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			for root := range pending {
				delete(pending, root)
				s.trigger(ctx, root)
			}
		}
	}
}

func (s *Service) trigger(ctx context.Context, root string) {
	s.logger.Info("changes settled, rescanning", "root", root)
	s.eventBus.Publish(event.Event{
		Type: event.FilesChanged,
		Data: map[string]any{"root": root},
	})
	if err := s.rescan(ctx, root); err != nil {
		s.logger.Error("rescan triggered by fs watcher failed", "root", root, "error", err)
	}
}

// handleFSEvent returns the root an event belongs to and whether it should
// cause a rescan.
func (s *Service) handleFSEvent(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) &&
		!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root, ok := s.dirs[filepath.Dir(ev.Name)]
	if !ok {
		return "", false
	}

	if _, wasDir := s.dirs[ev.Name]; wasDir && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
		s.forgetTreeLocked(ev.Name)
		s.logger.Debug("watched directory removed", "path", ev.Name)
		return root, true
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			s.addTreeLocked(ev.Name, root)
			return root, true
		}
	}

	if s.exts[strings.ToLower(filepath.Ext(ev.Name))] {
		s.logger.Debug("image file changed", "path", ev.Name, "op", ev.Op.String())
		return root, true
	}
	return "", false
}

// addTreeLocked watches dir and every directory below it. Symlinked
// directories are skipped like the scanner skips them.
func (s *Service) addTreeLocked(dir, root string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("skipping unwatchable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if _, ok := s.dirs[path]; ok {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			s.logger.Warn("failed to watch directory", "path", path, "error", err)
			return fs.SkipDir
		}
		s.dirs[path] = root
		return nil
	})
	if err != nil {
		s.logger.Warn("walking directory for watches", "path", dir, "error", err)
	}
}

func (s *Service) forgetTreeLocked(dir string) {
	prefix := dir + string(filepath.Separator)
	for path := range s.dirs {
		if path == dir || strings.HasPrefix(path, prefix) {
			_ = s.watcher.Remove(path)
			delete(s.dirs, path)
		}
	}
}
