package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sydlexius/svgscout/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type rescanRecorder struct {
	mu    sync.Mutex
	roots []string
}

func (r *rescanRecorder) rescan(_ context.Context, root string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots = append(r.roots, root)
	return nil
}

func (r *rescanRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roots)
}

func newTestService(t *testing.T) (*Service, *rescanRecorder, *event.Bus) {
	t.Helper()
	bus := event.NewBus(testLogger(), 64)
	go bus.Start()
	t.Cleanup(bus.Stop)

	rec := &rescanRecorder{}
	svc := NewService(rec.rescan, bus, testLogger(), []string{".svg", ".xml"}, 50*time.Millisecond)
	return svc, rec, bus
}

// startWatching runs the service until the test ends.
func startWatching(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond) // let the watcher register
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("<svg></svg>"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestImageFileTriggersRescan(t *testing.T) {
	root := t.TempDir()
	svc, rec, _ := newTestService(t)
	svc.Watch(root)
	startWatching(t, svc)

	writeFile(t, filepath.Join(root, "icon.svg"))
	time.Sleep(300 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Fatalf("expected 1 rescan, got %d", got)
	}
	if rec.roots[0] != root {
		t.Errorf("rescanned %q, want %q", rec.roots[0], root)
	}
}

func TestBurstOfChangesCoalesces(t *testing.T) {
	root := t.TempDir()
	svc, rec, _ := newTestService(t)
	svc.Watch(root)
	startWatching(t, svc)

	for _, name := range []string{"a.svg", "b.svg", "c.XML", "d.svg", "e.xml"} {
		writeFile(t, filepath.Join(root, name))
	}
	time.Sleep(300 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Errorf("expected 1 coalesced rescan, got %d", got)
	}
}

func TestOtherFilesIgnored(t *testing.T) {
	root := t.TempDir()
	svc, rec, _ := newTestService(t)
	svc.Watch(root)
	startWatching(t, svc)

	writeFile(t, filepath.Join(root, "README.txt"))
	writeFile(t, filepath.Join(root, "photo.png"))
	time.Sleep(300 * time.Millisecond)

	if got := rec.count(); got != 0 {
		t.Errorf("expected 0 rescans, got %d", got)
	}
}

func TestNestedDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "res", "drawable")
	if err := os.MkdirAll(existing, 0o755); err != nil {
		t.Fatal(err)
	}
	svc, rec, _ := newTestService(t)
	svc.Watch(root)
	startWatching(t, svc)

	writeFile(t, filepath.Join(existing, "ic_star.xml"))
	time.Sleep(300 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Fatalf("expected 1 rescan for nested change, got %d", got)
	}

	// a directory created after start is picked up too
	created := filepath.Join(root, "new")
	if err := os.Mkdir(created, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	writeFile(t, filepath.Join(created, "x.svg"))
	time.Sleep(300 * time.Millisecond)

	if got := rec.count(); got != 3 {
		t.Errorf("expected 3 rescans (dir create, file in new dir), got %d", got)
	}
}

func TestRemovedDirectoryTriggersRescan(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "icons")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	svc, rec, _ := newTestService(t)
	svc.Watch(root)
	startWatching(t, svc)

	if err := os.Remove(sub); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Errorf("expected 1 rescan after removal, got %d", got)
	}
}

func TestScanCompletedRegistersRoot(t *testing.T) {
	root := t.TempDir()
	svc, rec, bus := newTestService(t)
	svc.SubscribeScans()
	startWatching(t, svc)

	var changed atomic.Int32
	bus.Subscribe(event.FilesChanged, func(e event.Event) {
		if e.String("root") == root {
			changed.Add(1)
		}
	})

	bus.Publish(event.Event{Type: event.ScanCompleted, Data: map[string]any{"root": root}})
	time.Sleep(100 * time.Millisecond)

	if roots := svc.Roots(); len(roots) != 1 || roots[0] != root {
		t.Fatalf("Roots() = %v, want [%s]", roots, root)
	}

	writeFile(t, filepath.Join(root, "logo.svg"))
	time.Sleep(300 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Errorf("expected 1 rescan, got %d", got)
	}
	if got := changed.Load(); got != 1 {
		t.Errorf("expected 1 files.changed event, got %d", got)
	}
}
