package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	ScanStarted   Type = "scan.started"
	ScanCompleted Type = "scan.completed"
	ScanFailed    Type = "scan.failed"
	FilesChanged  Type = "files.changed"
)

// Event represents something that happened in the system.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// String returns the value stored under key in Data, or "" when it is
// missing or not a string.
func (e Event) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// Handler is a function that processes an event.
type Handler func(Event)

// Bus is an in-process event bus backed by a buffered channel. Handlers run
// sequentially on the goroutine that called Start.
type Bus struct {
	ch      chan Event
	mu      sync.RWMutex
	subs    map[Type][]Handler
	all     []Handler
	logger  *slog.Logger
	done    chan struct{}
	stopped bool
	dropped atomic.Int64
}

// NewBus creates a new event bus with the given buffer size.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Bus{
		ch:     make(chan Event, bufSize),
		subs:   make(map[Type][]Handler),
		logger: logger.With("component", "event-bus"),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], h)
}

// SubscribeAll registers a handler that receives every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish queues an event without blocking. It reports false when the event
// was dropped because the bus is stopped or its buffer is full.
func (b *Bus) Publish(e Event) bool {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	stopped := b.stopped
	b.mu.RUnlock()
	if stopped {
		b.dropped.Add(1)
		return false
	}

	select {
	case b.ch <- e:
		return true
	default:
		b.dropped.Add(1)
		b.logger.Warn("event bus full, dropping event", "type", string(e.Type))
		return false
	}
}

// Dropped returns how many events Publish has discarded.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Start begins draining the channel and dispatching events to subscribers.
// Call this in a goroutine. It blocks until Stop is called.
func (b *Bus) Start() {
	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		case <-b.done:
			for {
				select {
				case e := <-b.ch:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

// Stop signals the bus to stop processing events after draining the buffer.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.stopped {
		b.stopped = true
		close(b.done)
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Type])+len(b.all))
	handlers = append(handlers, b.subs[e.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", "type", string(e.Type), "panic", r)
				}
			}()
			h(e)
		}()
	}
}
