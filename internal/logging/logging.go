package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration.
type Config struct {
	Level          string `yaml:"level" json:"level"`
	Format         string `yaml:"format" json:"format"`
	FilePath       string `yaml:"file_path" json:"file_path,omitempty"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb" json:"file_max_size_mb,omitempty"`
	FileMaxFiles   int    `yaml:"file_max_files" json:"file_max_files,omitempty"`
	FileMaxAgeDays int    `yaml:"file_max_age_days" json:"file_max_age_days,omitempty"`
}

// DefaultConfig returns text logging at info level without a log file.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "text",
		FileMaxSizeMB:  100,
		FileMaxFiles:   3,
		FileMaxAgeDays: 30,
	}
}

// Validate reports an unknown level or format.
func (c Config) Validate() error {
	if !ValidLevel(c.Level) {
		return fmt.Errorf("invalid log level %q (want debug, info, warn or error)", c.Level)
	}
	if !ValidFormat(c.Format) {
		return fmt.Errorf("invalid log format %q (want text or json)", c.Format)
	}
	if c.FileMaxSizeMB < 0 || c.FileMaxFiles < 0 || c.FileMaxAgeDays < 0 {
		return fmt.Errorf("log file limits must not be negative")
	}
	return nil
}

// String returns a human-readable summary of the config.
func (c Config) String() string {
	s := fmt.Sprintf("level=%s format=%s", c.Level, c.Format)
	if c.FilePath != "" {
		s += fmt.Sprintf(" file=%s max_size=%dMB max_files=%d max_age=%dd",
			c.FilePath, c.FileMaxSizeMB, c.FileMaxFiles, c.FileMaxAgeDays)
	}
	return s
}

// SwappableHandler is a slog.Handler whose inner handler can be replaced
// while loggers derived from it are in use.
type SwappableHandler struct {
	inner *atomic.Pointer[slog.Handler]
	// ops replays WithAttrs/WithGroup calls on a swapped-in handler.
	ops []func(slog.Handler) slog.Handler
}

// NewSwappableHandler creates a SwappableHandler wrapping h.
func NewSwappableHandler(h slog.Handler) *SwappableHandler {
	s := &SwappableHandler{inner: &atomic.Pointer[slog.Handler]{}}
	s.inner.Store(&h)
	return s
}

// Swap replaces the inner handler for this handler and every handler
// derived from it.
func (s *SwappableHandler) Swap(h slog.Handler) {
	s.inner.Store(&h)
}

func (s *SwappableHandler) current() slog.Handler {
	h := *s.inner.Load()
	for _, op := range s.ops {
		h = op(h)
	}
	return h
}

// Enabled delegates to the inner handler.
func (s *SwappableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*s.inner.Load()).Enabled(ctx, level)
}

// Handle delegates to the inner handler.
func (s *SwappableHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

// WithAttrs returns a derived handler that still follows Swap.
func (s *SwappableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup returns a derived handler that still follows Swap.
func (s *SwappableHandler) WithGroup(name string) slog.Handler {
	return s.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (s *SwappableHandler) derive(op func(slog.Handler) slog.Handler) *SwappableHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(s.ops), len(s.ops)+1)
	copy(ops, s.ops)
	return &SwappableHandler{inner: s.inner, ops: append(ops, op)}
}

// Manager owns the logger lifecycle and supports runtime reconfiguration.
type Manager struct {
	levelVar *slog.LevelVar
	handler  *SwappableHandler
	console  io.Writer
	config   Config
	mu       sync.Mutex
	closer   io.Closer // lumberjack writer, if any
}

// NewManager creates a Manager writing to stdout and returns it along with
// a ready-to-use logger.
func NewManager(cfg Config) (*Manager, *slog.Logger) {
	return NewManagerWriter(cfg, os.Stdout)
}

// NewManagerWriter is NewManager with a different console writer. The CLI
// logs to stderr so stdout stays clean for scan output.
func NewManagerWriter(cfg Config, console io.Writer) (*Manager, *slog.Logger) {
	lvl := &slog.LevelVar{}
	lvl.Set(ParseLevel(cfg.Level))

	writer, closer := buildWriter(cfg, console)
	handler := NewSwappableHandler(buildHandler(writer, lvl, cfg.Format))

	m := &Manager{
		levelVar: lvl,
		handler:  handler,
		console:  console,
		config:   cfg,
		closer:   closer,
	}
	return m, slog.New(handler)
}

// Reconfigure applies a new configuration at runtime. Level-only changes
// go through the LevelVar; format or output changes rebuild the handler.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.levelVar.Set(ParseLevel(cfg.Level))

	needSwap := cfg.Format != m.config.Format ||
		cfg.FilePath != m.config.FilePath ||
		cfg.FileMaxSizeMB != m.config.FileMaxSizeMB ||
		cfg.FileMaxFiles != m.config.FileMaxFiles ||
		cfg.FileMaxAgeDays != m.config.FileMaxAgeDays

	if needSwap {
		if m.closer != nil {
			_ = m.closer.Close()
			m.closer = nil
		}
		writer, closer := buildWriter(cfg, m.console)
		m.handler.Swap(buildHandler(writer, m.levelVar, cfg.Format))
		m.closer = closer
	}

	m.config = cfg
}

// Config returns the current configuration snapshot.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Close releases the log file writer, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closer != nil {
		err := m.closer.Close()
		m.closer = nil
		return err
	}
	return nil
}

// ParseLevel converts a level name to slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FormatLevel converts a slog.Level to its name.
func FormatLevel(l slog.Level) string {
	switch {
	case l <= slog.LevelDebug:
		return "debug"
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	default:
		return "info"
	}
}

// ValidLevel reports whether s is a recognized log level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ValidFormat reports whether s is a recognized log format.
func ValidFormat(s string) bool {
	return s == "text" || s == "json"
}

func buildWriter(cfg Config, console io.Writer) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return console, nil
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    orDefault(cfg.FileMaxSizeMB, 100),
		MaxBackups: orDefault(cfg.FileMaxFiles, 3),
		MaxAge:     orDefault(cfg.FileMaxAgeDays, 30),
	}
	return io.MultiWriter(console, lj), lj
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func buildHandler(w io.Writer, leveler slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: leveler}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
