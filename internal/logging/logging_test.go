package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager_DefaultConfig(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := NewManagerWriter(DefaultConfig(), &buf)
	defer mgr.Close() //nolint:errcheck

	logger.Info("scan finished", "images", 4)

	if got := mgr.Config(); got.Level != "info" || got.Format != "text" {
		t.Errorf("config = %+v, want info/text", got)
	}
	if !strings.Contains(buf.String(), "msg=\"scan finished\" images=4") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}

func TestManager_LevelSwap(t *testing.T) {
	mgr, logger := NewManagerWriter(Config{Level: "info", Format: "json"}, &bytes.Buffer{})
	defer mgr.Close() //nolint:errcheck
	ctx := context.Background()

	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected info to be enabled")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be disabled")
	}

	mgr.Reconfigure(Config{Level: "debug", Format: "json"})
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be enabled after reconfigure")
	}

	mgr.Reconfigure(Config{Level: "error", Format: "json"})
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected info to be disabled when level is error")
	}
	if !logger.Enabled(ctx, slog.LevelError) {
		t.Error("expected error to be enabled")
	}
}

func TestManager_FormatSwapReachesDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := NewManagerWriter(Config{Level: "info", Format: "text"}, &buf)
	defer mgr.Close() //nolint:errcheck

	// derived before the swap, like a component logger built at startup
	component := logger.With("component", "scanner")

	mgr.Reconfigure(Config{Level: "info", Format: "json"})
	component.Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if rec["component"] != "scanner" || rec["msg"] != "hello" {
		t.Errorf("record = %v", rec)
	}
}

func TestManager_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "svgscout.log")

	cfg := Config{
		Level:          "info",
		Format:         "json",
		FilePath:       logFile,
		FileMaxSizeMB:  1,
		FileMaxFiles:   1,
		FileMaxAgeDays: 1,
	}
	var console bytes.Buffer
	mgr, logger := NewManagerWriter(cfg, &console)

	logger.Info("hello from test")

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !bytes.Contains(data, []byte("hello from test")) {
		t.Errorf("log file missing record: %q", data)
	}
	if console.Len() == 0 {
		t.Error("expected console output as well")
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(DefaultConfig())
	if err := mgr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := []Config{
		{Level: "trace", Format: "text"},
		{Level: "info", Format: "xml"},
		{Level: "info", Format: "text", FileMaxFiles: -1},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", c)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "warning", "error", "DEBUG"} {
		if !ValidLevel(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "fatal"} {
		if ValidLevel(l) {
			t.Errorf("expected %q to be invalid", l)
		}
	}
}

func TestParseAndFormatLevel(t *testing.T) {
	tests := []struct {
		in   string
		lvl  slog.Level
		name string
	}{
		{"debug", slog.LevelDebug, "debug"},
		{"info", slog.LevelInfo, "info"},
		{"Warn", slog.LevelWarn, "warn"},
		{"error", slog.LevelError, "error"},
		{"", slog.LevelInfo, "info"},
		{"unknown", slog.LevelInfo, "info"},
	}
	for _, tt := range tests {
		got := ParseLevel(tt.in)
		if got != tt.lvl {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.lvl)
		}
		if name := FormatLevel(got); name != tt.name {
			t.Errorf("FormatLevel(%v) = %q, want %q", got, name, tt.name)
		}
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{Level: "info", Format: "json"}
	if s := cfg.String(); s != "level=info format=json" {
		t.Errorf("unexpected string: %s", s)
	}

	cfg.FilePath = "/var/log/svgscout.log"
	cfg.FileMaxSizeMB = 50
	cfg.FileMaxFiles = 5
	cfg.FileMaxAgeDays = 7
	want := "level=info format=json file=/var/log/svgscout.log max_size=50MB max_files=5 max_age=7d"
	if s := cfg.String(); s != want {
		t.Errorf("got %q, want %q", s, want)
	}
}
