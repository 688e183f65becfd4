package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/svgscout/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Scanner ScannerConfig  `yaml:"scanner"`
	Catalog CatalogConfig  `yaml:"catalog"`
	Logging logging.Config `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	BasePath          string `yaml:"base_path"`
	ScanRatePerMinute int    `yaml:"scan_rate_per_minute"`
	// CORSOrigins lists the browser origins allowed to call the API. Empty
	// allows any origin.
	CORSOrigins []string `yaml:"cors_origins"`
}

// ScannerConfig holds directory scan settings.
type ScannerConfig struct {
	Extensions      []string `yaml:"extensions"`
	MaxDepth        int      `yaml:"max_depth"`
	IncludeContent  bool     `yaml:"include_content"`
	JobHistory      int      `yaml:"job_history"`
	Watch           bool     `yaml:"watch"`
	WatchDebounceMS int      `yaml:"watch_debounce_ms"`
}

// CatalogConfig holds the image catalog storage settings.
type CatalogConfig struct {
	DSN string `yaml:"dsn"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              3000,
			ScanRatePerMinute: 30,
		},
		Scanner: ScannerConfig{
			Extensions:      []string{".svg", ".xml"},
			JobHistory:      16,
			WatchDebounceMS: 2000,
		},
		Catalog: CatalogConfig{
			DSN: ":memory:",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	var errs []error
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	envString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envString("SVGS_HOST", &c.Server.Host)
	envInt("SVGS_PORT", &c.Server.Port)
	envString("SVGS_BASE_PATH", &c.Server.BasePath)
	envInt("SVGS_SCAN_RATE_PER_MINUTE", &c.Server.ScanRatePerMinute)
	if v := os.Getenv("SVGS_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	if v := os.Getenv("SVGS_EXTENSIONS"); v != "" {
		c.Scanner.Extensions = splitList(v)
	}
	envInt("SVGS_MAX_DEPTH", &c.Scanner.MaxDepth)
	envBool("SVGS_INCLUDE_CONTENT", &c.Scanner.IncludeContent)
	envInt("SVGS_JOB_HISTORY", &c.Scanner.JobHistory)
	envBool("SVGS_WATCH", &c.Scanner.Watch)
	envInt("SVGS_WATCH_DEBOUNCE_MS", &c.Scanner.WatchDebounceMS)

	envString("SVGS_CATALOG_DSN", &c.Catalog.DSN)

	envString("SVGS_LOG_LEVEL", &c.Logging.Level)
	envString("SVGS_LOG_FORMAT", &c.Logging.Format)
	envString("SVGS_LOG_FILE", &c.Logging.FilePath)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ScanRatePerMinute < 0 {
		return fmt.Errorf("scan_rate_per_minute must be >= 0, got %d", c.Server.ScanRatePerMinute)
	}
	if c.Scanner.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.Scanner.MaxDepth)
	}
	if c.Scanner.JobHistory < 1 {
		return fmt.Errorf("job_history must be >= 1, got %d", c.Scanner.JobHistory)
	}
	if c.Scanner.WatchDebounceMS < 0 {
		return fmt.Errorf("watch_debounce_ms must be >= 0, got %d", c.Scanner.WatchDebounceMS)
	}
	if len(c.Scanner.Extensions) == 0 {
		return fmt.Errorf("at least one scanner extension is required")
	}
	for i, ext := range c.Scanner.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Scanner.Extensions[i] = ext
	}
	for _, origin := range c.Server.CORSOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors origin %q must start with http:// or https://", origin)
		}
	}
	if c.Catalog.DSN == "" {
		return fmt.Errorf("catalog dsn is required")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}

	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		c.Server.BasePath = "/" + c.Server.BasePath
	}
	return nil
}
