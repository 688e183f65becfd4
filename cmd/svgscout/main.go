package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/sydlexius/svgscout/internal/api"
	"github.com/sydlexius/svgscout/internal/catalog"
	"github.com/sydlexius/svgscout/internal/config"
	"github.com/sydlexius/svgscout/internal/database"
	"github.com/sydlexius/svgscout/internal/event"
	"github.com/sydlexius/svgscout/internal/logging"
	"github.com/sydlexius/svgscout/internal/scanner"
	"github.com/sydlexius/svgscout/internal/version"
	"github.com/sydlexius/svgscout/internal/watcher"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "svgscout",
		Usage:   "Find SVG and Android vector drawable files and preview them as SVG",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"SVGS_CONFIG_PATH"},
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serveAction,
			},
			scanCommand(),
			convertCommand(),
		},
		HideHelpCommand: true,
	}
}

// setup loads the config and builds the logger. console receives log
// output when no log file is configured.
func setup(c *cli.Context, console io.Writer) (*config.Config, *logging.Manager, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logManager, logger := logging.NewManagerWriter(cfg.Logging, console)
	return cfg, logManager, logger, nil
}

func scannerOptions(cfg *config.Config) scanner.Options {
	return scanner.Options{
		Extensions:     cfg.Scanner.Extensions,
		MaxDepth:       cfg.Scanner.MaxDepth,
		IncludeContent: cfg.Scanner.IncludeContent,
	}
}

func serveAction(c *cli.Context) error {
	cfg, logManager, logger, err := setup(c, os.Stdout)
	if err != nil {
		return err
	}
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	logger.Info("starting svgscout",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("logging", cfg.Logging.String()))

	return serve(cfg, logManager, logger)
}

func serve(cfg *config.Config, logManager *logging.Manager, logger *slog.Logger) error {
	db, err := database.Open(cfg.Catalog.DSN)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	eventBus.SubscribeAll(func(e event.Event) {
		logger.Debug("event", "type", e.Type, "data", e.Data)
	})

	opts := scannerOptions(cfg)
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("scanner options: %w", err)
	}
	osFs := afero.NewOsFs()
	cat := catalog.New(db)
	jobs := scanner.NewService(scanner.New(osFs, opts, logger), cat, logger, cfg.Scanner.JobHistory)
	jobs.SetEventBus(eventBus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scanner.Watch {
		rescan := func(ctx context.Context, root string) error {
			_, err := jobs.Start(ctx, root)
			return err
		}
		debounce := time.Duration(cfg.Scanner.WatchDebounceMS) * time.Millisecond
		watcherService := watcher.NewService(rescan, eventBus, logger, cfg.Scanner.Extensions, debounce)
		watcherService.SubscribeScans()
		go watcherService.Start(ctx)
	}

	router := api.NewRouter(api.RouterDeps{
		Jobs:              jobs,
		Catalog:           cat,
		LogManager:        logManager,
		Fs:                osFs,
		Logger:            logger,
		BasePath:          cfg.Server.BasePath,
		ScanRatePerMinute: cfg.Server.ScanRatePerMinute,
		CORSOrigins:       cfg.Server.CORSOrigins,
		BaseContext:       ctx,
	})

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
