package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/sydlexius/svgscout/internal/classify"
	"github.com/sydlexius/svgscout/internal/scanner"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan a directory once and print the images found",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the full result as JSON",
			},
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "Max directory depth below PATH (0 - unlimited, default from config)",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Hide the progress spinner",
			},
		},
		Action: scanAction,
	}
}

func scanAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("scan requires exactly one PATH argument", 1)
	}
	cfg, logManager, logger, err := setup(c, os.Stderr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer logManager.Close() //nolint:errcheck

	opts := scannerOptions(cfg)
	if d := c.Int("max-depth"); d >= 0 {
		opts.MaxDepth = d
	}
	if err := opts.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc := scanner.New(afero.NewOsFs(), opts, logger)
	progress := &scanner.Progress{}

	var res *scanner.Result
	if c.Bool("quiet") {
		res, err = sc.Scan(ctx, c.Args().First(), progress)
	} else {
		res, err = scanWithSpinner(ctx, sc, c.Args().First(), progress)
	}
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return nil
	}
	printSummary(c.App.Writer, res)
	return nil
}

// scanWithSpinner runs the scan while a spinner on stderr shows how many
// files have been processed.
func scanWithSpinner(ctx context.Context, sc *scanner.Scanner, root string, progress *scanner.Progress) (*scanner.Result, error) {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	type outcome struct {
		res *scanner.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := sc.Scan(ctx, root, progress)
		done <- outcome{res, err}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case out := <-done:
			_ = bar.Set64(progress.Snapshot().Processed)
			_ = bar.Finish()
			return out.res, out.err
		case <-ticker.C:
			_ = bar.Set64(progress.Snapshot().Processed)
		}
	}
}

func printSummary(w io.Writer, res *scanner.Result) {
	var svgs, vectors int
	for _, img := range res.ImageFiles {
		switch img.Type {
		case classify.KindSVG:
			svgs++
		case classify.KindAndroidVector:
			vectors++
		}
		fmt.Fprintf(w, "%-15s %8d  %s\n", img.Type, img.Size, img.Path)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s %s: %s\n", warn.Op, warn.Path, warn.Error)
	}
	fmt.Fprintf(w, "\n%s: %d files, %d images (%d svg, %d android-vector), %d warnings\n",
		res.Root, len(res.AllFiles), len(res.ImageFiles), svgs, vectors, len(res.Warnings))
}
