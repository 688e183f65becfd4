package main

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/sydlexius/svgscout/internal/classify"
	"github.com/sydlexius/svgscout/internal/convert"
	"github.com/sydlexius/svgscout/internal/filesystem"
)

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Print an Android vector drawable as SVG",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the SVG to this file instead of stdout",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("convert requires exactly one FILE argument", 1)
			}
			if err := convertFile(afero.NewOsFs(), c.Args().First(), c.String("output"), c.App.Writer); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// convertFile reads src and writes its SVG form to out, or to w when out
// is empty. SVG input passes through unchanged.
func convertFile(fsys afero.Fs, src, out string, w io.Writer) error {
	data, err := afero.ReadFile(fsys, src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}

	content := string(data)
	switch classify.Classify(content) {
	case classify.KindAndroidVector:
		content = convert.VectorToSVG(content)
	case classify.KindSVG:
	default:
		return fmt.Errorf("%s is neither SVG nor an Android vector drawable", src)
	}

	if out == "" {
		_, err := io.WriteString(w, content)
		return err
	}
	if err := filesystem.WriteFileAtomic(fsys, out, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}
