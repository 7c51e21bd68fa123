// Package convert implements the file conversion command between qoi and
// the raster formats known to imgconv.
package convert

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/alecthomas/kong"

	"github.com/LukiDS/qoiconv/parallel"
)

type CLICmd struct {
	Files      []string `arg:"" help:"Images to convert" type:"existingfile"`
	To         string   `help:"Target format" enum:"qoi,qoi.zst,qoi.lz4,png,jpeg,gif,bmp,tiff" default:"qoi"`
	Dest       string   `help:"Destination folder. Defaults to the folder of each source file"`
	Channels   int      `help:"Channel count of the output (3 or 4). 0 keeps the source channels" default:"0"`
	Colorspace int      `help:"Colorspace byte for qoi output (0 sRGB, 1 linear). -1 keeps the source value" default:"-1"`
	Quality    int      `help:"JPEG quality" default:"90"`
	Overwrite  bool     `help:"Replace existing destination files" default:"false"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.Dest != "" {
		dest, err := filepath.Abs(c.Dest)
		if err != nil {
			return fmt.Errorf("invalid destination path %q: %w", c.Dest, err)
		}
		c.Dest = dest
	}

	switch {
	case c.Channels != 0 && c.Channels != 3 && c.Channels != 4:
		return fmt.Errorf("invalid channel count: %d", c.Channels)
	case c.Colorspace < -1 || c.Colorspace > 255:
		return fmt.Errorf("invalid colorspace: %d", c.Colorspace)
	case c.Quality < 1 || c.Quality > 100:
		return fmt.Errorf("invalid JPEG quality: %d", c.Quality)
	}

	return nil
}

func (c *CLICmd) Run(pool *parallel.Pool) error {
	if c.Dest != "" {
		if err := os.MkdirAll(c.Dest, 0o755); err != nil {
			return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
		}
	}

	var processedCount, errCount atomic.Uint64
	for _, file := range c.Files {
		pool.Do(func() {
			logger := slog.Default().With("file", file, "to", c.To)

			dest, err := c.convertFile(file)
			if err != nil {
				errCount.Add(1)
				logger.Error("could not convert image", "error", err)
				return
			}

			logger.Debug("converted", "dest", dest)
			processedCount.Add(1)
		})
	}

	pool.Wait()

	processed := processedCount.Load()
	errors := errCount.Load()
	slog.Info("stats", "processed", processed, "errors", errors,
		"total", processed+errors)

	if errors > 0 {
		return fmt.Errorf("error processing %d files", errors)
	}
	return nil
}
