// Package info implements the command that prints qoi header information.
package info

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/LukiDS/qoiconv/qoi"
	"github.com/LukiDS/qoiconv/qoiz"
)

type CLICmd struct {
	Files  []string `arg:"" help:"qoi files to inspect" type:"existingfile"`
	Verify bool     `help:"Decode every pixel and check the stream end" default:"false"`
}

// Report describes one inspected file.
type Report struct {
	Descriptor qoi.Descriptor
	Codec      qoiz.Codec
	FileSize   int
	StreamSize int
}

func (c *CLICmd) Run() error {
	var errCount int
	for _, file := range c.Files {
		logger := slog.Default().With("file", file)

		r, err := Inspect(file, c.Verify)
		if err != nil {
			errCount++
			logger.Error("could not inspect image", "error", err)
			continue
		}

		logger.Info("qoi",
			"width", r.Descriptor.Width,
			"height", r.Descriptor.Height,
			"channels", r.Descriptor.Channels,
			"colorspace", r.Descriptor.Colorspace,
			"codec", r.Codec,
			"size", r.FileSize,
			"stream", r.StreamSize,
			"verified", c.Verify)
	}

	if errCount > 0 {
		return fmt.Errorf("error inspecting %d files", errCount)
	}
	return nil
}

// Inspect reads the header of a plain or compressed qoi file. With verify
// the whole stream is decoded as well.
func Inspect(path string, verify bool) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("could not read file %q: %w", path, err)
	}

	stream, codec, err := qoiz.Unwrap(data)
	if err != nil {
		return Report{}, err
	}

	desc, err := qoi.UnpackHeader(stream)
	if err != nil {
		return Report{}, err
	}

	if verify {
		if _, _, err := qoi.DecodePixels(stream); err != nil {
			return Report{}, err
		}
	}

	return Report{
		Descriptor: desc,
		Codec:      codec,
		FileSize:   len(data),
		StreamSize: len(stream),
	}, nil
}
