package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/LukiDS/qoiconv/convert"
	"github.com/LukiDS/qoiconv/info"
	"github.com/LukiDS/qoiconv/parallel"
)

type cli struct {
	Workers  int    `help:"Number of files converted in parallel. 0 uses all CPUs" default:"0"`
	LogLevel string `help:"Log level" enum:"debug,info,warn,error" default:"info"`

	Convert convert.CLICmd `cmd:"" help:"Convert images to and from qoi"`
	Info    info.CLICmd    `cmd:"" help:"Show the header of qoi images"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("qoiconv"),
		kong.Description("Convert between qoi and other raster formats."),
		kong.UsageOnError(),
	)

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pool := parallel.Start(c.Workers)
	kctx.FatalIfErrorf(kctx.Run(pool))
}
