/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"flag"
	"log/slog"
	"os"
	"runtime"

	"github.com/guslan/chip8vm"
	"github.com/guslan/chip8vm/gui"
	"github.com/guslan/chip8vm/internal/cli"
	"github.com/guslan/chip8vm/palette"
)

func init() {
	// raylib calls must come from the main thread
	runtime.LockOSThread()
}

func main() {
	var paused bool
	opts, err := cli.Parse("chip8-gui", os.Args[1:], func(flags *flag.FlagSet) {
		flags.BoolVar(&paused, "paused", false, "open the window without starting the program")
	})
	logger := cli.NewLogger(os.Stdout, opts.LogLevel)
	if err != nil {
		cli.Exit(logger, err)
	}
	slog.SetDefault(logger)

	if opts.ColorName != "" && !palette.Known(opts.ColorName) {
		logger.Warn("Unknown color, using purple", slog.String("color", opts.ColorName))
	}

	ctx, stop := cli.Context()
	defer stop()

	app := gui.NewApp(func(config *gui.AppConfig) {
		config.Speed = opts.Speed
		config.UseDebugger = opts.Debugging()
		config.Color = opts.Color
		config.Buzzer = cli.NewBuzzer(opts, logger)
		config.Logger = logger
		config.Cpu = []chip8vm.CpuConfigCb{opts.CpuConfig(logger)}
	})
	app.Load(opts.Path)

	if err := app.Run(ctx, !paused); err != nil {
		cli.Exit(logger, err)
	}
}
