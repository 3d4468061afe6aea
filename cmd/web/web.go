/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/guslan/chip8vm"
	"github.com/guslan/chip8vm/internal/cli"
	"github.com/guslan/chip8vm/web"
)

func main() {
	var port int
	var static string
	opts, err := cli.Parse("chip8-web", os.Args[1:], func(flags *flag.FlagSet) {
		flags.IntVar(&port, "port", 9999, "The port of the server")
		flags.StringVar(&static, "static", "", "directory served on /")
	})
	logger := cli.NewLogger(os.Stderr, opts.LogLevel)
	if err != nil {
		cli.Exit(logger, err)
	}
	slog.SetDefault(logger)

	ctx, stop := cli.Context()
	defer stop()

	server := web.NewServer(chip8vm.NewMemory(), func(config *web.ServerConfig) {
		config.UseDebugger = opts.Debugging()
		config.Buzzer = cli.NewBuzzer(opts, logger)
		config.Logger = logger
		config.StaticDir = static
		config.Cpu = []chip8vm.CpuConfigCb{opts.CpuConfig(logger)}
	})
	if err := server.LoadProgramFile(opts.Path); err != nil {
		cli.Exit(logger, err)
	}

	if err := server.Listen(ctx, fmt.Sprintf(":%d", port)); err != nil {
		cli.Exit(logger, err)
	}
}
