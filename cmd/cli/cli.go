/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/guslan/chip8vm"
	"github.com/guslan/chip8vm/internal/cli"
	"github.com/guslan/chip8vm/palette"
	"github.com/guslan/chip8vm/terminal"
)

func main() {
	var tty string
	opts, err := cli.Parse("chip8-cli", os.Args[1:], func(flags *flag.FlagSet) {
		flags.StringVar(&tty, "tty", "/dev/tty", "the terminal to read keys from")
	})
	logger := cli.NewLogger(os.Stderr, opts.LogLevel)
	if err != nil {
		cli.Exit(logger, err)
	}
	slog.SetDefault(logger)

	if err := run(opts, tty, logger); err != nil {
		cli.Exit(logger, err)
	}
}

func run(opts cli.Options, ttyPath string, logger *slog.Logger) error {
	if opts.ColorName != "" && !palette.Known(opts.ColorName) {
		logger.Warn("Unknown color, using purple", slog.String("color", opts.ColorName))
	}

	ctx, stop := cli.Context()
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tty, err := terminal.OpenTTY(ttyPath)
	if err != nil {
		return err
	}
	defer tty.Close()

	input := terminal.NewInput(func(config *terminal.InputConfig) {
		config.Logger = logger
	})
	display := terminal.NewDisplay(opts.Color, logger)
	defer display.Close()

	configs := []chip8vm.CpuConfigCb{opts.CpuConfig(logger)}
	if opts.Debugging() {
		configs = append(configs, func(config *chip8vm.CpuConfig) {
			config.Stepper = input
		})
	}

	buzzer := cli.NewBuzzer(opts, logger)
	cpu := chip8vm.NewCpu(chip8vm.NewMemory(), display, input, buzzer, configs...)
	if err := cpu.LoadProgramFile(opts.Path); err != nil {
		return err
	}
	if err := cpu.Boot(); err != nil {
		return err
	}

	go func() {
		if err := input.Run(ctx, tty); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Reading the terminal", slog.Any("error", err))
		}
	}()
	go func() {
		select {
		case <-input.Quit():
			cancel()
		case <-ctx.Done():
		}
	}()

	err = cpu.Loop(ctx)
	buzzer.Stop()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
