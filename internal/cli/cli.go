// Package cli handles the command line shared by every frontend
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/guslan/chip8vm"
	"github.com/guslan/chip8vm/palette"
)

type Command string

const (
	// CommandLoad runs a program: load <path> [color]
	CommandLoad Command = "load"
	// CommandDebug runs a program one instruction at a time: debug <path>
	CommandDebug Command = "debug"
)

type Options struct {
	Command   Command
	Path      string
	Color     palette.Color
	ColorName string

	Speed    uint
	LogLevel slog.Level
	Quirks   chip8vm.Quirks
	Mute     bool
}

// Debugging reports whether the program runs one instruction at a time
func (o Options) Debugging() bool {
	return o.Command == CommandDebug
}

// CpuConfig applies the options to a CPU
func (o Options) CpuConfig(logger *slog.Logger) chip8vm.CpuConfigCb {
	return func(config *chip8vm.CpuConfig) {
		config.SpeedInHz = o.Speed
		config.Quirks = o.Quirks
		config.Logger = logger
	}
}

// Parse reads the common flags, then the subcommand and its arguments.
// extra registers frontend specific flags on the same set.
func Parse(name string, args []string, extra func(flags *flag.FlagSet)) (Options, error) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var opts Options
	var logLevel, quirks string
	flags.UintVar(&opts.Speed, "speed", chip8vm.DefaultSpeed, fmt.Sprintf("instructions per second, 0 runs unthrottled, at most %d", chip8vm.MaxSpeed))
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug/info/warn/error), debug logs every instruction")
	flags.StringVar(&quirks, "quirks", "", "comma separated interpreter quirks (vfreset/shift/jump/memory)")
	flags.BoolVar(&opts.Mute, "mute", false, "do not play the sound timer")
	if extra != nil {
		extra(flags)
	}

	if err := flags.Parse(args); err != nil {
		return opts, &UsageError{flags: flags, name: name, msg: err.Error()}
	}

	if err := opts.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return opts, &UsageError{flags: flags, name: name, msg: fmt.Sprintf("invalid log level %q", logLevel)}
	}

	q, err := chip8vm.ParseQuirks(quirks)
	if err != nil {
		return opts, &UsageError{flags: flags, name: name, msg: err.Error()}
	}
	opts.Quirks = q

	if opts.Speed > chip8vm.MaxSpeed {
		return opts, &UsageError{flags: flags, name: name, msg: fmt.Sprintf("speed %d is above %d", opts.Speed, chip8vm.MaxSpeed)}
	}

	rest := flags.Args()
	if len(rest) == 0 {
		return opts, &UsageError{flags: flags, name: name, msg: "missing command"}
	}

	opts.Command = Command(strings.ToLower(rest[0]))
	rest = rest[1:]
	switch opts.Command {
	case CommandLoad:
		if len(rest) < 1 || len(rest) > 2 {
			return opts, &UsageError{flags: flags, name: name, msg: "load expects a program path and an optional color"}
		}
		if len(rest) == 2 {
			opts.ColorName = rest[1]
		}

	case CommandDebug:
		if len(rest) != 1 {
			return opts, &UsageError{flags: flags, name: name, msg: "debug expects a program path"}
		}

	default:
		return opts, &UsageError{flags: flags, name: name, msg: fmt.Sprintf("unknown command %q", rest[0])}
	}

	opts.Path = rest[0]
	opts.Color = palette.Parse(opts.ColorName)

	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	name  string
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage(w io.Writer) {
	fmt.Fprintf(w, "usage: %s [options] load <program> [purple|green|blue|red]\n", e.name)
	fmt.Fprintf(w, "       %s [options] debug <program>\n\n", e.name)
	fmt.Fprintf(w, "debug keys: Enter steps, Delete continues, Escape quits\n\n")
	e.flags.SetOutput(w)
	e.flags.PrintDefaults()
	fmt.Fprintln(w)
}

// NewLogger creates the text logger every command installs as default
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Context is cancelled on SIGINT or SIGTERM
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Exit reports err the way every command does and exits
func Exit(logger *slog.Logger, err error) {
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(os.Stderr, "error: %s\n\n", usageErr.Error())
		usageErr.ShowUsage(os.Stderr)
		os.Exit(2)
	}

	logger.Error(err.Error())
	os.Exit(1)
}
