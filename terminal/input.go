package terminal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
	"unicode"

	"github.com/guslan/chip8vm"
)

// DefaultHoldTime is how long a key counts as pressed after its last byte.
// Terminals only report key downs, auto-repeat keeps a held key alive.
const DefaultHoldTime = 150 * time.Millisecond

type InputConfig struct {
	Layout   chip8vm.KeyboardLayout
	HoldTime time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

type InputConfigCb func(config *InputConfig)

// Input turns the bytes typed in a terminal into keypad presses and debug
// actions. It implements chip8vm.Keyboard and chip8vm.Stepper.
//
//	Enter      step one instruction
//	Delete     leave debug mode
//	Escape     quit
type Input struct {
	lookup map[rune]byte
	hold   time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu    sync.Mutex
	until [chip8vm.KeyCount]time.Time

	steps    chip8vm.ChannelStepper
	quit     chan struct{}
	quitOnce sync.Once
}

func NewInput(configs ...InputConfigCb) *Input {
	config := &InputConfig{
		Layout:   chip8vm.DefaultKeyboardLayout,
		HoldTime: DefaultHoldTime,
		Now:      time.Now,
		Logger:   slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	return &Input{
		lookup: chip8vm.LookupMap(config.Layout),
		hold:   config.HoldTime,
		now:    config.Now,
		logger: config.Logger,
		steps:  chip8vm.NewChannelStepper(),
		quit:   make(chan struct{}),
	}
}

// Boot implements chip8vm.Keyboard.
func (in *Input) Boot() error {
	return nil
}

// IsPressed implements chip8vm.Keyboard.
func (in *Input) IsPressed(k byte) bool {
	if k >= chip8vm.KeyCount {
		return false
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	return in.now().Before(in.until[k])
}

// State implements chip8vm.Keyboard.
func (in *Input) State() chip8vm.KeyboardState {
	in.mu.Lock()
	defer in.mu.Unlock()

	var state chip8vm.KeyboardState
	now := in.now()
	for k, until := range in.until {
		state[k] = now.Before(until)
	}

	return state
}

// WaitStep implements chip8vm.Stepper.
func (in *Input) WaitStep(ctx context.Context) (chip8vm.StepAction, error) {
	select {
	case <-in.quit:
		return chip8vm.StepQuit, nil
	default:
	}

	select {
	case a := <-in.steps:
		return a, nil
	case <-in.quit:
		return chip8vm.StepQuit, nil
	case <-ctx.Done():
		return chip8vm.StepQuit, ctx.Err()
	}
}

// Quit is closed once the user asks to leave
func (in *Input) Quit() <-chan struct{} {
	return in.quit
}

func (in *Input) requestQuit() {
	in.quitOnce.Do(func() {
		in.logger.Debug("quit requested")
		close(in.quit)
	})
}

// Feed handles one chunk read from the terminal
func (in *Input) Feed(p []byte) {
	for i := 0; i < len(p); i++ {
		switch c := p[i]; c {
		case ESC:
			// ESC [ 3 ~ is the Delete key, a lone ESC is the Escape key
			if i+3 < len(p) && p[i+1] == '[' && p[i+2] == '3' && p[i+3] == '~' {
				in.steps.Send(chip8vm.StepContinue)
				i += 3
				continue
			}
			if i+1 < len(p) && p[i+1] == '[' {
				// other control sequences are ignored
				i = skipSequence(p, i)
				continue
			}
			in.requestQuit()

		case 0x03:
			in.requestQuit()

		case '\r', '\n':
			in.steps.Send(chip8vm.StepNext)

		case 0x7F, 0x08:
			in.steps.Send(chip8vm.StepContinue)

		default:
			in.press(rune(c))
		}
	}
}

func skipSequence(p []byte, i int) int {
	for j := i + 2; j < len(p); j++ {
		if p[j] >= 0x40 && p[j] <= 0x7E {
			return j
		}
	}

	return len(p) - 1
}

func (in *Input) press(r rune) {
	k, ok := in.lookup[unicode.ToLower(r)]
	if !ok {
		return
	}

	in.mu.Lock()
	in.until[k] = in.now().Add(in.hold)
	in.mu.Unlock()
}

// Run feeds everything read from r until EOF, an error, or ctx is done
func (in *Input) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 32)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			in.Feed(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
