// Package terminal renders the screen with ANSI escapes and reads the
// keypad from a raw tty
package terminal

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/guslan/chip8vm"
	"github.com/guslan/chip8vm/palette"
	xterm "golang.org/x/term"
)

const ESC = 0x1B

const (
	// every pixel is two columns wide
	minColumns = chip8vm.ScreenWidth * 2
	minRows    = chip8vm.ScreenHeight
)

type Display struct {
	terminal        io.Writer
	color           palette.Color
	logger          *slog.Logger
	OnChar, OffChar string
}

func NewDisplay(color palette.Color, logger *slog.Logger) *Display {
	return NewDisplayWithOutput(os.Stdout, color, logger)
}

func NewDisplayWithOutput(out io.Writer, color palette.Color, logger *slog.Logger) *Display {
	return &Display{
		terminal: out,
		color:    color,
		logger:   logger,
		OnChar:   "██",
		OffChar:  "  ",
	}
}

// Boot implements chip8vm.Display.
func (disp *Display) Boot() error {
	if f, ok := disp.terminal.(*os.File); ok && xterm.IsTerminal(int(f.Fd())) {
		w, h, err := xterm.GetSize(int(f.Fd()))
		if err == nil && (w < minColumns || h < minRows) {
			disp.logger.Warn("terminal is smaller than the screen",
				slog.Int("columns", w), slog.Int("rows", h),
				slog.Int("min_columns", minColumns), slog.Int("min_rows", minRows))
		}
	}

	_, err := disp.terminal.Write([]byte{
		// Move cursor do start
		ESC, '[', '1', 'H',
		// clear the terminal
		ESC, '[', '0', 'J',
		// hide the cursor
		ESC, '[', '?', '2', '5', 'l',
	})

	return err
}

// Render implements chip8vm.Display.
func (disp *Display) Render(screen chip8vm.Screen) error {
	r, g, b := disp.color.RGB()

	buff := make([]byte, 0, chip8vm.ScreenWidth*chip8vm.ScreenHeight*len(disp.OnChar)+chip8vm.ScreenHeight*2+64)
	buff = append(buff, ESC, '[', '1', 'H')
	buff = fmt.Appendf(buff, "\x1b[38;2;%d;%d;%dm", r, g, b)
	for i, cell := range screen {
		for bitJ := 0; bitJ < 8; bitJ++ {
			if cell&(0x80>>byte(bitJ)) != 0 {
				buff = append(buff, disp.OnChar...)
			} else {
				buff = append(buff, disp.OffChar...)
			}
		}

		// raw mode does not translate \n
		if ((i+1)*8)%chip8vm.ScreenWidth == 0 {
			buff = append(buff, '\r', '\n')
		}
	}
	buff = append(buff, ESC, '[', '0', 'm')

	_, err := disp.terminal.Write(buff)
	return err
}

// Close shows the cursor again
func (disp *Display) Close() error {
	_, err := disp.terminal.Write([]byte{ESC, '[', '0', 'm', ESC, '[', '?', '2', '5', 'h', '\r', '\n'})
	return err
}
