package terminal

import (
	"errors"
	"io"
	"time"

	pterm "github.com/pkg/term"
)

const readTimeout = 100 * time.Millisecond

// TTY is a terminal in raw mode whose reads time out so that Input.Run can
// notice a cancelled context
type TTY struct {
	t *pterm.Term
}

func OpenTTY(path string) (*TTY, error) {
	t, err := pterm.Open(path, pterm.RawMode)
	if err != nil {
		return nil, err
	}

	if err := t.SetReadTimeout(readTimeout); err != nil {
		_ = t.Restore()
		_ = t.Close()
		return nil, err
	}

	return &TTY{t: t}, nil
}

// Read implements io.Reader. A timeout reads nothing and is not an error.
func (tty *TTY) Read(p []byte) (int, error) {
	n, err := tty.t.Read(p)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}

	return n, err
}

// Close restores the terminal mode
func (tty *TTY) Close() error {
	if err := tty.t.Restore(); err != nil {
		return err
	}

	return tty.t.Close()
}
