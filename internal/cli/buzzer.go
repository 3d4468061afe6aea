package cli

import (
	"log/slog"

	"github.com/guslan/chip8vm"
	"github.com/guslan/chip8vm/audio"
)

// NewBuzzer returns the audio buzzer, or a silent one when muted or when no
// audio device can be opened
func NewBuzzer(opts Options, logger *slog.Logger) chip8vm.Buzzer {
	if opts.Mute {
		return chip8vm.NewDummyBuzzer()
	}

	b := audio.NewBuzzer(func(config *audio.BuzzerConfig) {
		config.Logger = logger
	})
	if err := b.Boot(); err != nil {
		logger.Warn("Sound disabled", slog.Any("error", err))
		return chip8vm.NewDummyBuzzer()
	}

	return b
}
