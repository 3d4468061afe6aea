// Package audio plays the sound timer through the host audio device
package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"
)

type BuzzerConfig struct {
	SampleRate int
	Frequency  float64
	Volume     float32
	Logger     *slog.Logger
}

type BuzzerConfigCb func(config *BuzzerConfig)

// Buzzer keeps a single oto player running and opens the tone gate while
// the sound timer is active
type Buzzer struct {
	sampleRate int
	tone       *Tone
	logger     *slog.Logger

	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

func NewBuzzer(configs ...BuzzerConfigCb) *Buzzer {
	config := &BuzzerConfig{
		SampleRate: DefaultSampleRate,
		Frequency:  DefaultFrequency,
		Volume:     DefaultVolume,
		Logger:     slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	return &Buzzer{
		sampleRate: config.SampleRate,
		tone:       NewTone(config.SampleRate, config.Frequency, config.Volume),
		logger:     config.Logger,
	}
}

// Boot implements chip8vm.Buzzer.
func (b *Buzzer) Boot() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player != nil {
		return nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   b.sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("audio: cannot open device: %w", err)
	}
	<-ready

	b.ctx = ctx
	b.player = ctx.NewPlayer(b.tone)
	b.player.Play()
	b.logger.Debug("audio ready", slog.Int("sample_rate", b.sampleRate))

	return nil
}

// Play implements chip8vm.Buzzer.
func (b *Buzzer) Play() {
	b.tone.Open()
}

// Stop implements chip8vm.Buzzer.
func (b *Buzzer) Stop() {
	b.tone.Close()
}

func (b *Buzzer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tone.Close()
	if b.player == nil {
		return nil
	}

	err := b.player.Close()
	b.player = nil

	return err
}
