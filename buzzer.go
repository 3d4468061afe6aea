package chip8vm

import "sync/atomic"

type Buzzer interface {
	// Boot initializes the component
	Boot() error
	Play()
	Stop()
}

// DummyBuzzer only records whether it should be playing
type DummyBuzzer struct {
	playing atomic.Bool
}

func NewDummyBuzzer() *DummyBuzzer {
	return &DummyBuzzer{}
}

// Boot implements Buzzer.
func (b *DummyBuzzer) Boot() error {
	return nil
}

// Play implements Buzzer.
func (b *DummyBuzzer) Play() {
	b.playing.Store(true)
}

// Stop implements Buzzer
func (b *DummyBuzzer) Stop() {
	b.playing.Store(false)
}

func (b *DummyBuzzer) IsPlaying() bool {
	return b.playing.Load()
}
