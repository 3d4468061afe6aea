package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
)

const (
	DefaultSampleRate = 44100
	DefaultFrequency  = 440
	DefaultVolume     = 0.2

	bytesPerSample = 4
)

// Tone is an endless mono float32 stream that is a square wave while the
// gate is open and silence otherwise
type Tone struct {
	sampleRate int
	frequency  float64
	volume     float32

	gate atomic.Bool

	mu    sync.Mutex
	phase float64
}

func NewTone(sampleRate int, frequency float64, volume float32) *Tone {
	return &Tone{
		sampleRate: sampleRate,
		frequency:  frequency,
		volume:     volume,
	}
}

func (t *Tone) Open() {
	t.gate.Store(true)
}

func (t *Tone) Close() {
	t.gate.Store(false)
}

func (t *Tone) IsOpen() bool {
	return t.gate.Load()
}

// Read implements io.Reader. It never returns an error.
func (t *Tone) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p) / bytesPerSample
	open := t.gate.Load()
	step := t.frequency / float64(t.sampleRate)

	for i := 0; i < n; i++ {
		var sample float32
		if open {
			sample = t.volume
			if t.phase >= 0.5 {
				sample = -t.volume
			}
		}
		t.phase += step
		if t.phase >= 1 {
			t.phase -= 1
		}

		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(sample))
	}

	return n * bytesPerSample, nil
}
