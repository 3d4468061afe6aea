package chip8vm

import "time"

// TimerFrequency is the rate at which the delay and sound timers count down
const TimerFrequency = 60

// TimerPeriod is the wall-clock time between two decrements, rounded down to
// the nanosecond
const TimerPeriod = time.Second / TimerFrequency

// Timers holds the delay and sound counters.
// They count down on wall-clock time, independently of how many
// instructions run in between.
type Timers struct {
	Delay byte
	Sound byte

	// elapsed wall time scaled by TimerFrequency, so that one second of it
	// is exactly one tick
	elapsed time.Duration
}

// Advance adds d to the accumulated time and decrements both counters once
// per elapsed period. The remainder is carried to the next call.
// Returns the number of periods that elapsed.
func (t *Timers) Advance(d time.Duration) int {
	if d <= 0 {
		return 0
	}

	t.elapsed += d * TimerFrequency
	ticks := int(t.elapsed / time.Second)
	t.elapsed -= time.Duration(ticks) * time.Second

	t.Delay = decrement(t.Delay, ticks)
	t.Sound = decrement(t.Sound, ticks)

	return ticks
}

func (t *Timers) SoundActive() bool {
	return t.Sound > 0
}

func (t *Timers) DelayActive() bool {
	return t.Delay > 0
}

// Reset zeroes the counters and drops any carried time
func (t *Timers) Reset() {
	*t = Timers{}
}

func decrement(v byte, ticks int) byte {
	if ticks >= int(v) {
		return 0
	}
	return v - byte(ticks)
}
