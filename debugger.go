package chip8vm

import "context"

// StepAction is what a Stepper tells the loop to do next
type StepAction byte

const (
	// StepNext runs a single instruction and waits again
	StepNext StepAction = iota
	// StepContinue leaves debug mode and runs freely
	StepContinue
	// StepQuit stops the loop
	StepQuit
)

func (a StepAction) String() string {
	switch a {
	case StepNext:
		return "next"
	case StepContinue:
		return "continue"
	case StepQuit:
		return "quit"
	}
	return "unknown"
}

// Stepper blocks the loop before every instruction while debugging
type Stepper interface {
	WaitStep(ctx context.Context) (StepAction, error)
}

// ChannelStepper is a Stepper fed by whoever holds the channel
type ChannelStepper chan StepAction

func NewChannelStepper() ChannelStepper {
	return make(ChannelStepper, 1)
}

// WaitStep implements Stepper.
func (s ChannelStepper) WaitStep(ctx context.Context) (StepAction, error) {
	select {
	case a, ok := <-s:
		if !ok {
			return StepQuit, nil
		}
		return a, nil
	case <-ctx.Done():
		return StepQuit, ctx.Err()
	}
}

// Send queues an action without blocking when one is already pending.
// Returns whether the action was taken.
func (s ChannelStepper) Send(a StepAction) bool {
	select {
	case s <- a:
		return true
	default:
		return false
	}
}
