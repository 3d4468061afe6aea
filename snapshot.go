package chip8vm

import "fmt"

// Snapshot is a consistent copy of the machine state for frontends
type Snapshot struct {
	Pc     uint16
	OpCode uint16
	Instr  string
	I      uint16
	V      [16]byte
	Sp     byte
	Stack  [16]uint16
	Delay  byte
	Sound  byte
	Screen Screen
	Keys   KeyboardState

	Cycles        uint
	Frames        uint
	SpeedInHz     uint
	Running       bool
	Debugging     bool
	WaitingForKey bool
	Halted        bool
	Error         string
}

// Snapshot copies the state while holding the CPU lock, so it is safe to
// call while Loop runs in another goroutine
func (cpu *Cpu) Snapshot() Snapshot {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()

	return cpu.Capture()
}

// Capture copies the state without locking. Only hooks and the goroutine
// driving Step may call it.
func (cpu *Cpu) Capture() Snapshot {
	s := Snapshot{
		Pc:     cpu.Pc,
		I:      cpu.I,
		V:      cpu.V,
		Sp:     cpu.Sp,
		Stack:  cpu.Stack,
		Delay:  cpu.Timers.Delay,
		Sound:  cpu.Timers.Sound,
		Screen: cpu.Screen,
		Keys:   cpu.Keyboard.State(),

		Cycles:        cpu.Cycles(),
		Frames:        cpu.Frames(),
		SpeedInHz:     cpu.SpeedInHz(),
		Running:       cpu.IsRunning(),
		Debugging:     cpu.IsDebugging(),
		WaitingForKey: cpu.IsWaitingForKey(),
		Halted:        cpu.IsHalted(),
	}

	if err := cpu.Err(); err != nil {
		s.Error = err.Error()
	}

	if opCode, err := cpu.Memory.ReadWord(cpu.Pc); err == nil {
		s.OpCode = opCode
		if ins, err := Decode(opCode); err == nil {
			s.Instr = ins.String()
		} else {
			s.Instr = fmt.Sprintf("DW $%04X", opCode)
		}
	}

	return s
}

// SetDebugging switches step-by-step mode on or off. Turning it on
// requires a Stepper.
func (cpu *Cpu) SetDebugging(on bool) bool {
	if on && cpu.stepper == nil {
		return false
	}
	cpu.debugging.Store(on)

	return true
}
