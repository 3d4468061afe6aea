package chip8vm

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// StepResult tells the caller of Step what happened
type StepResult byte

const (
	// Executed means one instruction completed
	Executed StepResult = iota
	// Waiting means the CPU is blocked on FX0A until a key goes down
	Waiting
	// Halted means the program ended or a fatal error happened
	Halted
)

func (r StepResult) String() string {
	switch r {
	case Executed:
		return "executed"
	case Waiting:
		return "waiting"
	case Halted:
		return "halted"
	}
	return "unknown"
}

const (
	DefaultSpeed uint = 500
	MaxSpeed     uint = 5000
	MinSpeed     uint = 5

	pausePollInterval = TimerPeriod
	keyWaitInterval   = time.Millisecond
)

// CpuConfig holds the knobs of a Cpu
type CpuConfig struct {
	// SpeedInHz caps the number of instructions per second, 0 runs unthrottled
	SpeedInHz uint
	Quirks    Quirks
	Logger    *slog.Logger
	// Random is read one byte at a time by RND
	Random io.Reader
	// Stepper enables debug mode when set
	Stepper Stepper
	// Now is the wall clock driving the timers
	Now func() time.Time
}

type CpuConfigCb func(config *CpuConfig)

// Chip-8 CPU
type Cpu struct {
	Memory *Memory
	// V 8-bit registers
	V [16]byte
	// I 16-bit register (12-bit usable)
	I uint16
	// Program counter
	Pc uint16
	// Stack pointer
	Sp byte
	// Stack
	Stack [16]uint16
	// Delay and sound timers
	Timers Timers
	// Framebuffer mutated by CLS and DRW
	Screen        Screen
	isScreenDirty bool

	Display  Display
	Keyboard Keyboard
	Buzzer   Buzzer

	quirks  Quirks
	random  io.Reader
	logger  *slog.Logger
	stepper Stepper
	now     func() time.Time

	// speed and counters are read by frontends while the loop runs
	speedInHz atomic.Uint64
	step      atomic.Int64

	cycles atomic.Uint64
	frames atomic.Uint64

	// mu guards the machine state against frontends while the loop runs
	mu        sync.Mutex
	isBooted  bool
	isPaused  atomic.Bool
	debugging atomic.Bool
	lastTick  time.Time
	isBuzzing bool
	program   []byte

	waitingForKey  atomic.Bool
	keyDstRegister byte
	keysAtWait     KeyboardState
	halted         atomic.Bool

	errMu     sync.RWMutex
	lastError error

	// Hooks that run before every cycle
	beforeCycleHooks []Hook
	// Hooks that run after every cycle
	afterCycleHooks []Hook
	// Hooks that run after every frame
	afterFrameHooks []Hook
	// Hooks that run after an error
	errorHooks []Hook
}

func NewCpu(memory *Memory, display Display, keyboard Keyboard, buzzer Buzzer, configs ...CpuConfigCb) *Cpu {
	config := &CpuConfig{
		SpeedInHz: DefaultSpeed,
		Quirks:    0,
		Logger:    slog.Default(),
		Random:    rand.Reader,
		Stepper:   nil,
		Now:       time.Now,
	}
	for _, cb := range configs {
		cb(config)
	}

	cpu := &Cpu{
		Memory: memory,

		Display:  display,
		Keyboard: keyboard,
		Buzzer:   buzzer,

		quirks:  config.Quirks,
		random:  config.Random,
		logger:  config.Logger,
		stepper: config.Stepper,
		now:     config.Now,

		beforeCycleHooks: make([]Hook, 0),
		afterCycleHooks:  make([]Hook, 0),
		afterFrameHooks:  make([]Hook, 0),
		errorHooks:       make([]Hook, 0),
	}
	cpu.SetSpeedInHz(config.SpeedInHz)
	cpu.debugging.Store(config.Stepper != nil)
	cpu.resetState()

	return cpu
}

func (cpu *Cpu) IsRunning() bool {
	return !cpu.isPaused.Load()
}

func (cpu *Cpu) IsDebugging() bool {
	return cpu.debugging.Load()
}

func (cpu *Cpu) IsHalted() bool {
	return cpu.halted.Load() || cpu.Err() != nil
}

func (cpu *Cpu) IsWaitingForKey() bool {
	return cpu.waitingForKey.Load()
}

// Err returns the fatal error that stopped the CPU, if any
func (cpu *Cpu) Err() error {
	cpu.errMu.RLock()
	defer cpu.errMu.RUnlock()

	return cpu.lastError
}

func (cpu *Cpu) setErr(err error) {
	cpu.errMu.Lock()
	cpu.lastError = err
	cpu.errMu.Unlock()
}

func (cpu *Cpu) Quirks() Quirks {
	return cpu.quirks
}

func (cpu *Cpu) SpeedInHz() uint {
	return uint(cpu.speedInHz.Load())
}

// SetSpeedInHz caps the instructions per second. 0 removes the cap.
func (cpu *Cpu) SetSpeedInHz(inHz uint) {
	cpu.speedInHz.Store(uint64(inHz))
	if inHz == 0 {
		cpu.step.Store(0)
		return
	}
	cpu.step.Store(int64(time.Second / time.Duration(inHz)))
}

func (cpu *Cpu) Cycles() uint {
	return uint(cpu.cycles.Load())
}

func (cpu *Cpu) Frames() uint {
	return uint(cpu.frames.Load())
}

// Start resumes a paused loop
func (cpu *Cpu) Start() {
	cpu.isPaused.Store(false)
}

// Stop pauses the loop. The timers do not run while paused.
func (cpu *Cpu) Stop() {
	cpu.isPaused.Store(true)
}

// Boot initializes all the components
// If the CPU was already booted, this method is a noop
func (cpu *Cpu) Boot() error {
	if cpu.isBooted {
		return nil
	}

	if err := cpu.Display.Boot(); err != nil {
		return err
	}

	if err := cpu.Keyboard.Boot(); err != nil {
		return err
	}

	if err := cpu.Buzzer.Boot(); err != nil {
		return err
	}

	cpu.isBooted = true

	return nil
}

// LoadProgram loads the program into memory and sets the PC to the start-of-program address
func (cpu *Cpu) LoadProgram(program []byte) error {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()

	if err := cpu.Memory.LoadProgram(program); err != nil {
		return err
	}

	cpu.program = append(cpu.program[:0], program...)
	cpu.resetState()

	return nil
}

// LoadProgramFile reads the program image at path and loads it
func (cpu *Cpu) LoadProgramFile(path string) error {
	program, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}

	if err := cpu.LoadProgram(program); err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
		}
		return err
	}

	cpu.logger.Info("Program loaded", slog.String("path", path), slog.Int("size", len(program)))

	return nil
}

// Reset reloads the last program and clears every register, the stack,
// the timers and the screen
func (cpu *Cpu) Reset() {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()

	// the image already fit once
	_ = cpu.Memory.LoadProgram(cpu.program)
	cpu.resetState()

	if cpu.isBooted {
		cpu.render()
	}
}

func (cpu *Cpu) resetState() {
	cpu.V = [16]byte{}
	cpu.I = 0
	cpu.Pc = StartOfProgram
	cpu.Sp = 0
	cpu.Stack = [16]uint16{}
	cpu.Timers.Reset()
	cpu.Screen.Clear()
	cpu.isScreenDirty = true

	cpu.frames.Store(0)
	cpu.cycles.Store(0)
	cpu.waitingForKey.Store(false)
	cpu.halted.Store(false)
	cpu.setErr(nil)
}

// Step executes a single instruction.
// While FX0A is pending Step only polls the keyboard and returns Waiting.
// A fatal error is returned again by every later call.
func (cpu *Cpu) Step() (StepResult, error) {
	if err := cpu.Err(); err != nil {
		return Halted, err
	}

	if cpu.halted.Load() {
		return Halted, nil
	}

	if cpu.waitingForKey.Load() {
		if !cpu.pollKeyWait() {
			return Waiting, nil
		}
		cpu.Pc += 2
		return Executed, nil
	}

	opCode, err := cpu.Memory.ReadWord(cpu.Pc)
	if err != nil {
		return cpu.fail(err)
	}

	ins, err := Decode(opCode)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			decodeErr.Pc = cpu.Pc
		}
		return cpu.fail(err)
	}

	if cpu.logger.Enabled(context.Background(), slog.LevelDebug) {
		cpu.logger.Debug("exec",
			slog.String("pc", fmt.Sprintf("%03X", cpu.Pc)),
			slog.String("opcode", fmt.Sprintf("%04X", opCode)),
			slog.String("instr", ins.String()))
	}

	return cpu.execute(ins)
}

// pollKeyWait finishes FX0A once a key goes from released to pressed
// between two polls
func (cpu *Cpu) pollKeyWait() bool {
	state := cpu.Keyboard.State()
	for k, pressed := range state {
		if pressed && !cpu.keysAtWait[k] {
			cpu.V[cpu.keyDstRegister] = byte(k)
			cpu.waitingForKey.Store(false)
			return true
		}
	}

	cpu.keysAtWait = state

	return false
}

func (cpu *Cpu) fail(err error) (StepResult, error) {
	cpu.setErr(err)
	cpu.logger.Error("CPU halted", slog.String("pc", fmt.Sprintf("%03X", cpu.Pc)), slog.Any("error", err))
	cpu.runErrorHooks()

	return Halted, err
}

// LoopAtSpeed sets the speed and starts the loop
func (cpu *Cpu) LoopAtSpeed(ctx context.Context, speedInHz uint) error {
	cpu.SetSpeedInHz(speedInHz)
	return cpu.Loop(ctx)
}

// Loop runs the program until it halts, a fatal error happens, the stepper
// quits or the context is done.
func (cpu *Cpu) Loop(ctx context.Context) error {
	if !cpu.isBooted {
		return ErrCpuIsNotBooted
	}

	if err := cpu.Err(); err != nil {
		return err
	}

	cpu.mu.Lock()
	cpu.lastTick = cpu.now()
	cpu.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if cpu.isPaused.Load() {
			if err := sleep(ctx, pausePollInterval); err != nil {
				return err
			}
			cpu.mu.Lock()
			cpu.lastTick = cpu.now()
			cpu.mu.Unlock()
			continue
		}

		if cpu.debugging.Load() && cpu.stepper != nil {
			if quit, err := cpu.waitDebugStep(ctx); err != nil || quit {
				return err
			}
		}

		start := time.Now()
		result, err := cpu.runNextCycle()
		if err != nil {
			return err
		}
		if result == Halted {
			cpu.logger.Info("Program halted", slog.Uint64("cycles", cpu.cycles.Load()))
			return nil
		}

		delay := time.Duration(cpu.step.Load()) - time.Since(start)
		if result == Waiting && delay < keyWaitInterval {
			delay = keyWaitInterval
		}
		// Prevent the CPU from running faster than expected
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
}

// LoopOnce runs a single cycle bypassing the pause state
func (cpu *Cpu) LoopOnce() error {
	if !cpu.isBooted {
		return ErrCpuIsNotBooted
	}

	_, err := cpu.runNextCycle()

	return err
}

func (cpu *Cpu) waitDebugStep(ctx context.Context) (bool, error) {
	cpu.mu.Lock()
	err := cpu.render()
	cpu.mu.Unlock()
	if err != nil {
		return true, err
	}

	action, err := cpu.stepper.WaitStep(ctx)
	if err != nil {
		return true, err
	}

	cpu.logger.Debug("debug step", slog.String("action", action.String()))

	switch action {
	case StepQuit:
		return true, nil
	case StepContinue:
		cpu.debugging.Store(false)
	}

	return false, nil
}

// runNextCycle executes one instruction, then advances the timers by the
// wall time elapsed since the previous cycle and renders on frame ticks
func (cpu *Cpu) runNextCycle() (StepResult, error) {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()

	cpu.runBeforeCycleHooks()
	result, err := cpu.Step()
	if err != nil {
		return result, err
	}
	if result == Executed {
		cpu.cycles.Add(1)
	}
	cpu.runAfterCycleHooks()

	now := cpu.now()
	if cpu.lastTick.IsZero() {
		cpu.lastTick = now
	}
	ticks := cpu.Timers.Advance(now.Sub(cpu.lastTick))
	cpu.lastTick = now

	cpu.updateBuzzer()

	if ticks > 0 || result == Halted || !cpu.IsRunning() || cpu.debugging.Load() {
		if err := cpu.render(); err != nil {
			return Halted, err
		}
	}

	if ticks > 0 {
		cpu.frames.Add(uint64(ticks))
		cpu.runAfterFrameHooks()
	}

	return result, nil
}

func (cpu *Cpu) updateBuzzer() {
	active := cpu.Timers.SoundActive()
	if active == cpu.isBuzzing {
		return
	}

	cpu.isBuzzing = active
	if active {
		cpu.Buzzer.Play()
	} else {
		cpu.Buzzer.Stop()
	}
}

func (cpu *Cpu) render() error {
	if !cpu.isScreenDirty {
		return nil
	}

	cpu.isScreenDirty = false
	if err := cpu.Display.Render(cpu.Screen); err != nil {
		cpu.setErr(err)
		cpu.runErrorHooks()
		return err
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}

	return 0
}
