package chip8vm

type Hook func(cpu *Cpu)

// AddBeforeCycleHook adds a hook that will run before every cycle of the CPU
func (cpu *Cpu) AddBeforeCycleHook(h Hook) int {
	cpu.beforeCycleHooks = append(cpu.beforeCycleHooks, h)

	return len(cpu.beforeCycleHooks)
}

// AddAfterCycleHook adds a hook that will run after every cycle of the CPU
func (cpu *Cpu) AddAfterCycleHook(h Hook) int {
	cpu.afterCycleHooks = append(cpu.afterCycleHooks, h)

	return len(cpu.afterCycleHooks)
}

// AddAfterFrameHook adds a hook that will run after every 60 Hz frame
func (cpu *Cpu) AddAfterFrameHook(h Hook) int {
	cpu.afterFrameHooks = append(cpu.afterFrameHooks, h)

	return len(cpu.afterFrameHooks)
}

// AddErrorHook adds a hook that will run after a fatal error
func (cpu *Cpu) AddErrorHook(h Hook) int {
	cpu.errorHooks = append(cpu.errorHooks, h)

	return len(cpu.errorHooks)
}

func (cpu *Cpu) runBeforeCycleHooks() {
	cpu.runHooks(cpu.beforeCycleHooks)
}

func (cpu *Cpu) runAfterCycleHooks() {
	cpu.runHooks(cpu.afterCycleHooks)
}

func (cpu *Cpu) runAfterFrameHooks() {
	cpu.runHooks(cpu.afterFrameHooks)
}

func (cpu *Cpu) runErrorHooks() {
	cpu.runHooks(cpu.errorHooks)
}

func (cpu *Cpu) runHooks(hooks []Hook) {
	for _, h := range hooks {
		h(cpu)
	}
}
