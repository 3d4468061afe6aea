package chip8vm_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/guslan/chip8vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCpu(t *testing.T, program []byte, configs ...chip8vm.CpuConfigCb) (*chip8vm.Cpu, *chip8vm.InMemoryKeyboard) {
	t.Helper()

	kb := chip8vm.NewInMemoryKeyboard()
	cpu := chip8vm.NewCpu(chip8vm.NewMemory(), chip8vm.NewInMemoryDisplay(), kb, chip8vm.NewDummyBuzzer(), configs...)
	require.NoError(t, cpu.LoadProgram(program))
	require.NoError(t, cpu.Boot())

	return cpu, kb
}

func runSteps(t *testing.T, cpu *chip8vm.Cpu, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		_, err := cpu.Step()
		require.NoError(t, err)
	}
}

// every fixture loads the opcode at 0x200 and executes it once
var opcodeTestTable = []struct {
	name   string
	opcode uint16
	before func(cpu *chip8vm.Cpu)
	assert func(t *testing.T, cpu *chip8vm.Cpu)
}{
	{
		"CLS",
		0x00E0,
		func(cpu *chip8vm.Cpu) {
			cpu.Screen.DrawSprite(0, 0, []byte{0xFF})
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, chip8vm.Screen{}, cpu.Screen)
			assert.Equal(t, uint16(0x202), cpu.Pc)
		},
	},
	{
		"RET",
		0x00EE,
		func(cpu *chip8vm.Cpu) {
			cpu.Stack[0] = 0x300
			cpu.Sp = 1
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0), cpu.Sp)
			assert.Equal(t, uint16(0x300), cpu.Pc)
		},
	},
	{
		"JP",
		0x1234,
		nil,
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x234), cpu.Pc)
		},
	},
	{
		"CALL",
		0x2208,
		nil,
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x208), cpu.Pc)
			assert.Equal(t, byte(1), cpu.Sp)
			assert.Equal(t, uint16(0x202), cpu.Stack[0])
		},
	},
	{
		"SE Vx, byte taken",
		0x3012,
		func(cpu *chip8vm.Cpu) {
			cpu.V[0] = 0x12
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x204), cpu.Pc)
		},
	},
	{
		"SE Vx, byte not taken",
		0x3012,
		nil,
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x202), cpu.Pc)
		},
	},
	{
		"SNE Vx, byte taken",
		0x4112,
		nil,
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x204), cpu.Pc)
		},
	},
	{
		"SNE Vx, byte not taken",
		0x4112,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x12
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x202), cpu.Pc)
		},
	},
	{
		"SE Vx, Vy",
		0x5120,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x33
			cpu.V[2] = 0x33
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x204), cpu.Pc)
		},
	},
	{
		"LD Vx, byte",
		0x6A42,
		nil,
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x42), cpu.V[0xA])
		},
	},
	{
		"ADD Vx, byte wraps without touching VF",
		0x7102,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0xFF
			cpu.V[0xF] = 0x07
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x01), cpu.V[1])
			assert.Equal(t, byte(0x07), cpu.V[0xF])
		},
	},
	{
		"LD Vx, Vy",
		0x8120,
		func(cpu *chip8vm.Cpu) {
			cpu.V[2] = 0x99
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x99), cpu.V[1])
		},
	},
	{
		"OR",
		0x8121,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0xF0
			cpu.V[2] = 0x0F
			cpu.V[0xF] = 0x05
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0xFF), cpu.V[1])
			assert.Equal(t, byte(0x05), cpu.V[0xF])
		},
	},
	{
		"AND",
		0x8122,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0xF3
			cpu.V[2] = 0x3F
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x33), cpu.V[1])
		},
	},
	{
		"XOR",
		0x8123,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0xFF
			cpu.V[2] = 0x0F
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0xF0), cpu.V[1])
		},
	},
	{
		"ADD Vx, Vy with carry",
		0x8124,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0xFF
			cpu.V[2] = 0x02
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x01), cpu.V[1])
			assert.Equal(t, byte(1), cpu.V[0xF])
		},
	},
	{
		"ADD Vx, Vy without carry",
		0x8124,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x10
			cpu.V[2] = 0x02
			cpu.V[0xF] = 1
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x12), cpu.V[1])
			assert.Equal(t, byte(0), cpu.V[0xF])
		},
	},
	{
		"ADD VF, Vy keeps the carry",
		0x8F14,
		func(cpu *chip8vm.Cpu) {
			cpu.V[0xF] = 0xFF
			cpu.V[1] = 0x02
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(1), cpu.V[0xF])
		},
	},
	{
		"SUB without borrow",
		0x8125,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x05
			cpu.V[2] = 0x03
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x02), cpu.V[1])
			assert.Equal(t, byte(1), cpu.V[0xF])
		},
	},
	{
		"SUB equal operands",
		0x8125,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x05
			cpu.V[2] = 0x05
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x00), cpu.V[1])
			assert.Equal(t, byte(1), cpu.V[0xF])
		},
	},
	{
		"SUB with borrow",
		0x8125,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x03
			cpu.V[2] = 0x05
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0xFE), cpu.V[1])
			assert.Equal(t, byte(0), cpu.V[0xF])
		},
	},
	{
		"SHR",
		0x8126,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x05
			cpu.V[2] = 0xF0
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x02), cpu.V[1])
			assert.Equal(t, byte(1), cpu.V[0xF])
		},
	},
	{
		"SUBN without borrow",
		0x8127,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x03
			cpu.V[2] = 0x05
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x02), cpu.V[1])
			assert.Equal(t, byte(1), cpu.V[0xF])
		},
	},
	{
		"SUBN with borrow",
		0x8127,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x05
			cpu.V[2] = 0x03
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0xFE), cpu.V[1])
			assert.Equal(t, byte(0), cpu.V[0xF])
		},
	},
	{
		"SHL",
		0x812E,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0x81
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x02), cpu.V[1])
			assert.Equal(t, byte(1), cpu.V[0xF])
		},
	},
	{
		"SHL into VF keeps the flag",
		0x8F0E,
		func(cpu *chip8vm.Cpu) {
			cpu.V[0xF] = 0x40
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0), cpu.V[0xF])
		},
	},
	{
		"SNE Vx, Vy",
		0x9120,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 1
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x204), cpu.Pc)
		},
	},
	{
		"LD I, addr",
		0xA123,
		nil,
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x123), cpu.I)
		},
	},
	{
		"JP V0, addr",
		0xB300,
		func(cpu *chip8vm.Cpu) {
			cpu.V[0] = 0x10
			cpu.V[3] = 0x20
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x310), cpu.Pc)
		},
	},
	{
		"DRW",
		0xD015,
		func(cpu *chip8vm.Cpu) {
			cpu.I = chip8vm.StartOfFont
			cpu.V[0] = 1
			cpu.V[1] = 2
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			// top row of the "0" glyph
			for x := 1; x < 5; x++ {
				assert.True(t, cpu.Screen.Pixel(x, 2))
			}
			assert.False(t, cpu.Screen.Pixel(0, 2))
			assert.Equal(t, byte(0), cpu.V[0xF])
		},
	},
	{
		"DRW collision",
		0xD001,
		func(cpu *chip8vm.Cpu) {
			cpu.I = chip8vm.StartOfFont
			cpu.Screen.DrawSprite(0, 0, []byte{0x80})
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.False(t, cpu.Screen.Pixel(0, 0))
			assert.True(t, cpu.Screen.Pixel(1, 0))
			assert.Equal(t, byte(1), cpu.V[0xF])
		},
	},
	{
		"SKP pressed",
		0xE19E,
		func(cpu *chip8vm.Cpu) {
			cpu.V[1] = 0xA
			cpu.Keyboard.(*chip8vm.InMemoryKeyboard).Press(0xA)
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x204), cpu.Pc)
		},
	},
	{
		"SKP released",
		0xE19E,
		nil,
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x202), cpu.Pc)
		},
	},
	{
		"SKNP released",
		0xE1A1,
		nil,
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x204), cpu.Pc)
		},
	},
	{
		"SKNP pressed",
		0xE1A1,
		func(cpu *chip8vm.Cpu) {
			cpu.Keyboard.(*chip8vm.InMemoryKeyboard).Press(0)
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x202), cpu.Pc)
		},
	},
	{
		"LD Vx, DT",
		0xF207,
		func(cpu *chip8vm.Cpu) {
			cpu.Timers.Delay = 0x30
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x30), cpu.V[2])
		},
	},
	{
		"LD DT, Vx",
		0xF215,
		func(cpu *chip8vm.Cpu) {
			cpu.V[2] = 0x31
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x31), cpu.Timers.Delay)
		},
	},
	{
		"LD ST, Vx",
		0xF218,
		func(cpu *chip8vm.Cpu) {
			cpu.V[2] = 0x32
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, byte(0x32), cpu.Timers.Sound)
		},
	},
	{
		"ADD I, Vx",
		0xF31E,
		func(cpu *chip8vm.Cpu) {
			cpu.I = 0x100
			cpu.V[3] = 0x05
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x105), cpu.I)
		},
	},
	{
		"ADD I, Vx wraps to 12 bits",
		0xF31E,
		func(cpu *chip8vm.Cpu) {
			cpu.I = 0xFFE
			cpu.V[3] = 0x05
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x003), cpu.I)
		},
	},
	{
		"LD F, Vx",
		0xF429,
		func(cpu *chip8vm.Cpu) {
			cpu.V[4] = 0xA
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, uint16(0x082), cpu.I)
		},
	},
	{
		"LD B, Vx",
		0xF533,
		func(cpu *chip8vm.Cpu) {
			cpu.I = 0x300
			cpu.V[5] = 254
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, []byte{2, 5, 4}, cpu.Memory[0x300:0x303])
		},
	},
	{
		"LD [I], Vx",
		0xF255,
		func(cpu *chip8vm.Cpu) {
			cpu.I = 0x300
			cpu.V[0], cpu.V[1], cpu.V[2], cpu.V[3] = 1, 2, 3, 4
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, []byte{1, 2, 3, 0}, cpu.Memory[0x300:0x304])
			assert.Equal(t, uint16(0x300), cpu.I)
		},
	},
	{
		"LD Vx, [I]",
		0xF265,
		func(cpu *chip8vm.Cpu) {
			cpu.I = 0x300
			copy(cpu.Memory[0x300:], []byte{9, 8, 7, 6})
		},
		func(t *testing.T, cpu *chip8vm.Cpu) {
			assert.Equal(t, [4]byte{9, 8, 7, 0}, [4]byte(cpu.V[:4]))
			assert.Equal(t, uint16(0x300), cpu.I)
		},
	},
}

func TestExecOpcodes(t *testing.T) {
	for _, test := range opcodeTestTable {
		t.Run(fmt.Sprintf("%s[%04X]", test.name, test.opcode), func(t *testing.T) {
			program := make([]byte, 2)
			binary.BigEndian.PutUint16(program, test.opcode)
			cpu, _ := newTestCpu(t, program)

			if test.before != nil {
				test.before(cpu)
			}

			result, err := cpu.Step()
			require.NoError(t, err)
			assert.Equal(t, chip8vm.Executed, result)

			test.assert(t, cpu)
		})
	}
}

func TestQuirks(t *testing.T) {
	t.Run("vf reset", func(t *testing.T) {
		cpu, _ := newTestCpu(t, []byte{0x81, 0x21}, func(c *chip8vm.CpuConfig) {
			c.Quirks = chip8vm.QuirkVfReset
		})
		cpu.V[0xF] = 1
		runSteps(t, cpu, 1)
		assert.Equal(t, byte(0), cpu.V[0xF])
	})

	t.Run("shift uses vy", func(t *testing.T) {
		cpu, _ := newTestCpu(t, []byte{0x81, 0x26}, func(c *chip8vm.CpuConfig) {
			c.Quirks = chip8vm.QuirkShiftUsesVy
		})
		cpu.V[1] = 0xFF
		cpu.V[2] = 0x04
		runSteps(t, cpu, 1)
		assert.Equal(t, byte(0x02), cpu.V[1])
		assert.Equal(t, byte(0), cpu.V[0xF])
	})

	t.Run("jump uses vx", func(t *testing.T) {
		cpu, _ := newTestCpu(t, []byte{0xB3, 0x00}, func(c *chip8vm.CpuConfig) {
			c.Quirks = chip8vm.QuirkJumpUsesVx
		})
		cpu.V[0] = 0x10
		cpu.V[3] = 0x20
		runSteps(t, cpu, 1)
		assert.Equal(t, uint16(0x320), cpu.Pc)
	})

	t.Run("memory moves index", func(t *testing.T) {
		cpu, _ := newTestCpu(t, []byte{0xF2, 0x55}, func(c *chip8vm.CpuConfig) {
			c.Quirks = chip8vm.QuirkMemoryMovesIndex
		})
		cpu.I = 0x300
		runSteps(t, cpu, 1)
		assert.Equal(t, uint16(0x303), cpu.I)
	})
}

func TestParseQuirks(t *testing.T) {
	q, err := chip8vm.ParseQuirks("shift, Memory,")
	require.NoError(t, err)
	assert.True(t, q.Has(chip8vm.QuirkShiftUsesVy))
	assert.True(t, q.Has(chip8vm.QuirkMemoryMovesIndex))
	assert.False(t, q.Has(chip8vm.QuirkVfReset))

	_, err = chip8vm.ParseQuirks("wrap")
	assert.Error(t, err)
}

func TestRandomUsesReader(t *testing.T) {
	cpu, _ := newTestCpu(t, []byte{0xC0, 0x0F, 0xC1, 0xF0}, func(c *chip8vm.CpuConfig) {
		c.Random = bytes.NewReader([]byte{0xAB, 0xCD})
	})

	runSteps(t, cpu, 2)

	assert.Equal(t, byte(0x0B), cpu.V[0])
	assert.Equal(t, byte(0xC0), cpu.V[1])
}

func TestRandomReaderExhausted(t *testing.T) {
	cpu, _ := newTestCpu(t, []byte{0xC0, 0xFF}, func(c *chip8vm.CpuConfig) {
		c.Random = bytes.NewReader(nil)
	})

	result, err := cpu.Step()
	assert.Equal(t, chip8vm.Halted, result)
	assert.Error(t, err)
}

func TestSetRegistersThenHalt(t *testing.T) {
	cpu, _ := newTestCpu(t, []byte{0x60, 0x05, 0x61, 0x07, 0x00, 0x00})

	runSteps(t, cpu, 2)
	result, err := cpu.Step()
	require.NoError(t, err)

	assert.Equal(t, chip8vm.Halted, result)
	assert.Equal(t, byte(0x05), cpu.V[0])
	assert.Equal(t, byte(0x07), cpu.V[1])
	assert.True(t, cpu.IsHalted())

	// halting is sticky
	result, err = cpu.Step()
	require.NoError(t, err)
	assert.Equal(t, chip8vm.Halted, result)
}

func TestCallAndReturn(t *testing.T) {
	program := []byte{
		0x22, 0x06, // CALL $206
		0x60, 0x01, // LD V0, $01
		0x00, 0x00, // halt
		0x61, 0x02, // LD V1, $02
		0x00, 0xEE, // RET
	}
	cpu, _ := newTestCpu(t, program)

	runSteps(t, cpu, 3)
	assert.Equal(t, uint16(0x202), cpu.Pc)
	assert.Equal(t, byte(0), cpu.Sp)
	runSteps(t, cpu, 1)

	result, err := cpu.Step()
	require.NoError(t, err)
	assert.Equal(t, chip8vm.Halted, result)
	assert.Equal(t, byte(1), cpu.V[0])
	assert.Equal(t, byte(2), cpu.V[1])
}

func TestStackOverflow(t *testing.T) {
	// CALL $200 forever
	cpu, _ := newTestCpu(t, []byte{0x22, 0x00})

	runSteps(t, cpu, 16)
	result, err := cpu.Step()

	assert.Equal(t, chip8vm.Halted, result)
	assert.ErrorIs(t, err, chip8vm.ErrStackOverflow)
	assert.Equal(t, byte(16), cpu.Sp)
}

func TestStackUnderflow(t *testing.T) {
	cpu, _ := newTestCpu(t, []byte{0x00, 0xEE})

	_, err := cpu.Step()

	assert.ErrorIs(t, err, chip8vm.ErrStackUnderflow)
}

func TestUnknownOpCodeIsSticky(t *testing.T) {
	cpu, _ := newTestCpu(t, []byte{0x60, 0x01, 0x51, 0x21})
	runSteps(t, cpu, 1)

	result, err := cpu.Step()
	assert.Equal(t, chip8vm.Halted, result)

	var decodeErr *chip8vm.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, uint16(0x5121), decodeErr.OpCode)
	assert.Equal(t, uint16(0x202), decodeErr.Pc)

	_, again := cpu.Step()
	assert.Equal(t, err, again)
	assert.Equal(t, err, cpu.Err())
}

func TestAddressFault(t *testing.T) {
	// LD I, $FFF then LD V1, [I] reads 0xFFF and 0x1000
	cpu, _ := newTestCpu(t, []byte{0xAF, 0xFF, 0xF1, 0x65})
	runSteps(t, cpu, 1)

	_, err := cpu.Step()

	var fault *chip8vm.AddressFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, uint16(0x1000), fault.Addr)
}

func TestFetchPastEndOfMemory(t *testing.T) {
	cpu, _ := newTestCpu(t, []byte{0x1F, 0xFF})
	runSteps(t, cpu, 1)

	_, err := cpu.Step()

	var fault *chip8vm.AddressFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "fetch", fault.Op)
}

func TestLoadProgramLimits(t *testing.T) {
	cpu := chip8vm.NewCpu(chip8vm.NewMemory(), chip8vm.NewDummyDisplay(), chip8vm.NewInMemoryKeyboard(), chip8vm.NewDummyBuzzer())

	require.NoError(t, cpu.LoadProgram(make([]byte, chip8vm.MemorySize-chip8vm.StartOfProgram)))

	err := cpu.LoadProgram(make([]byte, chip8vm.MemorySize-chip8vm.StartOfProgram+1))
	var loadErr *chip8vm.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, chip8vm.ErrProgramDoesNotFitIntoMemory)
	assert.Equal(t, 3585, loadErr.Size)
}

func TestLoadProgramFileMissing(t *testing.T) {
	cpu := chip8vm.NewCpu(chip8vm.NewMemory(), chip8vm.NewDummyDisplay(), chip8vm.NewInMemoryKeyboard(), chip8vm.NewDummyBuzzer())

	err := cpu.LoadProgramFile(t.TempDir() + "/missing.ch8")

	var loadErr *chip8vm.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Path, "missing.ch8")
}

func TestDrawFixtureFromProgramData(t *testing.T) {
	program := []byte{0xA2, 0x06, 0xD0, 0x05, 0x00, 0x00, 0xFF, 0xC3}
	cpu, _ := newTestCpu(t, program)

	runSteps(t, cpu, 1)
	assert.Equal(t, uint16(0x206), cpu.I)

	runSteps(t, cpu, 1)
	want := []string{
		"########",
		"##....##",
		"........",
		"........",
		"........",
	}
	for y, row := range want {
		for x, c := range row {
			assert.Equal(t, c == '#', cpu.Screen.Pixel(x, y), "pixel (%d, %d)", x, y)
		}
	}
	assert.Equal(t, byte(0), cpu.V[0xF])

	result, err := cpu.Step()
	require.NoError(t, err)
	assert.Equal(t, chip8vm.Halted, result)
	assert.Equal(t, uint16(0x204), cpu.Pc)
}

func TestDrawLetterA(t *testing.T) {
	program := []byte{
		0xA2, 0x06, // LD I, $206
		0xD0, 0x15, // DRW V0, V1, 5
		0x00, 0x00, // halt
		0xF0, 0x90, 0xF0, 0x90, 0x90,
	}
	cpu, _ := newTestCpu(t, program)
	runSteps(t, cpu, 2)

	want := []string{
		"####",
		"#..#",
		"####",
		"#..#",
		"#..#",
	}
	for y, row := range want {
		for x, c := range row {
			assert.Equal(t, c == '#', cpu.Screen.Pixel(x, y), "pixel (%d, %d)", x, y)
		}
	}
	assert.Equal(t, byte(0), cpu.V[0xF])

	// drawing again erases and reports the collision
	cpu.Pc = 0x202
	runSteps(t, cpu, 1)
	assert.Equal(t, chip8vm.Screen{}, cpu.Screen)
	assert.Equal(t, byte(1), cpu.V[0xF])
}

func TestWaitForKey(t *testing.T) {
	cpu, kb := newTestCpu(t, []byte{0xF3, 0x0A, 0x00, 0x00})

	result, err := cpu.Step()
	require.NoError(t, err)
	assert.Equal(t, chip8vm.Waiting, result)
	assert.True(t, cpu.IsWaitingForKey())

	result, _ = cpu.Step()
	assert.Equal(t, chip8vm.Waiting, result)
	assert.Equal(t, uint16(0x200), cpu.Pc)

	kb.Press(7)
	result, err = cpu.Step()
	require.NoError(t, err)
	assert.Equal(t, chip8vm.Executed, result)
	assert.Equal(t, byte(7), cpu.V[3])
	assert.Equal(t, uint16(0x202), cpu.Pc)
	assert.False(t, cpu.IsWaitingForKey())
}

func TestWaitForKeyNeedsANewPress(t *testing.T) {
	cpu, kb := newTestCpu(t, []byte{0xF3, 0x0A, 0x00, 0x00})
	kb.Press(5)

	result, _ := cpu.Step()
	assert.Equal(t, chip8vm.Waiting, result)

	// still held since before the wait
	result, _ = cpu.Step()
	assert.Equal(t, chip8vm.Waiting, result)

	kb.Release(5)
	result, _ = cpu.Step()
	assert.Equal(t, chip8vm.Waiting, result)

	kb.Press(5)
	result, _ = cpu.Step()
	assert.Equal(t, chip8vm.Executed, result)
	assert.Equal(t, byte(5), cpu.V[3])
}

func TestReset(t *testing.T) {
	// LD V0, $09 ; LD [I], V0 over the program ; halt
	cpu, _ := newTestCpu(t, []byte{0x60, 0x09, 0xA2, 0x00, 0xF0, 0x55, 0x00, 0x00})
	cpu.Timers.Delay = 10
	runSteps(t, cpu, 3)
	assert.Equal(t, byte(0x09), cpu.Memory[0x200])

	cpu.Reset()

	assert.Equal(t, uint16(chip8vm.StartOfProgram), cpu.Pc)
	assert.Equal(t, [16]byte{}, cpu.V)
	assert.Equal(t, uint16(0), cpu.I)
	assert.Equal(t, byte(0), cpu.Timers.Delay)
	assert.Equal(t, byte(0x60), cpu.Memory[0x200])
	assert.False(t, cpu.IsHalted())
}

func TestSnapshot(t *testing.T) {
	cpu, kb := newTestCpu(t, []byte{0x6A, 0x42, 0x51, 0x21})
	kb.Press(0xC)
	require.NoError(t, cpu.LoopOnce())

	s := cpu.Snapshot()

	assert.Equal(t, uint16(0x202), s.Pc)
	assert.Equal(t, uint16(0x5121), s.OpCode)
	assert.Equal(t, "DW $5121", s.Instr)
	assert.Equal(t, byte(0x42), s.V[0xA])
	assert.True(t, s.Keys[0xC])
	assert.Equal(t, uint(1), s.Cycles)
	assert.Empty(t, s.Error)
}

func TestHooks(t *testing.T) {
	cpu, _ := newTestCpu(t, []byte{0x60, 0x01, 0x51, 0x21})
	var before, after, failed int
	cpu.AddBeforeCycleHook(func(*chip8vm.Cpu) { before++ })
	cpu.AddAfterCycleHook(func(*chip8vm.Cpu) { after++ })
	cpu.AddErrorHook(func(c *chip8vm.Cpu) {
		failed++
		assert.Error(t, c.Err())
	})

	require.NoError(t, cpu.LoopOnce())
	assert.Error(t, cpu.LoopOnce())

	assert.Equal(t, 2, before)
	assert.Equal(t, 1, after)
	assert.Equal(t, 1, failed)
}
