package chip8vm

import (
	"errors"
	"fmt"
	"strings"
)

var ErrProgramDoesNotFitIntoMemory = errors.New("the program does not fit into memory")

const (
	MemorySize     = 4096
	StartOfProgram = 0x200
	StartOfFont    = 0x050
	FontSpriteSize = 5
	addressMask    = 0x0FFF
)

type Memory [MemorySize]byte

// NewMemory creates an empty memory of 4096 bytes
func NewMemory() *Memory {
	return &Memory{}
}

func (mem *Memory) Clone() *Memory {
	m := NewMemory()

	copy(m[:], mem[:])

	return m
}

func (mem *Memory) String() string {
	sb := strings.Builder{}

	sb.WriteString("[ ")
	for _, b := range mem[:StartOfProgram] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]\n")
	sb.WriteString("[ ")
	for _, b := range mem[StartOfProgram:] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]")

	return sb.String()
}

func (mem *Memory) IsEqual(other *Memory) bool {
	return *mem == *other
}

// Read returns the byte at addr
func (mem *Memory) Read(addr uint16) (byte, error) {
	if int(addr) >= MemorySize {
		return 0, &AddressFault{Addr: addr, Op: "read"}
	}

	return mem[addr], nil
}

// Write stores b at addr
func (mem *Memory) Write(addr uint16, b byte) error {
	if int(addr) >= MemorySize {
		return &AddressFault{Addr: addr, Op: "write"}
	}

	mem[addr] = b

	return nil
}

// ReadWord reads the big-endian instruction word at addr
func (mem *Memory) ReadWord(addr uint16) (uint16, error) {
	if int(addr)+1 >= MemorySize {
		return 0, &AddressFault{Addr: addr, Op: "fetch"}
	}

	return uint16(mem[addr])<<8 | uint16(mem[addr+1]), nil
}

// LoadProgram clears the memory, loads the font and places the program at
// the start-of-program address
func (mem *Memory) LoadProgram(program []byte) error {
	if StartOfProgram+len(program) > MemorySize {
		return &LoadError{Size: len(program), Err: ErrProgramDoesNotFitIntoMemory}
	}

	*mem = Memory{}
	loadCharactersInto(mem)
	copy(mem[StartOfProgram:], program)

	return nil
}

func loadCharactersInto(mem *Memory) {
	copy(mem[StartOfFont:], []byte{
		// 0
		0xF0, 0x90, 0x90, 0x90, 0xF0,
		// 1
		0x20, 0x60, 0x20, 0x20, 0x70,
		// 2
		0xF0, 0x10, 0xF0, 0x80, 0xF0,
		// 3
		0xF0, 0x10, 0xF0, 0x10, 0xF0,
		// 4
		0x90, 0x90, 0xF0, 0x10, 0x10,
		// 5
		0xF0, 0x80, 0xF0, 0x10, 0xF0,
		// 6
		0xF0, 0x80, 0xF0, 0x90, 0xF0,
		// 7
		0xF0, 0x10, 0x20, 0x40, 0x40,
		// 8
		0xF0, 0x90, 0xF0, 0x90, 0xF0,
		// 9
		0xF0, 0x90, 0xF0, 0x10, 0xF0,
		// A
		0xF0, 0x90, 0xF0, 0x90, 0x90,
		// B
		0xE0, 0x90, 0xE0, 0x90, 0xE0,
		// C
		0xF0, 0x80, 0x80, 0x80, 0xF0,
		// D
		0xE0, 0x90, 0x90, 0x90, 0xE0,
		// E
		0xF0, 0x80, 0xF0, 0x80, 0xF0,
		// F
		0xF0, 0x80, 0xF0, 0x80, 0x80})
}
