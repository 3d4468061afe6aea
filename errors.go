package chip8vm

import (
	"errors"
	"fmt"
)

var ErrCpuIsNotBooted = errors.New("the CPU has not been booted properly")

var ErrStackUnderflow = errors.New("stack underflow: try to pop an empty stack")
var ErrStackOverflow = errors.New("stack overflow: try to push to a full stack")

// LoadError is returned when a program image cannot be placed into memory.
type LoadError struct {
	Path string
	Size int
	Err  error
}

func (err *LoadError) Error() string {
	if err.Path != "" {
		return fmt.Sprintf("cannot load program %q (%d bytes): %v", err.Path, err.Size, err.Err)
	}
	return fmt.Sprintf("cannot load program (%d bytes): %v", err.Size, err.Err)
}

func (err *LoadError) Unwrap() error {
	return err.Err
}

// DecodeError reports an instruction word that matches no known opcode.
type DecodeError struct {
	OpCode uint16
	Pc     uint16
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("unknown opcode=%04X at PC=%03X", err.OpCode, err.Pc)
}

// AddressFault reports a memory access outside of 0x000-0xFFF.
type AddressFault struct {
	Addr uint16
	Op   string
}

func (err *AddressFault) Error() string {
	return fmt.Sprintf("address fault: %s at %04X is outside of memory", err.Op, err.Addr)
}
