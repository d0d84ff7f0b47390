package chip8

import (
	"errors"
	"fmt"
)

var (
	// ErrRomTooLarge is returned by LoadProgram when the rom does not fit in memory.
	ErrRomTooLarge = errors.New("rom is larger than program / data space")

	// ErrUnknownOpcode is reported for instruction words outside the CHIP-8 instruction set.
	// It is not fatal, execution continues with the next instruction.
	ErrUnknownOpcode = errors.New("unknown opcode")

	ErrStackOverflow     = errors.New("stack overflow")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrMemoryOutOfBounds = errors.New("memory access out of bounds")
	ErrInvalidKey        = errors.New("invalid key")

	// ErrHalted is returned by Step once a fatal fault stopped the machine.
	ErrHalted = errors.New("machine halted")
)

// Fault describes an error raised while executing the instruction at PC.
type Fault struct {
	Opcode uint16
	PC     uint16
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: opcode 0x%04X at 0x%03X", f.Err, f.Opcode, f.PC)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Fatal reports whether the fault stopped the machine.
func (f *Fault) Fatal() bool {
	return !errors.Is(f.Err, ErrUnknownOpcode)
}

// IsFatal reports whether err stops execution. Faults that only warn, such as an
// unknown opcode, return false.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Fatal()
	}
	return true
}
