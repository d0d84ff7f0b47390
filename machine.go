package chip8

import (
	"fmt"
)

const (
	// MemorySize is the size of the CHIP-8 address space in bytes.
	MemorySize = 4096

	// ProgramStart is the address a ROM is loaded to and where execution begins.
	ProgramStart = 0x200

	// MaxProgramSize is the largest ROM that fits between ProgramStart and the end of memory.
	MaxProgramSize = MemorySize - ProgramStart

	// RegisterCount is the number of general purpose V registers.
	RegisterCount = 16

	// StackDepth is the number of call frames.
	StackDepth = 16

	// KeyCount is the number of keys on the hex keypad.
	KeyCount = 16

	// DisplayWidth and DisplayHeight are the framebuffer dimensions in pixels.
	DisplayWidth  = 64
	DisplayHeight = 32
)

// flag is the index of VF, overwritten by carry, borrow and collision results.
const flag = 0xF

// machine is the complete mutable state of the virtual CPU.
type machine struct {
	// The Chip 8 has 4K memory in total.
	//
	// +---------------+= 0xFFF (4095) End of Chip-8 RAM
	// |               |
	// | 0x200 to 0xFFF|
	// |     Chip-8    |
	// | Program / Data|
	// |     Space     |
	// |               |
	// +---------------+= 0x200 (512) Start of most Chip-8 programs
	// | 0x050 to 0x1FF|
	// |    unused     |
	// +- - - - - - - -+= 0x050 (80)
	// | 0x000 to 0x04F|
	// |   font set    |
	// +---------------+= 0x000 (0) Start of Chip-8 RAM
	memory [MemorySize]byte

	// V0 to VE are general purpose, VF doubles as the carry flag.
	v [RegisterCount]byte

	// program counter, always points to the next instruction to fetch.
	pc uint16

	// index register, not range checked until it is dereferenced.
	ir uint16

	stack [StackDepth]uint16

	// sp indexes the next free stack slot (0-16).
	sp uint8

	// Both timers count down at 60 Hz when above zero.
	delayTimer, soundTimer uint8

	key [KeyCount]bool

	display [DisplayWidth * DisplayHeight]byte

	// displayDirty is set by CLS and DRW and cleared by the frontend after rendering.
	displayDirty bool
}

func newMachine() *machine {
	m := &machine{}
	m.reset()
	return m
}

// reset brings the machine back to its power-on state, font included.
func (m *machine) reset() {
	*m = machine{
		pc: ProgramStart,
	}
	copy(m.memory[:], fontset[:])
}

// load resets the machine and copies rom into memory at ProgramStart, so nothing of a
// previous program survives. Nothing is touched if the rom does not fit.
func (m *machine) load(rom []byte) error {
	if len(rom) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d fit", ErrRomTooLarge, len(rom), MaxProgramSize)
	}
	m.reset()
	copy(m.memory[ProgramStart:], rom)
	return nil
}

// inMemory reports whether the n bytes starting at addr are all addressable.
func inMemory(addr uint16, n int) bool {
	return int(addr)+n <= MemorySize
}
