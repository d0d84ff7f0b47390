// Package options contains the program options.
package options

// DefaultInstructionsPerSecond is the instruction rate used when none is given.
const DefaultInstructionsPerSecond = 700

// DefaultScale is the default window scale factor.
const DefaultScale = 10

// Program options of the emulator.
type Program struct {
	Input string // ROM file to run

	InstructionsPerSecond int
	Scale                 float64
	Seed                  int64 // 0 selects a random seed

	Terminal bool // render in the terminal instead of a window
	Disasm   bool // print a listing of the ROM and exit

	ShiftInPlace bool
	KeepIndex    bool

	Debug bool
	Trace bool
	Quiet bool
}
