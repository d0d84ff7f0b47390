package chip8

import (
	"fmt"
	"io"
	"strings"

	cpu "github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// lookup returns the instruction definition matching opcode, nil if there is none.
func lookup(opcode uint16) *cpu.Instruction {
	firstNibble := (opcode & 0xF000) >> 12
	for _, op := range cpu.Opcodes[int(firstNibble)] {
		if op.Info.Mask&opcode == op.Info.Value {
			return op.Instruction
		}
	}
	return nil
}

// Disassemble returns the assembly form of opcode, for example "LD V0, $05".
// Words that are not an instruction are returned as a data word.
func Disassemble(opcode uint16) string {
	ins := lookup(opcode)
	if ins == nil {
		return fmt.Sprintf("DW $%04X", opcode)
	}
	name := strings.ToUpper(ins.Name)
	if params := operands(decode(opcode)); params != "" {
		return name + " " + params
	}
	return name
}

// operands formats the parameters of a decoded instruction.
func operands(in instruction) string {
	switch in.op {
	case 0x0:
		if in.nnn == 0x0E0 || in.nnn == 0x0EE {
			return "" // No parameters
		}
		return fmt.Sprintf("$%03X", in.nnn)
	case 0x1, 0x2:
		return fmt.Sprintf("$%03X", in.nnn)
	case 0x3, 0x4, 0x6, 0x7, 0xC:
		return fmt.Sprintf("V%X, $%02X", in.x, in.nn)
	case 0x5, 0x8, 0x9:
		return fmt.Sprintf("V%X, V%X", in.x, in.y)
	case 0xA:
		return fmt.Sprintf("I, $%03X", in.nnn)
	case 0xB:
		return fmt.Sprintf("V0, $%03X", in.nnn)
	case 0xD:
		return fmt.Sprintf("V%X, V%X, $%X", in.x, in.y, in.n)
	case 0xE:
		return fmt.Sprintf("V%X", in.x)
	case 0xF:
		return miscOperands(in)
	}
	return ""
}

func miscOperands(in instruction) string {
	switch in.nn {
	case 0x07:
		return fmt.Sprintf("V%X, DT", in.x)
	case 0x0A:
		return fmt.Sprintf("V%X, K", in.x)
	case 0x15:
		return fmt.Sprintf("DT, V%X", in.x)
	case 0x18:
		return fmt.Sprintf("ST, V%X", in.x)
	case 0x1E:
		return fmt.Sprintf("I, V%X", in.x)
	case 0x29:
		return fmt.Sprintf("F, V%X", in.x)
	case 0x33:
		return fmt.Sprintf("B, V%X", in.x)
	case 0x55:
		return fmt.Sprintf("[I], V%X", in.x)
	case 0x65:
		return fmt.Sprintf("V%X, [I]", in.x)
	}
	return fmt.Sprintf("V%X", in.x)
}

// Listing writes a linear disassembly of rom as it is laid out in memory from 0x200.
// Every word is decoded as an instruction, sprite data included.
func Listing(w io.Writer, rom []byte) error {
	addr := ProgramStart
	for i := 0; i+1 < len(rom); i += 2 {
		opcode := uint16(rom[i])<<8 | uint16(rom[i+1])
		if _, err := fmt.Fprintf(w, "$%03X  %04X  %s\n", addr+i, opcode, Disassemble(opcode)); err != nil {
			return fmt.Errorf("writing listing: %w", err)
		}
	}
	if len(rom)%2 == 1 {
		last := len(rom) - 1
		if _, err := fmt.Fprintf(w, "$%03X  %02X    DB $%02X\n", addr+last, rom[last], rom[last]); err != nil {
			return fmt.Errorf("writing listing: %w", err)
		}
	}
	return nil
}
