// Package chip8 implements a CHIP-8 virtual machine.
//
// The VM owns the complete machine state: 4K memory with the built-in font at 0x000, sixteen
// V registers, the index register, a 16 level call stack, the delay and sound timers, the hex
// keypad and a 64x32 monochrome framebuffer. A frontend drives it by calling Step at its
// instruction rate and TickTimers at 60 Hz, forwarding key events through SetKey and rendering
// Display whenever DisplayDirty reports a change.
package chip8

import (
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"
)

// State is the execution state of the VM.
type State int

const (
	// Running executes one instruction per Step.
	Running State = iota
	// AwaitingKey stalls on an Fx0A instruction until a key is pressed.
	AwaitingKey
	// Halted is entered after a fatal fault, Step returns ErrHalted.
	Halted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case AwaitingKey:
		return "awaiting key"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// VM is a CHIP-8 interpreter. It is not safe for concurrent use.
type VM struct {
	m *machine

	state State

	quirks Quirks
	random func(n int) int

	logger *log.Logger
	trace  bool
}

// New returns a VM in its power-on state with the font loaded.
func New(opts ...Option) *VM {
	vm := &VM{
		m: newMachine(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.random == nil {
		vm.random = seededRandom(newSeed())
	}
	if vm.logger == nil {
		vm.logger = log.NewWithConfig(log.DefaultConfig())
	}
	return vm
}

func (vm *VM) String() string {
	return fmt.Sprintf("[PC: 0x%03X, SP: %d, I: 0x%03X, state: %s]", vm.m.pc, vm.m.sp, vm.m.ir, vm.state)
}

// Reset reinitializes the machine to its power-on state. The loaded program is cleared.
func (vm *VM) Reset() {
	vm.m.reset()
	vm.state = Running
}

// LoadProgram resets the VM to its power-on state and copies rom into memory starting
// at 0x200. On error the VM is left unchanged.
func (vm *VM) LoadProgram(rom []byte) error {
	if err := vm.m.load(rom); err != nil {
		return err
	}
	vm.state = Running
	return nil
}

// ReadRomFile loads the rom stored at path.
func (vm *VM) ReadRomFile(path string) error {
	rom, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rom file: %w", err)
	}
	if err := vm.LoadProgram(rom); err != nil {
		return fmt.Errorf("loading rom file '%s': %w", path, err)
	}
	return nil
}

// SetKey records the state of keypad key index (0x0-0xF).
func (vm *VM) SetKey(index int, pressed bool) error {
	if index < 0 || index >= KeyCount {
		return fmt.Errorf("%w: %d", ErrInvalidKey, index)
	}
	vm.m.key[index] = pressed
	return nil
}

// TickTimers counts both timers down by one. It must be called at 60 Hz independent of the
// instruction rate. The result is true when the sound timer just reached zero.
func (vm *VM) TickTimers() (soundStopped bool) {
	if vm.m.delayTimer > 0 {
		vm.m.delayTimer--
	}
	if vm.m.soundTimer > 0 {
		vm.m.soundTimer--
		return vm.m.soundTimer == 0
	}
	return false
}

// State returns the execution state.
func (vm *VM) State() State { return vm.state }

// PC returns the address of the next instruction.
func (vm *VM) PC() uint16 { return vm.m.pc }

// Index returns the I register.
func (vm *VM) Index() uint16 { return vm.m.ir }

// Register returns V[i]. Indexes outside 0x0-0xF read as zero.
func (vm *VM) Register(i int) byte {
	if i < 0 || i >= RegisterCount {
		return 0
	}
	return vm.m.v[i]
}

// DelayTimer returns the current delay timer value.
func (vm *VM) DelayTimer() uint8 { return vm.m.delayTimer }

// SoundTimer returns the current sound timer value.
func (vm *VM) SoundTimer() uint8 { return vm.m.soundTimer }

// SoundActive reports whether the buzzer should sound.
func (vm *VM) SoundActive() bool { return vm.m.soundTimer > 0 }

// Display returns a copy of the framebuffer, one byte per pixel in row-major order.
func (vm *VM) Display() [DisplayWidth * DisplayHeight]byte { return vm.m.display }

// Pixel reports whether the pixel at (x, y) is lit. Coordinates outside the screen are unlit.
func (vm *VM) Pixel(x, y int) bool {
	if x < 0 || x >= DisplayWidth || y < 0 || y >= DisplayHeight {
		return false
	}
	return vm.m.display[y*DisplayWidth+x] == 1
}

// DisplayDirty reports whether the framebuffer changed since ClearDisplayDirty was called.
func (vm *VM) DisplayDirty() bool { return vm.m.displayDirty }

// ClearDisplayDirty marks the framebuffer as rendered.
func (vm *VM) ClearDisplayDirty() { vm.m.displayDirty = false }

// instruction holds the fields of a decoded opcode.
//
//	op  = bits 15-12
//	x   = bits 11-8
//	y   = bits 7-4
//	n   = bits 3-0
//	nn  = bits 7-0
//	nnn = bits 11-0
type instruction struct {
	opcode uint16
	op     uint8
	x, y   uint8
	n      uint8
	nn     uint8
	nnn    uint16
}

func decode(opcode uint16) instruction {
	return instruction{
		opcode: opcode,
		op:     uint8(opcode >> 12),
		x:      uint8(opcode>>8) & 0x0F,
		y:      uint8(opcode>>4) & 0x0F,
		n:      uint8(opcode) & 0x0F,
		nn:     uint8(opcode),
		nnn:    opcode & 0x0FFF,
	}
}

func (vm *VM) fetchOpCode() uint16 {
	// To demonstrate how this works we will be using opcode `0xA2F0`.
	// The following:
	// memory[pc]     == 0xA2
	// memory[pc + 1] == 0xF0
	//
	// 	   0xA2   0xA2 << 8 = 0xA200   HEX
	// 10100010   1010001000000000     BIN
	first := uint16(vm.m.memory[vm.m.pc]) << 8
	second := uint16(vm.m.memory[vm.m.pc+1])

	// 	1010001000000000   // 0xA200
	//  |      11110000    // 0xF0 (0x00F0)
	// ------------------
	// 1010001011110000    // 0xA2F0
	return first | second
}

// Step executes one fetch/decode/execute cycle.
//
// The returned error is a *Fault. An unknown opcode is reported but the VM keeps running,
// every other fault halts it and later calls return ErrHalted.
func (vm *VM) Step() error {
	if vm.state == Halted {
		return ErrHalted
	}

	pc := vm.m.pc
	if !inMemory(pc, 2) {
		return vm.fault(0, pc, ErrMemoryOutOfBounds)
	}
	opcode := vm.fetchOpCode()
	if vm.trace {
		vm.logger.Trace("Execute",
			log.Hex("pc", pc),
			log.Hex("opcode", opcode),
			log.String("instruction", Disassemble(opcode)))
	}

	advance, err := vm.execute(decode(opcode))
	if err != nil {
		return vm.fault(opcode, pc, err)
	}
	if advance {
		vm.m.pc += 2
	}
	return nil
}

// fault wraps err for the instruction at pc. Fatal faults halt the VM, an unknown opcode
// is skipped.
func (vm *VM) fault(opcode, pc uint16, err error) error {
	f := &Fault{Opcode: opcode, PC: pc, Err: err}
	if f.Fatal() {
		vm.state = Halted
	} else {
		vm.m.pc = pc + 2
	}
	return f
}

const (
	next = true  // default advance of PC by 2
	hold = false // the instruction set PC itself
)

// execute dispatches the decoded instruction. It reports whether PC needs the default advance.
//
// VX == vm.m.v[x]
// VY == vm.m.v[y]
// VF == vm.m.v[0xF]
func (vm *VM) execute(in instruction) (bool, error) {
	switch in.op {
	case 0x0:
		switch in.nnn {
		case 0x0E0:
			vm.cls()
			return next, nil
		case 0x0EE:
			return hold, vm.ret()
		}
	case 0x1:
		vm.jump(in.nnn)
		return hold, nil
	case 0x2:
		return hold, vm.call(in.nnn)
	case 0x3:
		vm.skipIf(in.x, in.nn)
		return next, nil
	case 0x4:
		vm.skipIfNot(in.x, in.nn)
		return next, nil
	case 0x5:
		if in.n == 0 {
			vm.skipIfXY(in.x, in.y)
			return next, nil
		}
	case 0x6:
		vm.loadX(in.x, in.nn)
		return next, nil
	case 0x7:
		vm.addX(in.x, in.nn)
		return next, nil
	case 0x8:
		if vm.arithmetic(in) {
			return next, nil
		}
	case 0x9:
		if in.n == 0 {
			vm.skipIfNotXY(in.x, in.y)
			return next, nil
		}
	case 0xA:
		vm.load(in.nnn)
		return next, nil
	case 0xB:
		vm.jumpV0(in.nnn)
		return hold, nil
	case 0xC:
		vm.loadRand(in.x, in.nn)
		return next, nil
	case 0xD:
		return next, vm.draw(in.x, in.y, in.n)
	case 0xE:
		switch in.nn {
		case 0x9E:
			return next, vm.skipIfKeyPressed(in.x)
		case 0xA1:
			return next, vm.skipIfNotKeyPressed(in.x)
		}
	case 0xF:
		return vm.misc(in)
	}
	return next, ErrUnknownOpcode
}

// arithmetic executes the 8xyN register instructions. It returns false for an unknown N.
func (vm *VM) arithmetic(in instruction) bool {
	x, y := in.x, in.y
	switch in.n {
	case 0x0:
		vm.loadXY(x, y)
	case 0x1:
		vm.or(x, y)
	case 0x2:
		vm.and(x, y)
	case 0x3:
		vm.xor(x, y)
	case 0x4:
		vm.add(x, y)
	case 0x5:
		vm.sub(x, y)
	case 0x6:
		vm.shiftr(x, y)
	case 0x7:
		vm.subYX(x, y)
	case 0xE:
		vm.shiftl(x, y)
	default:
		return false
	}
	return true
}

// misc executes the FxNN timer, key and memory instructions.
func (vm *VM) misc(in instruction) (bool, error) {
	x := in.x
	switch in.nn {
	case 0x07:
		vm.loadXDelay(x)
	case 0x0A:
		if !vm.loadXKey(x) {
			return hold, nil
		}
	case 0x15:
		vm.loadDelayX(x)
	case 0x18:
		vm.loadSoundX(x)
	case 0x1E:
		vm.addIX(x)
	case 0x29:
		vm.loadIFont(x)
	case 0x33:
		return next, vm.bcd(x)
	case 0x55:
		return next, vm.regDump(x)
	case 0x65:
		return next, vm.regLoad(x)
	default:
		return next, ErrUnknownOpcode
	}
	return next, nil
}

// cls clears the screen.
func (vm *VM) cls() {
	for i := range vm.m.display {
		vm.m.display[i] = 0
	}
	vm.m.displayDirty = true
}

// ret returns from a subroutine.
func (vm *VM) ret() error {
	if vm.m.sp == 0 {
		return ErrStackUnderflow
	}
	vm.m.sp--
	vm.m.pc = vm.m.stack[vm.m.sp]
	return nil
}

// jump jumps to address NNN.
func (vm *VM) jump(addr uint16) {
	vm.m.pc = addr
}

// call calls a subroutine at address NNN. The pushed return address is the
// instruction following the call.
func (vm *VM) call(addr uint16) error {
	if int(vm.m.sp) >= len(vm.m.stack) {
		return ErrStackOverflow
	}
	vm.m.stack[vm.m.sp] = vm.m.pc + 2
	vm.m.sp++

	vm.m.pc = addr
	return nil
}

// skipWhen skips the next instruction if cond holds.
// (Usually the next instruction is a jump to skip a code block)
func (vm *VM) skipWhen(cond bool) {
	if cond {
		vm.m.pc += 2
	}
}

// skipIf skips the next instruction if VX equals NN.
func (vm *VM) skipIf(x, nn uint8) {
	vm.skipWhen(vm.m.v[x] == nn)
}

// skipIfNot skips the next instruction if VX doesn't equal NN.
func (vm *VM) skipIfNot(x, nn uint8) {
	vm.skipWhen(vm.m.v[x] != nn)
}

// skipIfXY skips the next instruction if VX equals VY.
func (vm *VM) skipIfXY(x, y uint8) {
	vm.skipWhen(vm.m.v[x] == vm.m.v[y])
}

// skipIfNotXY skips the next instruction if VX doesn't equal VY.
func (vm *VM) skipIfNotXY(x, y uint8) {
	vm.skipWhen(vm.m.v[x] != vm.m.v[y])
}

// loadX sets VX to NN.
func (vm *VM) loadX(x, nn uint8) {
	vm.m.v[x] = nn
}

// addX adds NN to VX. (Carry flag is not changed)
func (vm *VM) addX(x, nn uint8) {
	vm.m.v[x] += nn
}

// loadXY sets VX to the value of VY.
func (vm *VM) loadXY(x, y uint8) {
	vm.m.v[x] = vm.m.v[y]
}

// or sets VX to VX or VY. (Bitwise OR operation)
func (vm *VM) or(x, y uint8) {
	vm.m.v[x] |= vm.m.v[y]
}

// and sets VX to VX and VY. (Bitwise AND operation)
func (vm *VM) and(x, y uint8) {
	vm.m.v[x] &= vm.m.v[y]
}

// xor sets VX to VX xor VY. (Bitwise XOR operation)
func (vm *VM) xor(x, y uint8) {
	vm.m.v[x] ^= vm.m.v[y]
}

// setWithFlag writes VF first and the result last, so for X == F the result wins.
func (vm *VM) setWithFlag(x, result, carry uint8) {
	vm.m.v[flag] = carry
	vm.m.v[x] = result
}

// add adds VY to VX. VF is set to 1 when there's a carry, and to 0 when there isn't.
func (vm *VM) add(x, y uint8) {
	sum := uint16(vm.m.v[x]) + uint16(vm.m.v[y])
	vm.setWithFlag(x, uint8(sum), boolToFlag(sum > 0xFF))
}

// sub VY is subtracted from VX. VF is set to 0 when there's a borrow, and 1 when there isn't.
func (vm *VM) sub(x, y uint8) {
	vx, vy := vm.m.v[x], vm.m.v[y]
	vm.setWithFlag(x, vx-vy, boolToFlag(vx >= vy))
}

// subYX sets VX to VY minus VX. VF is set to 0 when there's a borrow, and 1 when there isn't.
func (vm *VM) subYX(x, y uint8) {
	vx, vy := vm.m.v[x], vm.m.v[y]
	vm.setWithFlag(x, vy-vx, boolToFlag(vy >= vx))
}

// shiftSource returns the value the shift instructions operate on: VY on the
// COSMAC VIP, VX itself with the ShiftInPlace quirk.
func (vm *VM) shiftSource(x, y uint8) uint8 {
	if vm.quirks.ShiftInPlace {
		return vm.m.v[x]
	}
	return vm.m.v[y]
}

// shiftr stores VY in VX, then the least significant bit in VF and shifts VX to the right by 1.
func (vm *VM) shiftr(x, y uint8) {
	value := vm.shiftSource(x, y)
	vm.setWithFlag(x, value>>1, value&0x01)
}

// shiftl stores VY in VX, then the most significant bit in VF and shifts VX to the left by 1.
func (vm *VM) shiftl(x, y uint8) {
	value := vm.shiftSource(x, y)
	vm.setWithFlag(x, value<<1, (value&0x80)>>7)
}

// load sets I to the address NNN.
func (vm *VM) load(addr uint16) {
	vm.m.ir = addr
}

// jumpV0 jumps to the address NNN plus V0.
func (vm *VM) jumpV0(addr uint16) {
	vm.m.pc = addr + uint16(vm.m.v[0])
}

// loadRand sets VX to the result of a bitwise and operation on
// a random number (Typically: 0 to 255) and NN.
func (vm *VM) loadRand(x, nn uint8) {
	vm.m.v[x] = byte(vm.random(256)) & nn
}

// draw draws a sprite at coordinate (VX, VY) that has a width of 8 pixels and a height of N pixels.
// Each row of 8 pixels is read as bit-coded starting from memory location I (index register);
// I value doesn't change after the execution of this instruction. VF is set to 1 if any screen
// pixels are flipped from set to unset when the sprite is drawn, and to 0 if that doesn't happen.
// Pixels falling outside the screen are dropped, the sprite does not wrap.
func (vm *VM) draw(x, y, height uint8) error {
	if !inMemory(vm.m.ir, int(height)) {
		return ErrMemoryOutOfBounds
	}
	originX, originY := int(vm.m.v[x]), int(vm.m.v[y])

	var collision uint8
	for yline := 0; yline < int(height); yline++ {
		py := originY + yline
		if py >= DisplayHeight {
			break
		}
		pixel := vm.m.memory[int(vm.m.ir)+yline]
		for xline := 0; xline < 8; xline++ {
			px := originX + xline
			if px >= DisplayWidth {
				break
			}
			if pixel&(0x80>>xline) == 0 {
				continue
			}
			idx := py*DisplayWidth + px
			if vm.m.display[idx] == 1 {
				collision = 1
			}
			vm.m.display[idx] ^= 1
		}
	}

	vm.m.v[flag] = collision
	vm.m.displayDirty = true
	return nil
}

// keyIndex returns the keypad index held in VX.
func (vm *VM) keyIndex(x uint8) (int, error) {
	k := int(vm.m.v[x])
	if k >= KeyCount {
		return 0, fmt.Errorf("%w: V%X holds 0x%02X", ErrInvalidKey, x, k)
	}
	return k, nil
}

// skipIfKeyPressed skips the next instruction if the key stored in VX is pressed.
func (vm *VM) skipIfKeyPressed(x uint8) error {
	k, err := vm.keyIndex(x)
	if err != nil {
		return err
	}
	vm.skipWhen(vm.m.key[k])
	return nil
}

// skipIfNotKeyPressed skips the next instruction if the key stored in VX isn't pressed.
func (vm *VM) skipIfNotKeyPressed(x uint8) error {
	k, err := vm.keyIndex(x)
	if err != nil {
		return err
	}
	vm.skipWhen(!vm.m.key[k])
	return nil
}

// loadXDelay sets VX to the value of the delay timer.
func (vm *VM) loadXDelay(x uint8) {
	vm.m.v[x] = vm.m.delayTimer
}

// loadXKey waits for a key press and stores the lowest pressed key in VX.
// While no key is down the VM is AwaitingKey and PC stays on this instruction.
func (vm *VM) loadXKey(x uint8) bool {
	for k, pressed := range vm.m.key {
		if pressed {
			vm.m.v[x] = uint8(k)
			vm.state = Running
			return true
		}
	}
	vm.state = AwaitingKey
	return false
}

// loadDelayX sets the delay timer to VX.
func (vm *VM) loadDelayX(x uint8) {
	vm.m.delayTimer = vm.m.v[x]
}

// loadSoundX sets the sound timer to VX.
func (vm *VM) loadSoundX(x uint8) {
	vm.m.soundTimer = vm.m.v[x]
}

// addIX adds VX to I. VF is not affected.
func (vm *VM) addIX(x uint8) {
	vm.m.ir += uint16(vm.m.v[x])
}

// loadIFont sets I to the location of the sprite for the character in VX.
// Characters 0-F (in hexadecimal) are represented by a 4x5 font.
func (vm *VM) loadIFont(x uint8) {
	vm.m.ir = uint16(vm.m.v[x]) * glyphSize
}

// bcd stores the binary-coded decimal representation of VX, with the hundreds digit in
// memory at location in I, the tens digit at location I+1, and the ones digit at location I+2.
func (vm *VM) bcd(x uint8) error {
	if !inMemory(vm.m.ir, 3) {
		return ErrMemoryOutOfBounds
	}
	value := vm.m.v[x]
	vm.m.memory[vm.m.ir] = value / 100
	vm.m.memory[vm.m.ir+1] = (value / 10) % 10
	vm.m.memory[vm.m.ir+2] = value % 10
	return nil
}

// regDump stores V0 to VX (including VX) in memory starting at address I,
// then advances I by X+1 unless the KeepIndex quirk is set.
func (vm *VM) regDump(x uint8) error {
	n := int(x) + 1
	if !inMemory(vm.m.ir, n) {
		return ErrMemoryOutOfBounds
	}
	copy(vm.m.memory[vm.m.ir:], vm.m.v[:n])
	vm.advanceIndex(n)
	return nil
}

// regLoad fills V0 to VX (including VX) with values from memory starting at address I,
// then advances I by X+1 unless the KeepIndex quirk is set.
func (vm *VM) regLoad(x uint8) error {
	n := int(x) + 1
	if !inMemory(vm.m.ir, n) {
		return ErrMemoryOutOfBounds
	}
	copy(vm.m.v[:n], vm.m.memory[vm.m.ir:])
	vm.advanceIndex(n)
	return nil
}

func (vm *VM) advanceIndex(n int) {
	if !vm.quirks.KeepIndex {
		vm.m.ir += uint16(n)
	}
}

func boolToFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
