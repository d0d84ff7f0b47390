// Package driver paces a CHIP-8 VM: it runs a fixed number of instructions per 60 Hz frame
// and counts the timers down once per frame, independent of the instruction rate.
package driver

import (
	"context"
	"errors"
	"time"

	chip8 "github.com/Code-Hex/gochip8"
	"github.com/retroenv/retrogolib/log"
)

// FrameRate is the timer rate in Hz.
const FrameRate = 60

// SoundEvent reports changes of the buzzer state during a frame.
type SoundEvent uint8

const (
	// SoundStart is set when the sound timer became active.
	SoundStart SoundEvent = 1 << iota
	// SoundStop is set when the sound timer reached zero.
	SoundStop
)

// Runner advances a VM frame by frame.
type Runner struct {
	vm     *chip8.VM
	logger *log.Logger

	cyclesPerFrame int
	soundOn        bool
}

// New returns a runner executing instructionsPerSecond instructions, rounded to whole frames.
func New(vm *chip8.VM, logger *log.Logger, instructionsPerSecond int) *Runner {
	cycles := instructionsPerSecond / FrameRate
	if cycles < 1 {
		cycles = 1
	}
	return &Runner{
		vm:             vm,
		logger:         logger,
		cyclesPerFrame: cycles,
	}
}

// VM returns the driven machine.
func (r *Runner) VM() *chip8.VM {
	return r.vm
}

// CyclesPerFrame returns the number of instructions executed per frame.
func (r *Runner) CyclesPerFrame() int {
	return r.cyclesPerFrame
}

// Frame executes one frame worth of instructions and ticks the timers once.
// A frame ends early while the VM is waiting for a key. Unknown opcodes are logged and
// skipped, a fatal fault is returned and the VM stays halted.
func (r *Runner) Frame() (SoundEvent, error) {
	for i := 0; i < r.cyclesPerFrame; i++ {
		if err := r.vm.Step(); err != nil {
			opcode, pc := faultLocation(err)
			if chip8.IsFatal(err) {
				r.logger.Error("Execution halted",
					log.Err(err),
					log.Hex("opcode", opcode),
					log.Hex("pc", pc))
				return 0, err
			}
			r.logger.Warn("Skipping instruction",
				log.Err(err),
				log.Hex("opcode", opcode),
				log.Hex("pc", pc),
				log.String("instruction", chip8.Disassemble(opcode)))
		}
		if r.vm.State() == chip8.AwaitingKey {
			break
		}
	}

	var event SoundEvent
	if !r.soundOn && r.vm.SoundActive() {
		r.soundOn = true
		event |= SoundStart
	}
	if r.vm.TickTimers() || (r.soundOn && !r.vm.SoundActive()) {
		r.soundOn = false
		event |= SoundStop
	}
	return event, nil
}

// Snapshot returns a copy of the framebuffer if it changed since the last snapshot.
func (r *Runner) Snapshot() ([chip8.DisplayWidth * chip8.DisplayHeight]byte, bool) {
	if !r.vm.DisplayDirty() {
		return [chip8.DisplayWidth * chip8.DisplayHeight]byte{}, false
	}
	display := r.vm.Display()
	r.vm.ClearDisplayDirty()
	return display, true
}

// Run calls Frame at FrameRate until ctx is done or a fatal fault occurs. fn is called
// after every frame with its sound events.
func (r *Runner) Run(ctx context.Context, fn func(SoundEvent) error) error {
	ticker := time.NewTicker(time.Second / FrameRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		event, err := r.Frame()
		if err != nil {
			return err
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

// faultLocation returns the opcode and address of the instruction that raised err.
func faultLocation(err error) (uint16, uint16) {
	var fault *chip8.Fault
	if errors.As(err, &fault) {
		return fault.Opcode, fault.PC
	}
	return 0, 0
}
