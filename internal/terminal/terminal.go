package terminal

import (
	"context"
	"errors"
	"io"

	"github.com/Code-Hex/gochip8/internal/driver"
)

const (
	ctrlC  = 0x03
	escape = 0x1B
)

var errQuit = errors.New("quit requested")

// Run drives runner at 60 Hz, reading typed characters from in and drawing frames on screen
// until ctx is done, Ctrl+C or Escape is typed, or the machine halts. Only a fatal machine
// fault or an output error is returned.
func Run(ctx context.Context, in io.Reader, screen *Screen, keypad *Keypad, runner *driver.Runner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	input := make(chan byte, 64)
	go readInput(ctx, in, input)

	err := runner.Run(ctx, func(event driver.SoundEvent) error {
	drain:
		for {
			select {
			case c, ok := <-input:
				if !ok {
					input = nil
					break drain
				}
				if c == ctrlC || c == escape {
					return errQuit
				}
				keypad.Press(c)
			default:
				break drain
			}
		}
		if err := keypad.Frame(runner.VM()); err != nil {
			return err
		}

		if event&driver.SoundStart != 0 {
			if err := screen.Bell(); err != nil {
				return err
			}
		}
		if display, changed := runner.Snapshot(); changed {
			return screen.Draw(display)
		}
		return nil
	})

	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readInput forwards every byte read from r until r fails or ctx is done.
// A Read blocked on os.Stdin cannot be interrupted, so after cancellation the goroutine
// lingers until the next byte arrives or the process exits.
func readInput(ctx context.Context, r io.Reader, out chan<- byte) {
	defer close(out)

	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, c := range buf[:n] {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}
