package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Code-Hex/gochip8/internal/driver"
	"github.com/Code-Hex/gochip8/internal/terminal"
	"golang.org/x/term"
)

// runTerminal switches stdin to raw mode and runs the terminal frontend.
func runTerminal(ctx context.Context, runner *driver.Runner) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("terminal mode needs standard input to be a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enabling raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, state)
	}()

	screen := terminal.NewScreen(os.Stdout)
	if err := screen.Open(); err != nil {
		return err
	}
	defer func() {
		_ = screen.Close()
	}()

	return terminal.Run(ctx, os.Stdin, screen, terminal.NewKeypad(terminal.DefaultHoldFrames), runner)
}
