// Package terminal renders a CHIP-8 framebuffer in a text terminal and feeds keyboard input
// from a raw mode terminal into the keypad.
package terminal

import (
	"bytes"
	"fmt"
	"io"

	chip8 "github.com/Code-Hex/gochip8"
)

const (
	escHome       = "\x1b[H"
	escClear      = "\x1b[2J"
	escHideCursor = "\x1b[?25l"
	escShowCursor = "\x1b[?25h"
	escReset      = "\x1b[0m"
	bell          = "\a"
)

// Every text cell shows two pixel rows.
var halfBlocks = [4]string{
	0b00: " ",
	0b10: "▀",
	0b01: "▄",
	0b11: "█",
}

// Screen draws frames on an ANSI terminal.
type Screen struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewScreen returns a screen writing to w.
func NewScreen(w io.Writer) *Screen {
	return &Screen{w: w}
}

// Open clears the terminal and hides the cursor.
func (s *Screen) Open() error {
	return s.write(escClear + escHome + escHideCursor)
}

// Close shows the cursor again and moves it below the frame.
func (s *Screen) Close() error {
	return s.write(escReset + escShowCursor + fmt.Sprintf("\x1b[%d;1H\r\n", chip8.DisplayHeight/2+1))
}

// Bell rings the terminal bell.
func (s *Screen) Bell() error {
	return s.write(bell)
}

// Draw renders the framebuffer, 64 columns by 16 lines.
func (s *Screen) Draw(display [chip8.DisplayWidth * chip8.DisplayHeight]byte) error {
	s.buf.Reset()
	s.buf.WriteString(escHome)
	for y := 0; y < chip8.DisplayHeight; y += 2 {
		for x := 0; x < chip8.DisplayWidth; x++ {
			top := display[y*chip8.DisplayWidth+x]
			bottom := display[(y+1)*chip8.DisplayWidth+x]
			s.buf.WriteString(halfBlocks[top<<1|bottom])
		}
		// raw mode does not translate newlines
		s.buf.WriteString("\r\n")
	}
	if _, err := s.w.Write(s.buf.Bytes()); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

func (s *Screen) write(seq string) error {
	if _, err := io.WriteString(s.w, seq); err != nil {
		return fmt.Errorf("writing to terminal: %w", err)
	}
	return nil
}
