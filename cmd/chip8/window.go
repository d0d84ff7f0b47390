package main

import (
	"errors"
	"path/filepath"

	chip8 "github.com/Code-Hex/gochip8"
	"github.com/Code-Hex/gochip8/internal/driver"
	"github.com/Code-Hex/gochip8/internal/options"
	"github.com/hajimehoshi/ebiten"
	"github.com/hajimehoshi/ebiten/ebitenutil"
	"github.com/hajimehoshi/ebiten/inpututil"
	"github.com/retroenv/retrogolib/log"
)

// keymap maps the left hand side of a QWERTY keyboard to the hex keypad:
//
//	1 2 3 4      1 2 3 C
//	Q W E R  ->  4 5 6 D
//	A S D F      7 8 9 E
//	Z X C V      A 0 B F
var keymap = [chip8.KeyCount]ebiten.Key{
	0x0: ebiten.KeyX,
	0x1: ebiten.Key1,
	0x2: ebiten.Key2,
	0x3: ebiten.Key3,
	0x4: ebiten.KeyQ,
	0x5: ebiten.KeyW,
	0x6: ebiten.KeyE,
	0x7: ebiten.KeyA,
	0x8: ebiten.KeyS,
	0x9: ebiten.KeyD,
	0xA: ebiten.KeyZ,
	0xB: ebiten.KeyC,
	0xC: ebiten.Key4,
	0xD: ebiten.KeyR,
	0xE: ebiten.KeyF,
	0xF: ebiten.KeyV,
}

const (
	pauseKey = ebiten.KeyP
	quitKey  = ebiten.KeyEscape
)

var errQuit = errors.New("quit requested")

type window struct {
	logger *log.Logger
	runner *driver.Runner
	title  string

	// RGBA pixels of the last rendered frame
	pixels []byte
	paused bool
}

// runWindow opens a window showing the framebuffer and runs one frame per ebiten update,
// which ebiten calls at 60 Hz.
func runWindow(logger *log.Logger, runner *driver.Runner, opts options.Program) error {
	w := &window{
		logger: logger,
		runner: runner,
		title:  "chip8 - " + filepath.Base(opts.Input),
		pixels: make([]byte, 4*chip8.DisplayWidth*chip8.DisplayHeight),
	}
	w.paint([chip8.DisplayWidth * chip8.DisplayHeight]byte{})

	ebiten.SetMaxTPS(driver.FrameRate)
	// The original implementation of the Chip-8 language used a 64x32-pixel monochrome display.
	err := ebiten.Run(w.update, chip8.DisplayWidth, chip8.DisplayHeight, opts.Scale, w.title)
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

func (w *window) update(screen *ebiten.Image) error {
	if inpututil.IsKeyJustPressed(quitKey) {
		return errQuit
	}
	if inpututil.IsKeyJustPressed(pauseKey) {
		w.paused = !w.paused
		w.logger.Debug("Pause toggled", log.String("state", w.runner.VM().String()))
	}

	if !w.paused {
		if err := w.readKeys(); err != nil {
			return err
		}
		event, err := w.runner.Frame()
		if err != nil {
			return err
		}
		w.sound(event)
	}

	if display, changed := w.runner.Snapshot(); changed {
		w.paint(display)
	}

	if ebiten.IsDrawingSkipped() {
		return nil
	}
	if err := screen.ReplacePixels(w.pixels); err != nil {
		return err
	}
	if w.paused {
		ebitenutil.DebugPrint(screen, "PAUSE")
	}
	return nil
}

// readKeys forwards key edges of the mapped keys to the keypad.
func (w *window) readKeys() error {
	vm := w.runner.VM()
	for index, key := range keymap {
		switch {
		case inpututil.IsKeyJustPressed(key):
			if err := vm.SetKey(index, true); err != nil {
				return err
			}
		case inpututil.IsKeyJustReleased(key):
			if err := vm.SetKey(index, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// sound shows the buzzer state in the window title.
func (w *window) sound(event driver.SoundEvent) {
	if event&driver.SoundStart != 0 {
		w.logger.Debug("Sound start")
		ebiten.SetWindowTitle(w.title + " ♪")
	}
	if event&driver.SoundStop != 0 {
		w.logger.Debug("Sound stop")
		ebiten.SetWindowTitle(w.title)
	}
}

// paint converts the framebuffer into opaque white on black RGBA pixels.
func (w *window) paint(display [chip8.DisplayWidth * chip8.DisplayHeight]byte) {
	for i, pixel := range display {
		c := byte(0x00)
		if pixel == 1 {
			c = 0xFF
		}
		w.pixels[4*i] = c
		w.pixels[4*i+1] = c
		w.pixels[4*i+2] = c
		w.pixels[4*i+3] = 0xFF
	}
}
