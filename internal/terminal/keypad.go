package terminal

import (
	chip8 "github.com/Code-Hex/gochip8"
)

// Keymap maps keyboard characters to keypad keys:
//
//	1 2 3 4      1 2 3 C
//	q w e r  ->  4 5 6 D
//	a s d f      7 8 9 E
//	z x c v      A 0 B F
var Keymap = map[byte]int{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// DefaultHoldFrames is how long a key counts as pressed after its character arrived.
const DefaultHoldFrames = 6

// KeySetter receives keypad state changes.
type KeySetter interface {
	SetKey(index int, pressed bool) error
}

// Keypad turns a stream of typed characters into key down and key up states.
// Terminals only report characters, so a key stays down for a number of frames
// after each character and auto repeat keeps it down while held.
type Keypad struct {
	holdFrames int
	remaining  [chip8.KeyCount]int
}

// NewKeypad returns a keypad releasing keys holdFrames frames after their last character.
func NewKeypad(holdFrames int) *Keypad {
	if holdFrames < 1 {
		holdFrames = 1
	}
	return &Keypad{holdFrames: holdFrames}
}

// Press handles a typed character. It returns false for characters that are not mapped.
func (k *Keypad) Press(c byte) bool {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	key, ok := Keymap[c]
	if !ok {
		return false
	}
	k.remaining[key] = k.holdFrames
	return true
}

// Frame applies the current key states to vm and ages the held keys by one frame.
func (k *Keypad) Frame(vm KeySetter) error {
	for key := range k.remaining {
		if err := vm.SetKey(key, k.remaining[key] > 0); err != nil {
			return err
		}
		if k.remaining[key] > 0 {
			k.remaining[key]--
		}
	}
	return nil
}
