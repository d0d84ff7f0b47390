package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Code-Hex/gochip8/internal/options"
	"github.com/retroenv/retrogolib/assert"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options.Program
	}{
		{
			name: "defaults",
			args: []string{"chip8", "pong.ch8"},
			want: options.Program{
				Input:                 "pong.ch8",
				InstructionsPerSecond: options.DefaultInstructionsPerSecond,
				Scale:                 options.DefaultScale,
			},
		},
		{
			name: "all flags",
			args: []string{"chip8", "-cps", "1200", "-scale", "4", "-seed", "42", "-term", "-disasm",
				"-shift-vx", "-keep-index", "-debug", "-trace", "-q", "pong.ch8"},
			want: options.Program{
				Input:                 "pong.ch8",
				InstructionsPerSecond: 1200,
				Scale:                 4,
				Seed:                  42,
				Terminal:              true,
				Disasm:                true,
				ShiftInPlace:          true,
				KeepIndex:             true,
				Debug:                 true,
				Trace:                 true,
				Quiet:                 true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlags(tt.args)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlags_usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing rom", []string{"chip8"}},
		{"unknown flag", []string{"chip8", "-nope", "pong.ch8"}},
		{"flag after rom", []string{"chip8", "pong.ch8", "-term"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFlags(tt.args)
			var usageErr *UsageError
			assert.True(t, errors.As(err, &usageErr))

			var buf bytes.Buffer
			usageErr.ShowUsage(&buf)
			assert.True(t, strings.HasPrefix(buf.String(), "usage: chip8"))
			assert.True(t, strings.Contains(buf.String(), "-cps"))
		})
	}
}

func TestParseFlags_help(t *testing.T) {
	_, err := ParseFlags([]string{"chip8", "-h"})
	assert.True(t, IsHelp(err))
}

func TestParseFlags_invalidValues(t *testing.T) {
	_, err := ParseFlags([]string{"chip8", "-cps", "0", "pong.ch8"})
	assert.Error(t, err)

	_, err = ParseFlags([]string{"chip8", "-scale", "-1", "pong.ch8"})
	assert.Error(t, err)
}
