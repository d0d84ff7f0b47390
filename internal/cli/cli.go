// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Code-Hex/gochip8/internal/options"
)

// ParseFlags parses the command line arguments, args[0] being the program name.
func ParseFlags(args []string) (options.Program, error) {
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var opts options.Program
	readOptionFlags(flags, &opts)

	err := flags.Parse(args[1:])
	rest := flags.Args()
	if err != nil || len(rest) == 0 {
		return opts, &UsageError{flags: flags, err: err}
	}

	if err := validateArgs(flags, rest); err != nil {
		return opts, err
	}
	if err := validateOptions(opts); err != nil {
		return opts, err
	}

	opts.Input = rest[0]
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
	err   error
}

func (e *UsageError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.msg
}

func (e *UsageError) Unwrap() error {
	return e.err
}

// ShowUsage prints the usage line and flag defaults to w.
func (e *UsageError) ShowUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "usage: chip8 [options] <rom file>\n\n")
	e.flags.SetOutput(w)
	e.flags.PrintDefaults()
	_, _ = fmt.Fprintln(w)
}

// IsHelp reports whether err was caused by -h or -help.
func IsHelp(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

// validateArgs checks if arguments are in correct order
func validateArgs(flags *flag.FlagSet, args []string) error {
	for i, arg := range args {
		if i > 0 && arg != "" && arg[0] == '-' {
			return &UsageError{
				flags: flags,
				msg:   fmt.Sprintf("Potential argument %s found after rom file, please pass the rom file as last argument", arg),
			}
		}
	}
	return nil
}

// validateOptions checks the ranges of numeric options
func validateOptions(opts options.Program) error {
	if opts.InstructionsPerSecond <= 0 {
		return fmt.Errorf("invalid instruction rate %d, must be positive", opts.InstructionsPerSecond)
	}
	if opts.Scale <= 0 {
		return fmt.Errorf("invalid scale %g, must be positive", opts.Scale)
	}
	return nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.IntVar(&opts.InstructionsPerSecond, "cps", options.DefaultInstructionsPerSecond, "instructions executed per second")
	flags.Float64Var(&opts.Scale, "scale", options.DefaultScale, "window scale factor")
	flags.Int64Var(&opts.Seed, "seed", 0, "seed of the random number generator, 0 picks a random seed")
	flags.BoolVar(&opts.Terminal, "term", false, "render in the terminal instead of a window")
	flags.BoolVar(&opts.Disasm, "disasm", false, "print a disassembly listing of the rom and exit")
	flags.BoolVar(&opts.ShiftInPlace, "shift-vx", false, "shift instructions operate on VX instead of copying VY")
	flags.BoolVar(&opts.KeepIndex, "keep-index", false, "register store and load leave I unchanged")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Trace, "trace", false, "log every executed instruction, implies -debug")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}
