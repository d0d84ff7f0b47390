// Package main implements a CHIP-8 emulator
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	chip8 "github.com/Code-Hex/gochip8"
	"github.com/Code-Hex/gochip8/internal/cli"
	"github.com/Code-Hex/gochip8/internal/config"
	"github.com/Code-Hex/gochip8/internal/driver"
	"github.com/Code-Hex/gochip8/internal/options"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	opts, err := cli.ParseFlags(os.Args)
	if err != nil {
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			printBanner(os.Stdout, opts)
			usageErr.ShowUsage(os.Stdout)
			if cli.IsHelp(err) {
				os.Exit(0)
			}
			os.Exit(2)
		}
		logger := config.CreateLogger(options.Program{})
		logger.Fatal(err.Error())
	}

	logger := config.CreateLogger(opts)
	if !opts.Disasm && !opts.Terminal {
		printBanner(os.Stdout, opts)
	}

	if err := run(logger, opts); err != nil {
		logger.Error("Emulation failed", log.Err(err))
		os.Exit(1)
	}
}

func run(logger *log.Logger, opts options.Program) error {
	rom, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("reading rom file: %w", err)
	}

	if opts.Disasm {
		return chip8.Listing(os.Stdout, rom)
	}

	vm := chip8.New(vmOptions(logger, opts)...)
	if err := vm.LoadProgram(rom); err != nil {
		return fmt.Errorf("loading rom file '%s': %w", opts.Input, err)
	}

	logger.Info("Starting emulation",
		log.String("rom", opts.Input),
		log.Int("size", len(rom)),
		log.Int("cps", opts.InstructionsPerSecond))

	runner := driver.New(vm, logger, opts.InstructionsPerSecond)
	if opts.Terminal {
		return runTerminal(app.Context(), runner)
	}
	return runWindow(logger, runner, opts)
}

func vmOptions(logger *log.Logger, opts options.Program) []chip8.Option {
	vmOpts := []chip8.Option{
		chip8.WithLogger(logger),
		chip8.WithTrace(opts.Trace),
		chip8.WithQuirks(chip8.Quirks{
			ShiftInPlace: opts.ShiftInPlace,
			KeepIndex:    opts.KeepIndex,
		}),
	}
	if opts.Seed != 0 {
		vmOpts = append(vmOpts, chip8.WithSeed(opts.Seed))
	}
	return vmOpts
}

func printBanner(w io.Writer, opts options.Program) {
	if opts.Quiet {
		return
	}
	_, _ = fmt.Fprintln(w, "[-------------------------]")
	_, _ = fmt.Fprintln(w, "[ chip8 - CHIP-8 emulator ]")
	_, _ = fmt.Fprintf(w, "[-------------------------]\n\n")
	_, _ = fmt.Fprintf(w, "version: %s\n\n", buildinfo.Version(version, commit, date))
}
