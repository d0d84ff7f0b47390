// Package config builds the logger shared by the VM and its frontends.
package config

import (
	"github.com/Code-Hex/gochip8/internal/options"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger returns the logger for the given command line options. -trace logs every
// executed instruction, -debug adds skipped instructions and sound changes, -q keeps
// only errors.
func CreateLogger(opts options.Program) *log.Logger {
	cfg := log.DefaultConfig()
	switch {
	case opts.Trace:
		cfg.Level = log.TraceLevel
	case opts.Debug:
		cfg.Level = log.DebugLevel
	case opts.Quiet:
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
