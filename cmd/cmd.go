// Package cmd holds what the command line tools share: logging setup and the
// MIDI pad input, which needs cgo.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cl607/cl607"
)

type (
	// Pads is a MIDI input that plays the voices.
	Pads interface {
		InputNames() []string
		TryToOpenBy(namePrefix string, takeFirst bool) error
		Close()
	}

	// PadTarget is what the pads play, usually an *engine.Engine.
	PadTarget interface {
		Play(i cl607.Instrument, when, volume float64, params cl607.InstrumentParams)
		Now() float64
		Kit() cl607.Kit
	}
)

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// SetupLogger installs a text logger on stderr as the default logger.
func SetupLogger(level string) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger, nil
}
