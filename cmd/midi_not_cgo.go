//go:build !cgo

package cmd

import (
	"errors"
	"log/slog"
)

type NullPads struct{}

func NewPads(target PadTarget, logger *slog.Logger) Pads {
	// with no cgo, we cannot use MIDI, so return a null context
	return NullPads{}
}

func (NullPads) InputNames() []string { return nil }

func (NullPads) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	return errors.New("MIDI input needs a build with cgo")
}

func (NullPads) Close() {}
