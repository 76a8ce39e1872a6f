//go:build cgo

package cmd

import (
	"log/slog"

	"github.com/cl607/cl607/gomidi"
)

func NewPads(target PadTarget, logger *slog.Logger) Pads {
	return gomidi.NewContext(target, logger)
}
