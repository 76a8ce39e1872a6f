package cl607

import "errors"

var (
	// ErrInitialization is returned when the engine cannot be set up. The
	// engine instance must not be used after it.
	ErrInitialization = errors.New("audio engine initialization failed")

	// ErrPermissionDenied is returned when the recording input cannot be
	// opened. Recording aborts and the sample voice is left unchanged.
	ErrPermissionDenied = errors.New("recording input permission denied")

	// ErrRender is returned when building or rendering the offline graph
	// fails.
	ErrRender = errors.New("offline render failed")

	ErrInvalidPattern = errors.New("invalid pattern")
)
