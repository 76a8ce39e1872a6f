package cl607

import "io"

type (
	// AudioBuffer is a buffer of stereo audio frames.
	AudioBuffer [][2]float32

	// AudioSource fills the buffer with the next frames of audio. It is
	// called from the audio thread and must not block.
	AudioSource func(buf AudioBuffer) error

	// AudioContext is a real-time audio output.
	AudioContext interface {
		Play(src AudioSource) CloserWaiter
		SampleRate() int
		Close() error
	}

	// CloserWaiter is a handle to something playing: Close stops it and Wait
	// blocks until it has stopped.
	CloserWaiter interface {
		Close() error
		Wait()
	}
)

// Fill sets every frame of the buffer to v.
func (b AudioBuffer) Fill(v [2]float32) {
	for i := range b {
		b[i] = v
	}
}

// Mono returns the average of the two channels of each frame.
func (b AudioBuffer) Mono() []float32 {
	ret := make([]float32, len(b))
	for i, f := range b {
		ret[i] = (f[0] + f[1]) / 2
	}
	return ret
}

// Source returns an AudioSource that plays the buffer once, padding the last
// block with silence, and then returns io.EOF. Used for playing back rendered
// beats.
func (b AudioBuffer) Source() AudioSource {
	pos := 0
	return func(buf AudioBuffer) error {
		if pos >= len(b) {
			return io.EOF
		}
		n := copy(buf, b[pos:])
		pos += n
		buf[n:].Fill([2]float32{})
		return nil
	}
}
