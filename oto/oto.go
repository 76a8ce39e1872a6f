// Package oto plays live audio through github.com/ebitengine/oto/v3.
package oto

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cl607/cl607"
	"github.com/ebitengine/oto/v3"
)

type (
	// OtoContext is a cl607.AudioContext backed by an oto context.
	OtoContext struct {
		context    *oto.Context
		sampleRate int
	}

	// OtoOutput pulls stereo frames from a cl607.AudioSource and hands them to
	// oto as 32-bit float little-endian bytes.
	OtoOutput struct {
		player *oto.Player
		source cl607.AudioSource

		mu     sync.Mutex
		buf    cl607.AudioBuffer
		err    error
		closed bool
	}
)

const otoBufferDuration = 20 * time.Millisecond

// NewContext creates the oto context and waits until the device is ready.
func NewContext(sampleRate int) (*OtoContext, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("cannot create oto context: invalid sample rate %d", sampleRate)
	}
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, sampleRate: sampleRate}, nil
}

func (c *OtoContext) SampleRate() int { return c.sampleRate }

// Play starts pulling audio from src until the returned output is closed or
// src returns an error; io.EOF ends the playback normally.
func (c *OtoContext) Play(src cl607.AudioSource) cl607.CloserWaiter {
	o := &OtoOutput{source: src}
	o.player = c.context.NewPlayer(o)
	o.player.Play()
	return o
}

func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Read implements io.Reader for the oto player.
func (o *OtoOutput) Read(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, io.EOF
	}
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if cap(o.buf) < frames {
		o.buf = make(cl607.AudioBuffer, frames)
	}
	o.buf = o.buf[:frames]
	if err := o.source(o.buf); err != nil {
		if !errors.Is(err, io.EOF) {
			o.err = err
		}
		o.closed = true
		return 0, io.EOF
	}
	return FramesToFloat32LE(p, o.buf), nil
}

// Close stops the playback.
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// Wait blocks until the player has stopped, either because it was closed or
// because the source failed.
func (o *OtoOutput) Wait() {
	for o.player.IsPlaying() {
		time.Sleep(otoBufferDuration)
	}
}

// Err returns the error the source failed with, if any.
func (o *OtoOutput) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
