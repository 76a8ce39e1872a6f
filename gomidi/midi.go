// Package gomidi plays the drum voices from MIDI pads through the rtmidi
// driver of gitlab.com/gomidi/midi/v2. It needs cgo.
package gomidi

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cl607/cl607"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// Target is what the pads play, usually an *engine.Engine.
	Target interface {
		Play(i cl607.Instrument, when, volume float64, params cl607.InstrumentParams)
		Now() float64
		Kit() cl607.Kit
	}

	RTMIDIContext struct {
		driver *rtmididrv.Driver
		target Target
		logger *slog.Logger

		mu        sync.Mutex // guards currentIn and stop
		currentIn drivers.In
		stop      func()
	}
)

var errNoDriver = errors.New("no MIDI driver available")

// NewContext opens the rtmidi driver. If that fails the context still works
// but has no inputs.
func NewContext(target Target, logger *slog.Logger) *RTMIDIContext {
	if logger == nil {
		logger = slog.Default()
	}
	m := &RTMIDIContext{target: target, logger: logger}
	var err error
	if m.driver, err = rtmididrv.New(); err != nil {
		logger.Warn("MIDI driver unavailable", "err", err)
		m.driver = nil
	}
	return m
}

// InputNames lists the MIDI inputs of the system.
func (c *RTMIDIContext) InputNames() []string {
	if c.driver == nil {
		return nil
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil
	}
	ret := make([]string, len(ins))
	for i, in := range ins {
		ret[i] = in.String()
	}
	return ret
}

// TryToOpenBy opens the first input whose name starts with namePrefix, or
// the first input of all if takeFirst is set. A previously opened input is
// closed.
func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	if c.driver == nil {
		return errNoDriver
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs failed: %w", err)
	}
	for _, in := range ins {
		if takeFirst || strings.HasPrefix(in.String(), namePrefix) {
			return c.open(in)
		}
	}
	if takeFirst {
		return errors.New("could not find any MIDI input")
	}
	return fmt.Errorf("could not find a MIDI input starting with %q", namePrefix)
}

func (c *RTMIDIContext) open(in drivers.In) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentIn == in {
		return nil
	}
	c.closeCurrent()
	if err := in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(in, c.HandleMessage)
	if err != nil {
		in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.currentIn, c.stop = in, stop
	c.logger.Info("MIDI input opened", "name", in.String())
	return nil
}

func (c *RTMIDIContext) closeCurrent() {
	if c.stop != nil {
		c.stop()
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn, c.stop = nil, nil
}

func (c *RTMIDIContext) HasDeviceOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIn != nil && c.currentIn.IsOpen()
}

// HandleMessage plays mapped note-on messages right away, at the current
// audio time; MIDI timestamps are ignored.
func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	hit, ok := cl607.PadForMessage(msg)
	if !ok {
		return
	}
	params := c.target.Kit().Instruments[hit.Instrument]
	c.target.Play(hit.Instrument, c.target.Now(), hit.Volume, params)
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.mu.Lock()
	c.closeCurrent()
	c.mu.Unlock()
	c.driver.Close()
}
