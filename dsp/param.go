// Package dsp implements the signal processing primitives of the drum machine:
// automatable parameters, filters, waveshapers, dynamics, convolution, delay
// lines, oscillators and analysis taps. All processing is block based; times
// are absolute seconds on the clock of the context that owns the processors.
package dsp

import (
	"math"
	"sort"
)

// RampTime is the length of the linear ramp applied by RampTo.
const RampTime = 0.01

type (
	// Param is an automatable parameter with a timeline of scheduled events.
	// Linear and exponential ramps interpolate from the previous event to
	// their own time and value; a set event holds its value until the next
	// event.
	Param struct {
		value  float64 // value before the first event
		events []paramEvent
	}

	paramEvent struct {
		kind  eventKind
		time  float64
		value float64
	}

	eventKind int
)

const (
	eventSet eventKind = iota
	eventLinear
	eventExponential
)

func NewParam(value float64) *Param {
	return &Param{value: value}
}

// Set discards the whole timeline and sets the value immediately.
func (p *Param) Set(v float64) {
	p.value = v
	p.events = p.events[:0]
}

func (p *Param) SetValueAtTime(v, t float64) {
	p.insert(paramEvent{kind: eventSet, time: t, value: v})
}

func (p *Param) LinearRampToValueAtTime(v, t float64) {
	p.insert(paramEvent{kind: eventLinear, time: t, value: v})
}

// ExponentialRampToValueAtTime schedules an exponential ramp. If the start
// and end values are zero or of opposite signs, the start value is held
// until the end time instead.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) {
	p.insert(paramEvent{kind: eventExponential, time: t, value: v})
}

// CancelScheduledValues removes every event at or after t.
func (p *Param) CancelScheduledValues(t float64) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time >= t })
	p.events = p.events[:i]
}

// CancelAndHoldAtTime removes every event at or after t but keeps the value
// the timeline had at t: a ramp in progress is truncated at t instead of
// dropped, so automation continues smoothly from the held value.
func (p *Param) CancelAndHoldAtTime(t float64) {
	v := p.ValueAt(t)
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time >= t })
	kind := eventSet
	if i < len(p.events) {
		kind = p.events[i].kind
	}
	p.events = p.events[:i]
	p.events = append(p.events, paramEvent{kind: kind, time: t, value: v})
}

// RampTo moves the parameter to v with a short linear ramp starting at now.
func (p *Param) RampTo(v, now float64) {
	p.CancelAndHoldAtTime(now)
	p.LinearRampToValueAtTime(v, now+RampTime)
}

// ValueAt evaluates the timeline at time t.
func (p *Param) ValueAt(t float64) float64 {
	// index of the first event strictly after t
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > t })
	t0, v0 := 0.0, p.value
	if i > 0 {
		t0, v0 = p.events[i-1].time, p.events[i-1].value
	}
	if i == len(p.events) {
		return v0
	}
	next := p.events[i]
	switch next.kind {
	case eventLinear:
		if next.time <= t0 {
			return next.value
		}
		return v0 + (next.value-v0)*(t-t0)/(next.time-t0)
	case eventExponential:
		if v0 == 0 || next.value == 0 || (v0 < 0) != (next.value < 0) {
			return v0
		}
		if next.time <= t0 {
			return next.value
		}
		return v0 * math.Pow(next.value/v0, (t-t0)/(next.time-t0))
	}
	return v0
}

// Fill writes the values of the parameter for the frames starting at time
// start into dst and drops the events that can no longer affect the future.
func (p *Param) Fill(dst []float32, start, sampleRate float64) {
	if len(p.events) == 0 || (len(p.events) == 1 && p.events[0].time <= start) {
		v := float32(p.Current())
		for i := range dst {
			dst[i] = v
		}
		p.prune(start)
		return
	}
	for i := range dst {
		dst[i] = float32(p.ValueAt(start + float64(i)/sampleRate))
	}
	p.prune(start + float64(len(dst))/sampleRate)
}

// Current returns the value after the last scheduled event.
func (p *Param) Current() float64 {
	if len(p.events) == 0 {
		return p.value
	}
	return p.events[len(p.events)-1].value
}

// Static reports whether the parameter has a constant value from time t on.
func (p *Param) Static(t float64) bool {
	return len(p.events) == 0 || p.events[len(p.events)-1].time <= t
}

// Prune drops the events that can no longer affect values at or after t.
// Processors that skip a block call it so that idle timelines do not grow.
func (p *Param) Prune(t float64) { p.prune(t) }

func (p *Param) prune(t float64) {
	// keep the last event at or before t; it anchors the next ramp
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > t })
	if i <= 1 {
		return
	}
	p.value = p.events[i-2].value
	p.events = append(p.events[:0], p.events[i-1:]...)
}

func (p *Param) insert(e paramEvent) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > e.time })
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}
