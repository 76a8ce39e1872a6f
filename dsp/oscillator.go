package dsp

import (
	"math"
	"math/rand"
)

type (
	Waveform int

	// Oscillator generates a periodic waveform with automatable frequency
	// between its start and stop times. The discontinuous waveforms are
	// band-limited with polynomial steps.
	Oscillator struct {
		Waveform  Waveform
		Frequency *Param
		Start     float64
		Stop      float64

		sampleRate float64
		phase      float64
		freqBuf    []float32
	}
)

const (
	Sine Waveform = iota
	Triangle
	Square
	Sawtooth
)

func NewOscillator(w Waveform, frequency float64, sampleRate int) *Oscillator {
	return &Oscillator{
		Waveform:   w,
		Frequency:  NewParam(frequency),
		Stop:       math.Inf(1),
		sampleRate: float64(sampleRate),
	}
}

// Process writes the oscillator output for the frames starting at time start
// into out.
func (o *Oscillator) Process(out []float32, start float64) {
	o.freqBuf = grow(o.freqBuf, len(out))
	o.Frequency.Fill(o.freqBuf, start, o.sampleRate)
	for i := range out {
		t := start + float64(i)/o.sampleRate
		if t < o.Start || t >= o.Stop {
			out[i] = 0
			continue
		}
		dt := math.Abs(float64(o.freqBuf[i])) / o.sampleRate
		out[i] = float32(o.sample(dt))
		o.phase += dt
		o.phase -= math.Floor(o.phase)
	}
}

func (o *Oscillator) sample(dt float64) float64 {
	p := o.phase
	switch o.Waveform {
	case Triangle:
		switch {
		case p < 0.25:
			return 4 * p
		case p < 0.75:
			return 2 - 4*p
		default:
			return 4*p - 4
		}
	case Square:
		v := -1.0
		if p < 0.5 {
			v = 1
		}
		return v + polyBLEP(p, dt) - polyBLEP(math.Mod(p+0.5, 1), dt)
	case Sawtooth:
		t := math.Mod(p+0.5, 1)
		return 2*t - 1 - polyBLEP(t, dt)
	}
	return math.Sin(2 * math.Pi * p)
}

func polyBLEP(t, dt float64) float64 {
	switch {
	case dt <= 0:
		return 0
	case t < dt:
		t /= dt
		return t + t - t*t - 1
	case t > 1-dt:
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// Noise returns n samples of white noise uniformly distributed in [-1, 1).
func Noise(rng *rand.Rand, n int) []float32 {
	ret := make([]float32, n)
	for i := range ret {
		ret[i] = float32(rng.Float64()*2 - 1)
	}
	return ret
}
