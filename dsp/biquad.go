package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

type (
	FilterType int

	// Biquad is a second order IIR filter with the lowpass, highpass and
	// bandpass responses of the audio EQ cookbook. For lowpass and highpass
	// the Q is a resonance in dB; for bandpass it is the linear quality
	// factor. Frequency and Q are automatable, so the coefficients may change
	// every frame while the filter state carries over.
	Biquad struct {
		Type      FilterType
		Frequency *Param
		Q         *Param

		sampleRate     float64
		c              biquad.Coefficients
		x1, x2, y1, y2 float64
		lastF, lastQ   float64
		freqBuf, qBuf  []float32
	}
)

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
)

// NewBiquad returns a filter with Q 1, the default of every filter in the
// graph unless set otherwise.
func NewBiquad(t FilterType, frequency float64, sampleRate int) *Biquad {
	b := &Biquad{
		Type:       t,
		Frequency:  NewParam(frequency),
		Q:          NewParam(1),
		sampleRate: float64(sampleRate),
		lastF:      -1,
	}
	return b
}

// Process filters the block in place. start is the time of the first frame.
func (b *Biquad) Process(buf []float32, start float64) {
	if b.Frequency.Static(start) && b.Q.Static(start) {
		b.Frequency.prune(start)
		b.Q.prune(start)
		b.setCoeffs(b.Frequency.Current(), b.Q.Current())
		for i, x := range buf {
			buf[i] = float32(b.tick(float64(x)))
		}
		return
	}
	b.freqBuf = grow(b.freqBuf, len(buf))
	b.qBuf = grow(b.qBuf, len(buf))
	b.Frequency.Fill(b.freqBuf, start, b.sampleRate)
	b.Q.Fill(b.qBuf, start, b.sampleRate)
	for i, x := range buf {
		b.setCoeffs(float64(b.freqBuf[i]), float64(b.qBuf[i]))
		buf[i] = float32(b.tick(float64(x)))
	}
}

// ProcessModulated filters the block in place with the cutoff given per
// frame by freq, ignoring the Frequency parameter.
func (b *Biquad) ProcessModulated(buf, freq []float32, start float64) {
	b.qBuf = grow(b.qBuf, len(buf))
	b.Q.Fill(b.qBuf, start, b.sampleRate)
	for i, x := range buf {
		b.setCoeffs(float64(freq[i]), float64(b.qBuf[i]))
		buf[i] = float32(b.tick(float64(x)))
	}
}

func (b *Biquad) Reset() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}

func (b *Biquad) tick(x float64) float64 {
	c := &b.c
	y := c.B0*x + c.B1*b.x1 + c.B2*b.x2 - c.A1*b.y1 - c.A2*b.y2
	b.x2, b.x1 = b.x1, x
	b.y2, b.y1 = b.y1, y
	return y
}

func (b *Biquad) setCoeffs(freq, q float64) {
	if freq == b.lastF && q == b.lastQ {
		return
	}
	b.lastF, b.lastQ = freq, q
	nyquist := b.sampleRate / 2
	f := math.Max(0, math.Min(freq, nyquist)) / nyquist // normalized to [0, 1]
	switch b.Type {
	case Lowpass:
		switch {
		case f >= 1:
			b.c = passThrough
		case f <= 0:
			b.c = biquad.Coefficients{}
		default:
			b.c = design.Lowpass(freq, math.Pow(10, q/20), b.sampleRate)
		}
	case Highpass:
		switch {
		case f >= 1:
			b.c = biquad.Coefficients{}
		case f <= 0:
			b.c = passThrough
		default:
			b.c = design.Highpass(freq, math.Pow(10, q/20), b.sampleRate)
		}
	case Bandpass:
		switch {
		case f <= 0 || f >= 1:
			b.c = biquad.Coefficients{}
		case q <= 0:
			b.c = passThrough
		default:
			b.c = bandpass(math.Pi*f, q)
		}
	}
}

var passThrough = biquad.Coefficients{B0: 1}

// bandpass has a peak gain of 0 dB at the centre frequency w0, in radians
// per sample.
func bandpass(w0, q float64) biquad.Coefficients {
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha
	return biquad.Coefficients{
		B0: alpha / a0,
		B2: -alpha / a0,
		A1: -2 * math.Cos(w0) / a0,
		A2: (1 - alpha) / a0,
	}
}

func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}
