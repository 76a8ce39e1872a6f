package dsp

import "github.com/viterin/vek/vek32"

// Gain multiplies a signal by an automatable gain.
type Gain struct {
	Gain *Param

	sampleRate float64
	buf        []float32
}

func NewGain(gain float64, sampleRate int) *Gain {
	return &Gain{Gain: NewParam(gain), sampleRate: float64(sampleRate)}
}

// Process scales buf in place. start is the time of the first frame.
func (g *Gain) Process(buf []float32, start float64) {
	if g.Gain.Static(start) {
		g.Gain.prune(start)
		if v := float32(g.Gain.Current()); v != 1 {
			vek32.MulNumber_Inplace(buf, v)
		}
		return
	}
	g.buf = grow(g.buf, len(buf))
	g.Gain.Fill(g.buf, start, g.sampleRate)
	vek32.Mul_Inplace(buf, g.buf)
}

// ProcessInto writes src scaled by the gain into dst, leaving src intact.
func (g *Gain) ProcessInto(dst, src []float32, start float64) {
	copy(dst, src)
	g.Process(dst, start)
}

// Mix adds src into dst.
func Mix(dst, src []float32) {
	vek32.Add_Inplace(dst, src)
}

// Clear zeroes the block.
func Clear(buf []float32) {
	vek32.Zeros_Into(buf, len(buf))
}

// Silent reports whether every sample of the block is zero.
func Silent(buf []float32) bool {
	return len(buf) == 0 || vek32.Max(buf) == 0 && vek32.Min(buf) == 0
}
