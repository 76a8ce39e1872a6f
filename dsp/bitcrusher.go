package dsp

import "math"

// Bitcrusher reduces the bit depth and the effective sample rate of a signal.
// At amount a the signal is quantized to 16-14a bits and a new sample is
// taken every 1/(0.9a) frames; amount 0 passes the signal through.
type Bitcrusher struct {
	Amount *Param

	sampleRate float64
	phase      float64
	hold       float32
	amountBuf  []float32
}

func NewBitcrusher(sampleRate int) *Bitcrusher {
	return &Bitcrusher{Amount: NewParam(0), sampleRate: float64(sampleRate)}
}

func (b *Bitcrusher) Process(buf []float32, start float64) {
	b.amountBuf = grow(b.amountBuf, len(buf))
	b.Amount.Fill(b.amountBuf, start, b.sampleRate)
	for i, x := range buf {
		a := float64(b.amountBuf[i])
		if a == 0 {
			continue
		}
		step := math.Pow(0.5, 16-14*a)
		b.phase += a * 0.9
		if b.phase >= 1 {
			b.phase -= 1
			b.hold = float32(step * math.Floor(float64(x)/step+0.5))
		}
		buf[i] = b.hold
	}
}
