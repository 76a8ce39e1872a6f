package dsp

import "math"

// Quantum is the number of frames processed per block by the graphs. A delay
// inside a feedback loop can never be shorter than one quantum.
const Quantum = 128

// FeedbackDelay is a fractional delay line whose output is fed back to its
// input through an automatable gain.
type FeedbackDelay struct {
	Time     *Param // seconds
	Feedback *Param

	sampleRate float64
	maxDelay   float64
	buf        []float32
	write      int
	timeBuf    []float32
	fbBuf      []float32
}

func NewFeedbackDelay(maxDelay, delay, feedback float64, sampleRate int) *FeedbackDelay {
	n := int(math.Ceil(maxDelay*float64(sampleRate))) + Quantum + 2
	return &FeedbackDelay{
		Time:       NewParam(delay),
		Feedback:   NewParam(feedback),
		sampleRate: float64(sampleRate),
		maxDelay:   maxDelay,
		buf:        make([]float32, n),
	}
}

// Process feeds in to the delay line and writes the delayed signal to out.
func (d *FeedbackDelay) Process(in, out []float32, start float64) {
	d.timeBuf = grow(d.timeBuf, len(in))
	d.fbBuf = grow(d.fbBuf, len(in))
	d.Time.Fill(d.timeBuf, start, d.sampleRate)
	d.Feedback.Fill(d.fbBuf, start, d.sampleRate)
	minDelay := float64(Quantum) / d.sampleRate
	n := len(d.buf)
	for i, x := range in {
		delay := math.Max(minDelay, math.Min(float64(d.timeBuf[i]), d.maxDelay))
		pos := float64(d.write) - delay*d.sampleRate
		for pos < 0 {
			pos += float64(n)
		}
		k := int(pos)
		f := float32(pos - float64(k))
		y := d.buf[k%n]*(1-f) + d.buf[(k+1)%n]*f
		out[i] = y
		d.buf[d.write] = x + d.fbBuf[i]*y
		d.write = (d.write + 1) % n
	}
}
