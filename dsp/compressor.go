package dsp

import "math"

type (
	// Compressor is a stereo-linked feed-forward dynamics compressor with a
	// soft knee and automatic makeup gain.
	Compressor struct {
		Threshold float64 // dB
		Knee      float64 // dB
		Ratio     float64
		Attack    float64 // seconds
		Release   float64 // seconds

		sampleRate float64
		envelope   float64 // current gain reduction in dB, <= 0
	}
)

func NewCompressor(threshold, knee, ratio, attack, release float64, sampleRate int) *Compressor {
	return &Compressor{
		Threshold:  threshold,
		Knee:       knee,
		Ratio:      max(1, ratio),
		Attack:     attack,
		Release:    release,
		sampleRate: float64(sampleRate),
	}
}

// Process compresses the two channels in place. A nil right channel
// processes the left one as mono.
func (c *Compressor) Process(left, right []float32) {
	attack := smoothing(c.Attack, c.sampleRate)
	release := smoothing(c.Release, c.sampleRate)
	makeup := c.makeupGain()
	for i := range left {
		level := math.Abs(float64(left[i]))
		if right != nil {
			level = math.Max(level, math.Abs(float64(right[i])))
		}
		target := 0.0
		if level > 0 {
			db := 20 * math.Log10(level)
			target = c.curve(db) - db
		}
		coeff := release
		if target < c.envelope {
			coeff = attack
		}
		c.envelope = target + coeff*(c.envelope-target)
		g := float32(math.Pow(10, c.envelope/20) * makeup)
		left[i] *= g
		if right != nil {
			right[i] *= g
		}
	}
}

// Reduction returns the current gain reduction in dB, zero or negative.
func (c *Compressor) Reduction() float64 { return c.envelope }

func (c *Compressor) Reset() { c.envelope = 0 }

// curve is the static input/output characteristic in dB.
func (c *Compressor) curve(x float64) float64 {
	t, k, slope := c.Threshold, c.Knee, 1/c.Ratio
	switch {
	case x <= t:
		return x
	case k > 0 && x < t+k:
		d := x - t
		return x + (slope-1)*d*d/(2*k)
	default:
		return t + k + (slope-1)*k/2 + (x-t-k)*slope
	}
}

// makeupGain restores part of the level lost at full scale input.
func (c *Compressor) makeupGain() float64 {
	fullRange := math.Pow(10, c.curve(0)/20)
	return math.Pow(1/fullRange, 0.6)
}

func smoothing(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * sampleRate))
}
