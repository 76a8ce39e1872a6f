package dsp

import (
	"errors"
	"math"
	"math/rand"
)

// PartitionSize is the block length of the partitioned convolution. The wet
// output of a Convolver lags its input by exactly one partition.
const PartitionSize = 1024

type (
	// Convolver convolves a mono input with a stereo impulse response using
	// uniformly partitioned FFT convolution. The response is normalized by its
	// RMS power so that impulse responses of different lengths sound equally
	// loud.
	Convolver struct {
		fft   *FFT
		parts [2][][]complex128 // spectra of the impulse response partitions
		fdl   [][]complex128    // frequency domain delay line of input spectra
		head  int               // index of the newest spectrum in fdl
		scale float64

		input  []float64 // last 2*PartitionSize input samples
		output [2][]float32
		pos    int
		accum  []complex128
		tmp    []complex128
	}
)

// NewConvolver prepares the partitions of a stereo impulse response recorded
// at the given sample rate.
func NewConvolver(ir [2][]float32, sampleRate int) (*Convolver, error) {
	if len(ir[0]) == 0 || len(ir[0]) != len(ir[1]) {
		return nil, errors.New("impulse response channels must be non-empty and of equal length")
	}
	n := 2 * PartitionSize
	fft, err := NewFFT(n)
	if err != nil {
		return nil, err
	}
	c := &Convolver{
		fft:    fft,
		scale:  normalizationScale(ir, sampleRate),
		input:  make([]float64, n),
		output: [2][]float32{make([]float32, PartitionSize), make([]float32, PartitionSize)},
		accum:  make([]complex128, n),
		tmp:    make([]complex128, n),
	}
	count := (len(ir[0]) + PartitionSize - 1) / PartitionSize
	for ch := range ir {
		c.parts[ch] = make([][]complex128, count)
		for p := range count {
			spec := make([]complex128, n)
			seg := ir[ch][p*PartitionSize : min(len(ir[ch]), (p+1)*PartitionSize)]
			for i, v := range seg {
				spec[i] = complex(float64(v), 0)
			}
			if err := fft.Forward(spec); err != nil {
				return nil, err
			}
			c.parts[ch][p] = spec
		}
	}
	c.fdl = make([][]complex128, count)
	for i := range c.fdl {
		c.fdl[i] = make([]complex128, n)
	}
	return c, nil
}

// Process convolves in and adds the result to left and right. The length
// of in must divide PartitionSize.
func (c *Convolver) Process(in, left, right []float32) {
	for i, x := range in {
		c.input[PartitionSize+c.pos] = float64(x)
		left[i] += c.output[0][c.pos]
		right[i] += c.output[1][c.pos]
		c.pos++
		if c.pos == PartitionSize {
			c.block()
			c.pos = 0
		}
	}
}

func (c *Convolver) block() {
	n := 2 * PartitionSize
	c.head = (c.head + 1) % len(c.fdl)
	spec := c.fdl[c.head]
	for i, v := range c.input {
		spec[i] = complex(v, 0)
	}
	// every buffer has the plan's size, so the transforms cannot fail
	_ = c.fft.Forward(spec)
	copy(c.input[:PartitionSize], c.input[PartitionSize:])
	for ch := range c.parts {
		for i := range c.accum {
			c.accum[i] = 0
		}
		for p, h := range c.parts[ch] {
			x := c.fdl[(c.head-p+len(c.fdl))%len(c.fdl)]
			for i := range c.accum {
				c.accum[i] += x[i] * h[i]
			}
		}
		copy(c.tmp, c.accum)
		_ = c.fft.Inverse(c.tmp)
		// overlap-save: the second half is the valid part
		for i := range PartitionSize {
			c.output[ch][i] = float32(real(c.tmp[n-PartitionSize+i]) * c.scale)
		}
	}
}

func normalizationScale(ir [2][]float32, sampleRate int) float64 {
	const (
		gainCalibration           = 0.00125
		gainCalibrationSampleRate = 44100
		minPower                  = 0.000125
	)
	var power float64
	for _, ch := range ir {
		for _, v := range ch {
			power += float64(v) * float64(v)
		}
	}
	power = math.Sqrt(power / float64(2*len(ir[0])))
	if math.IsNaN(power) || math.IsInf(power, 0) || power < minPower {
		power = minPower
	}
	return 1 / power * gainCalibration * gainCalibrationSampleRate / float64(sampleRate)
}

// ImpulseResponse generates the stereo noise burst used as a reverb
// response: white noise shaped by (1-t)^2.5 over
// ceil(sampleRate*max(0.01, decay)) frames.
func ImpulseResponse(sampleRate int, decay float64, rng *rand.Rand) [2][]float32 {
	n := int(math.Ceil(float64(sampleRate) * math.Max(0.01, decay)))
	ir := [2][]float32{make([]float32, n), make([]float32, n)}
	for i := range n {
		env := math.Pow(1-float64(i)/float64(n), 2.5)
		ir[0][i] = float32((rng.Float64()*2 - 1) * env)
		ir[1][i] = float32((rng.Float64()*2 - 1) * env)
	}
	return ir
}
