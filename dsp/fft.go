package dsp

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// FFT is a complex FFT of a fixed power-of-two size that transforms in
// place.
type FFT struct {
	plan *algofft.Plan[complex128]
	buf  []complex128
}

func NewFFT(n int) (*FFT, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("FFT size %d is not a power of two", n)
	}
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("FFT plan of size %d: %w", n, err)
	}
	return &FFT{plan: plan, buf: make([]complex128, n)}, nil
}

func (f *FFT) Len() int { return len(f.buf) }

// Forward computes the discrete Fourier transform of c in place.
func (f *FFT) Forward(c []complex128) error {
	if err := f.plan.Forward(f.buf, c); err != nil {
		return err
	}
	copy(c, f.buf)
	return nil
}

// Inverse computes the inverse transform of c in place, including the 1/n
// scaling. It runs the forward plan on the conjugate.
func (f *FFT) Inverse(c []complex128) error {
	for i, v := range c {
		c[i] = complex(real(v), -imag(v))
	}
	if err := f.plan.Forward(f.buf, c); err != nil {
		return err
	}
	s := 1 / float64(len(f.buf))
	for i, v := range f.buf {
		c[i] = complex(real(v)*s, -imag(v)*s)
	}
	return nil
}
