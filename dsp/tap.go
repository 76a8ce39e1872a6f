package dsp

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/cwbudde/algo-dsp/dsp/window"
	"github.com/viterin/vek/vek32"
)

// TapLength is the number of most recent frames kept by a Tap.
const TapLength = 2048

type (
	// Tap is a read-only view into a point of the signal graph, for
	// visualization. The audio goroutine writes to it; any other goroutine
	// may read copies of its contents.
	Tap struct {
		Name string

		mu      sync.Mutex
		ring    RingBuffer[[2]float32]
		scratch [][2]float32
	}

	// RingBuffer is a fixed size buffer that is written with wrapping; Cursor
	// points one past the most recently written value.
	RingBuffer[T any] struct {
		Buffer []T
		Cursor int
	}

	// Levels are the RMS and peak amplitudes of both channels of a tap.
	Levels struct {
		RMS  [2]float32
		Peak [2]float32
	}
)

func (r *RingBuffer[T]) WriteWrap(values []T) {
	r.Cursor = (r.Cursor + len(values)) % len(r.Buffer)
	a := min(len(values), r.Cursor)                 // how many values to copy before the cursor
	b := min(len(values)-a, len(r.Buffer)-r.Cursor) // how many values to copy to the end of the buffer
	copy(r.Buffer[r.Cursor-a:r.Cursor], values[len(values)-a:])
	copy(r.Buffer[len(r.Buffer)-b:], values[len(values)-a-b:])
}

// Ordered returns a copy of the buffer with the oldest value first.
func (r *RingBuffer[T]) Ordered() []T {
	ret := make([]T, 0, len(r.Buffer))
	ret = append(ret, r.Buffer[r.Cursor:]...)
	return append(ret, r.Buffer[:r.Cursor]...)
}

func NewTap(name string) *Tap {
	return &Tap{Name: name, ring: RingBuffer[[2]float32]{Buffer: make([][2]float32, TapLength)}}
}

// Write records a block. A nil right channel duplicates the left one.
func (t *Tap) Write(left, right []float32) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if cap(t.scratch) < len(left) {
		t.scratch = make([][2]float32, len(left))
	}
	frames := t.scratch[:len(left)]
	for i, l := range left {
		r := l
		if right != nil {
			r = right[i]
		}
		frames[i] = [2]float32{l, r}
	}
	if len(frames) > len(t.ring.Buffer) {
		frames = frames[len(frames)-len(t.ring.Buffer):]
	}
	t.ring.WriteWrap(frames)
}

// Waveform returns the most recent frames, oldest first.
func (t *Tap) Waveform() [][2]float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ring.Ordered()
}

func (t *Tap) Levels() Levels {
	frames := t.Waveform()
	var ret Levels
	ch := make([]float32, len(frames))
	sq := make([]float32, len(frames))
	for c := range 2 {
		for i, f := range frames {
			ch[i] = f[c]
		}
		vek32.Mul_Into(sq, ch, ch)
		ret.RMS[c] = float32(math.Sqrt(float64(vek32.Mean(sq))))
		vek32.Abs_Inplace(ch)
		ret.Peak[c] = vek32.Max(ch)
	}
	return ret
}

// Spectrum returns the power spectrum in dB of the most recent n frames,
// downmixed to mono and Hann windowed; n must be a power of two not
// larger than TapLength. The result has n/2 bins, DC excluded.
func (t *Tap) Spectrum(n int) ([]float32, error) {
	fft, err := NewFFT(n)
	if err != nil {
		return nil, err
	}
	frames := t.Waveform()
	frames = frames[len(frames)-min(n, len(frames)):]
	win := window.Generate(window.TypeHann, n)
	var normFactor float32
	for _, w := range win {
		normFactor += float32(w)
	}
	mono := make([]float32, n)
	for i, f := range frames {
		mono[i] = (f[0] + f[1]) / 2
	}
	c := make([]complex128, n)
	for i, v := range mono {
		c[i] = complex(float64(v)*win[i], 0)
	}
	if err := fft.Forward(c); err != nil {
		return nil, err
	}
	m := n / 2
	power := make([]float32, m)
	for i := range power {
		a := float32(cmplx.Abs(c[1+i])) // do not include DC
		power[i] = a * a
	}
	vek32.DivNumber_Inplace(power, normFactor*normFactor)
	vek32.MulNumber_Inplace(power[:m-1], 2)
	for i, p := range power {
		power[i] = max(p, 1e-12)
	}
	vek32.Log10_Inplace(power)
	vek32.MulNumber_Inplace(power, 10)
	return power, nil
}
