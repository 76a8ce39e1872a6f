package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

type (
	// WaveShaper maps each sample through a transfer curve. The curve spans
	// the input range [-1, 1] and is linearly interpolated; inputs outside the
	// range map to the end points. With oversampling, the signal is upsampled,
	// shaped and filtered back down to suppress aliasing.
	WaveShaper struct {
		Curve      []float32
		Oversample int // 1, 2 or 4

		sampleRate int
		up, down   [2]*biquad.Section
		tmp        []float32
	}
)

// Butterworth pole pair quality factors for a 4th order lowpass.
var butterworthQ = [2]float64{0.54119610, 1.30656296}

func NewWaveShaper(curve []float32, oversample int, sampleRate int) *WaveShaper {
	w := &WaveShaper{Curve: curve, Oversample: max(1, oversample), sampleRate: sampleRate}
	if w.Oversample > 1 {
		rate := float64(sampleRate * w.Oversample)
		for i, q := range butterworthQ {
			w.up[i] = biquad.NewSection(design.Lowpass(0.45*float64(sampleRate), q, rate))
			w.down[i] = biquad.NewSection(design.Lowpass(0.45*float64(sampleRate), q, rate))
		}
	}
	return w
}

// Process shapes buf in place.
func (w *WaveShaper) Process(buf []float32) {
	if len(w.Curve) == 0 {
		return
	}
	if w.Oversample <= 1 {
		for i, x := range buf {
			buf[i] = shape(w.Curve, x)
		}
		return
	}
	n := w.Oversample
	w.tmp = grow(w.tmp, len(buf)*n)
	for i, x := range buf { // zero stuffing
		w.tmp[i*n] = x * float32(n)
		for j := 1; j < n; j++ {
			w.tmp[i*n+j] = 0
		}
	}
	filterSections(w.up[:], w.tmp)
	for i, x := range w.tmp {
		w.tmp[i] = shape(w.Curve, x)
	}
	filterSections(w.down[:], w.tmp)
	for i := range buf {
		buf[i] = w.tmp[i*n]
	}
}

func filterSections(sections []*biquad.Section, buf []float32) {
	for _, s := range sections {
		for i, x := range buf {
			buf[i] = float32(s.ProcessSample(float64(x)))
		}
	}
}

func shape(curve []float32, x float32) float32 {
	n := len(curve)
	v := float32(n-1) / 2 * (x + 1)
	if v <= 0 || v != v {
		return curve[0]
	}
	if v >= float32(n-1) {
		return curve[n-1]
	}
	k := int(v)
	f := v - float32(k)
	return curve[k]*(1-f) + curve[k+1]*f
}

// curveX returns the input value of point i of an n point curve. The end
// points are -1 and 1, so an odd n puts a point at exactly 0.
func curveX(i, n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(i)*2/float64(n-1) - 1
}

// TanhCurve returns an n point curve of tanh(k*x) over [-1, 1].
func TanhCurve(n int, k float64) []float32 {
	curve := make([]float32, n)
	for i := range curve {
		curve[i] = float32(math.Tanh(curveX(i, n) * k))
	}
	return curve
}

// AbsCurve returns an n point full-wave rectifier curve.
func AbsCurve(n int) []float32 {
	curve := make([]float32, n)
	for i := range curve {
		curve[i] = float32(math.Abs(curveX(i, n)))
	}
	return curve
}
