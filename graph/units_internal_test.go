package graph

import (
	"math"
	"testing"

	"github.com/cl607/cl607"
)

func sineBlocks(freq float64, frames int) []float32 {
	buf := make([]float32, frames)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / 44100))
	}
	return buf
}

func isolatorPeak(t *testing.T, gains cl607.Isolator, freq float64) float64 {
	t.Helper()
	u, err := newIsolator(44100)
	if err != nil {
		t.Fatalf("newIsolator failed: %v", err)
	}
	e := cl607.DefaultEffects()
	e.Isolator = gains
	u.apply(&e, setter{})
	buf := sineBlocks(freq, 16384)
	for i := 0; i < len(buf); i += 128 {
		u.process(buf[i:i+128], float64(i)/44100)
	}
	var peak float64
	for _, v := range buf[len(buf)/2:] {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	return peak
}

func TestIsolatorBands(t *testing.T) {
	unity := cl607.Isolator{Low: 1, Mid: 1, High: 1}
	for _, freq := range []float64{60, 1000, 8000} {
		if p := isolatorPeak(t, unity, freq); math.Abs(p-1) > 0.05 {
			t.Errorf("unity bands at %v Hz: peak %v, want 1", freq, p)
		}
	}
	cases := []struct {
		gains cl607.Isolator
		freq  float64
	}{
		{cl607.Isolator{Low: 0, Mid: 1, High: 1}, 60},
		{cl607.Isolator{Low: 1, Mid: 0, High: 1}, 1000},
		{cl607.Isolator{Low: 1, Mid: 1, High: 0}, 12000},
	}
	for _, c := range cases {
		if p := isolatorPeak(t, c.gains, c.freq); p > 0.2 {
			t.Errorf("cut band %+v at %v Hz: peak %v, want it attenuated", c.gains, c.freq, p)
		}
	}
}
