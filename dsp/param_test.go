package dsp_test

import (
	"math"
	"testing"

	"github.com/cl607/cl607/dsp"
)

func TestParamLinearRamp(t *testing.T) {
	p := dsp.NewParam(0)
	p.SetValueAtTime(0, 1)
	p.LinearRampToValueAtTime(1, 2)
	for _, c := range []struct{ t, want float64 }{{0.5, 0}, {1, 0}, {1.5, 0.5}, {2, 1}, {3, 1}} {
		if got := p.ValueAt(c.t); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("ValueAt(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestParamExponentialRamp(t *testing.T) {
	p := dsp.NewParam(1)
	p.SetValueAtTime(1, 0)
	p.ExponentialRampToValueAtTime(0.01, 1)
	if got := p.ValueAt(0.5); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("ValueAt(0.5) = %v, want 0.1", got)
	}
	z := dsp.NewParam(0)
	z.SetValueAtTime(0, 0)
	z.ExponentialRampToValueAtTime(1, 1)
	if got := z.ValueAt(0.5); got != 0 {
		t.Errorf("exponential ramp from zero should hold the start value, got %v", got)
	}
	if got := z.ValueAt(1); got != 1 {
		t.Errorf("exponential ramp from zero should reach the end value at its end time, got %v", got)
	}
}

func TestParamCancelAndHold(t *testing.T) {
	p := dsp.NewParam(1)
	p.SetValueAtTime(1, 0)
	p.LinearRampToValueAtTime(0, 1)
	p.CancelAndHoldAtTime(0.5)
	if got := p.ValueAt(0.25); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("value before the hold point should follow the truncated ramp, got %v", got)
	}
	if got := p.ValueAt(0.9); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("value after the hold point should be held at 0.5, got %v", got)
	}
	p.LinearRampToValueAtTime(1, 0.6)
	if got := p.ValueAt(0.55); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("new ramp should start from the held value, got %v", got)
	}
}

func TestParamRampTo(t *testing.T) {
	p := dsp.NewParam(100)
	p.RampTo(200, 3)
	if got := p.ValueAt(3); got != 100 {
		t.Errorf("ramp should start from the current value, got %v", got)
	}
	if got := p.ValueAt(3 + dsp.RampTime/2); math.Abs(got-150) > 1e-9 {
		t.Errorf("ramp midpoint = %v, want 150", got)
	}
	if got := p.ValueAt(3 + dsp.RampTime); got != 200 {
		t.Errorf("ramp end = %v, want 200", got)
	}
}

func TestParamFillPrunes(t *testing.T) {
	p := dsp.NewParam(0)
	const sr = 1000
	buf := make([]float32, 10)
	for i := range 100 {
		now := float64(i) * 0.01
		p.RampTo(float64(i), now)
		p.Fill(buf, now, sr)
	}
	if got := p.Current(); got != 99 {
		t.Errorf("Current() = %v, want 99", got)
	}
	p.Fill(buf, 2, sr)
	for i, v := range buf {
		if v != 99 {
			t.Fatalf("buf[%d] = %v, want 99 after all ramps", i, v)
		}
	}
}
