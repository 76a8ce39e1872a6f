package voice_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
	"github.com/cl607/cl607/voice"
)

const sampleRate = 44100

func newBank(t *testing.T) *voice.Bank {
	t.Helper()
	bank, err := voice.NewBank(sampleRate, cl607.DefaultKit(), rand.New(rand.NewSource(1)), nil)
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}
	return bank
}

func seconds(s float64) int { return int(math.Ceil(s * sampleRate)) }

func abs(x int) int { return max(x, -x) }

func TestBufferLengths(t *testing.T) {
	bank := newBank(t)
	cases := []struct {
		instrument cl607.Instrument
		frames     int
	}{
		{cl607.Kick, seconds(0.9)},
		{cl607.Snare, seconds(0.2)},
		{cl607.HiHat, seconds(0.05)},
		{cl607.Snap, seconds(0.04)},
		{cl607.Clave, seconds(0.1)},
		{cl607.Cowbell, seconds(0.5)},
	}
	for _, c := range cases {
		if got := len(bank.Buffer(c.instrument)); abs(got-c.frames) > 1 {
			t.Errorf("%v: %d frames, want %d", c.instrument, got, c.frames)
		}
	}
	if bank.Buffer(cl607.Sample) != nil {
		t.Errorf("the sample voice should be empty until something is recorded")
	}
	if got := len(bank.Airhorn()); abs(got-seconds(1.1)) > 1 {
		t.Errorf("airhorn: %d frames, want %d", got, seconds(1.1))
	}
	if got := len(bank.Noise()); got != voice.NoiseSeconds*sampleRate {
		t.Errorf("noise: %d frames", got)
	}
}

func TestVoicesAreAudibleAndFinite(t *testing.T) {
	bank := newBank(t)
	for _, i := range cl607.Instruments() {
		if i == cl607.Sample {
			continue
		}
		buf := bank.Buffer(i)
		var peak float64
		for k, v := range buf {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("%v: sample %d is %v", i, k, v)
			}
			peak = math.Max(peak, math.Abs(float64(v)))
		}
		if peak < 0.01 || peak > 4 {
			t.Errorf("%v: peak %v out of the expected range", i, peak)
		}
	}
}

func TestKickDecayChangesLength(t *testing.T) {
	bank := newBank(t)
	p := bank.Kit().Kick
	p.Decay = 2
	if err := bank.SetKick(p); err != nil {
		t.Fatalf("SetKick failed: %v", err)
	}
	if got, want := len(bank.Buffer(cl607.Kick)), seconds(1.7); abs(got-want) > 1 {
		t.Errorf("kick with decay 2: %d frames, want %d", got, want)
	}
	p.Decay = 0.01 // the body never gets shorter than 0.1 s
	bank.SetKick(p)
	if got, want := len(bank.Buffer(cl607.Kick)), seconds(0.2); abs(got-want) > 1 {
		t.Errorf("kick with a tiny decay: %d frames, want %d", got, want)
	}
}

func TestSetParamRerenders(t *testing.T) {
	bank := newBank(t)
	before := bank.Buffer(cl607.Cowbell)
	live, err := bank.SetParam(cl607.Cowbell, cl607.ParamDecay, 2)
	if err != nil || live {
		t.Fatalf("SetParam = %v, %v", live, err)
	}
	after := bank.Buffer(cl607.Cowbell)
	if len(after) != seconds(1) || len(before) == len(after) {
		t.Errorf("cowbell was not re-rendered: %d -> %d frames", len(before), len(after))
	}
	if got := bank.Kit().Instruments[cl607.Cowbell].Decay; got != 2 {
		t.Errorf("stored decay = %v, want 2", got)
	}
}

func TestSampleFilterParamsAreLive(t *testing.T) {
	bank := newBank(t)
	if err := bank.SetSample([]float32{0.1, 0.2}); err != nil {
		t.Fatalf("SetSample failed: %v", err)
	}
	live, err := bank.SetParam(cl607.Sample, cl607.ParamLowPass, 800)
	if err != nil || !live {
		t.Errorf("low-pass of the sample should be a live filter change, got %v, %v", live, err)
	}
	live, err = bank.SetParam(cl607.Sample, cl607.ParamPitch, 2)
	if err != nil || live {
		t.Errorf("sample pitch should be stored only, got %v, %v", live, err)
	}
	if got := len(bank.Buffer(cl607.Sample)); got != 2 {
		t.Errorf("sample buffer must never be re-rendered, has %d frames", got)
	}
	if err := bank.SetSample(nil); !errors.Is(err, voice.ErrEmptySample) {
		t.Errorf("expected ErrEmptySample, got %v", err)
	}
}

func TestKickHasNoGenericParams(t *testing.T) {
	bank := newBank(t)
	if _, err := bank.SetParam(cl607.Kick, cl607.ParamDecay, 1); err == nil {
		t.Errorf("expected an error: the kick is edited with SetKick")
	}
}

func TestRenderRejectsInvalidInput(t *testing.T) {
	noise := dsp.Noise(rand.New(rand.NewSource(1)), sampleRate)
	if _, err := voice.Render(cl607.Sample, cl607.DefaultInstrumentParams(cl607.Sample), noise, sampleRate); err == nil {
		t.Errorf("the sample voice has no recipe")
	}
	if _, err := voice.Render(cl607.Snare, cl607.InstrumentParams{Decay: -1, Tone: 1}, noise, sampleRate); err == nil {
		t.Errorf("expected an error for a negative duration")
	}
	if _, err := voice.RenderKick(cl607.DefaultKickParams(), noise, 0); err == nil {
		t.Errorf("expected an error for sample rate 0")
	}
}

func TestKickClickIsSaturated(t *testing.T) {
	noise := make([]float32, sampleRate)
	rng := rand.New(rand.NewSource(3))
	for i := range noise {
		noise[i] = float32(rng.Float64()*2 - 1)
	}
	p := cl607.DefaultKickParams()
	p.BodyGain = 0
	p.ClickMix = 1
	render := func(saturation float64) []float32 {
		p.SaturationAmount = saturation
		buf, err := voice.RenderKick(p, noise, sampleRate)
		if err != nil {
			t.Fatalf("RenderKick failed: %v", err)
		}
		return buf
	}
	soft, hard := render(1), render(20)
	same := true
	for i := range soft {
		if soft[i] != hard[i] {
			same = false
			break
		}
	}
	if same {
		t.Errorf("the click should pass through the saturator")
	}
}

func TestKickEndsWithoutOffset(t *testing.T) {
	buf, err := voice.RenderKick(cl607.DefaultKickParams(), newBank(t).Noise(), sampleRate)
	if err != nil {
		t.Fatalf("RenderKick failed: %v", err)
	}
	for i, v := range buf[len(buf)-100:] {
		if math.Abs(float64(v)) > 1e-4 {
			t.Fatalf("kick tail[%d] = %v, want silence", i, v)
		}
	}
}
