package voice

import (
	"errors"
	"fmt"
	"math"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
	"github.com/viterin/vek/vek32"
)

// NoiseSeconds is the length of the shared noise buffer used by the noise
// based voices and the lo-fi noise floor.
const NoiseSeconds = 2

var errNoRecipe = errors.New("instrument has no synthesis recipe")

// timeline is the render target of one recipe: a mono buffer of n frames.
type timeline struct {
	sampleRate int
	n          int
}

func newTimeline(sampleRate int, seconds float64) (timeline, error) {
	if sampleRate <= 0 {
		return timeline{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if !(seconds > 0) || math.IsInf(seconds, 0) {
		return timeline{}, fmt.Errorf("invalid voice duration %v s", seconds)
	}
	return timeline{sampleRate: sampleRate, n: int(math.Ceil(float64(sampleRate) * seconds))}, nil
}

func (t timeline) envelope(p *dsp.Param) []float32 {
	buf := make([]float32, t.n)
	p.Fill(buf, 0, float64(t.sampleRate))
	return buf
}

func (t timeline) oscillator(w dsp.Waveform, stop float64, freq func(*dsp.Param)) []float32 {
	o := dsp.NewOscillator(w, 0, t.sampleRate)
	freq(o.Frequency)
	o.Stop = stop
	buf := make([]float32, t.n)
	o.Process(buf, 0)
	return buf
}

func (t timeline) constant(w dsp.Waveform, stop, freq float64) []float32 {
	return t.oscillator(w, stop, func(p *dsp.Param) { p.Set(freq) })
}

// noise returns the first frames of the shared noise buffer, silent after
// stop seconds.
func (t timeline) noise(noise []float32, frames int, stop float64) []float32 {
	buf := make([]float32, t.n)
	frames = min(frames, len(noise), t.n)
	copy(buf, noise[:frames])
	if s := int(math.Ceil(stop * float64(t.sampleRate))); s < len(buf) {
		dsp.Clear(buf[s:])
	}
	return buf
}

func (t timeline) filter(buf []float32, typ dsp.FilterType, freq, q float64) {
	f := dsp.NewBiquad(typ, freq, t.sampleRate)
	f.Q.Set(q)
	f.Process(buf, 0)
}

// RenderKick synthesizes the kick: a sine swept exponentially from the start
// frequency to 50 Hz times pitch and shaped by the body envelope, plus an
// optional lowpassed noise click. The sum is saturated and goes through a fast
// limiting compressor.
func RenderKick(p cl607.KickParams, noise []float32, sampleRate int) ([]float32, error) {
	duration := math.Max(0.1, 0.8*p.Decay)
	t, err := newTimeline(sampleRate, duration+0.1)
	if err != nil {
		return nil, err
	}
	body := t.oscillator(dsp.Sine, duration, func(f *dsp.Param) {
		f.SetValueAtTime(p.StartFreq, 0)
		f.ExponentialRampToValueAtTime(50*p.Pitch, p.PitchDropTime)
	})
	gain := dsp.NewParam(0)
	gain.SetValueAtTime(0, 0)
	gain.LinearRampToValueAtTime(p.BodyGain, 0.002+p.Attack*0.01)
	gain.ExponentialRampToValueAtTime(0.001, duration)
	vek32.Mul_Inplace(body, t.envelope(gain))
	if p.ClickMix > 0.001 {
		click := t.noise(noise, int(math.Ceil(float64(sampleRate)*0.1)), p.ClickDecay+0.01)
		t.filter(click, dsp.Lowpass, p.ClickTone, 1)
		clickGain := dsp.NewParam(0)
		clickGain.SetValueAtTime(0, 0)
		clickGain.LinearRampToValueAtTime(p.ClickMix*0.8, 0.001)
		clickGain.ExponentialRampToValueAtTime(0.001, p.ClickDecay)
		vek32.Mul_Inplace(click, t.envelope(clickGain))
		vek32.Add_Inplace(body, click)
	}
	dsp.NewWaveShaper(dsp.TanhCurve(257, p.SaturationAmount), 4, sampleRate).Process(body)
	dsp.NewCompressor(-6, 10, 12, 0.001, 0.02, sampleRate).Process(body, nil)
	return body, nil
}

// Render synthesizes the buffer of a non-kick instrument. The sample voice
// has no recipe.
func Render(i cl607.Instrument, p cl607.InstrumentParams, noise []float32, sampleRate int) ([]float32, error) {
	switch i {
	case cl607.Snare:
		return renderSnare(p, noise, sampleRate)
	case cl607.HiHat:
		return renderHiHat(p, noise, sampleRate)
	case cl607.Snap:
		return renderSnap(p, noise, sampleRate)
	case cl607.Clave:
		return renderClave(p, sampleRate)
	case cl607.Cowbell:
		return renderCowbell(p, sampleRate)
	}
	return nil, fmt.Errorf("%v: %w", i, errNoRecipe)
}

func renderSnare(p cl607.InstrumentParams, noise []float32, sampleRate int) ([]float32, error) {
	duration := 0.2 * p.Decay
	t, err := newTimeline(sampleRate, duration)
	if err != nil {
		return nil, err
	}
	body := t.constant(dsp.Triangle, duration, 180)
	vek32.Add_Inplace(body, t.constant(dsp.Triangle, duration, 330))
	bodyGain := dsp.NewParam(0)
	bodyGain.SetValueAtTime(0, 0)
	bodyGain.LinearRampToValueAtTime(0.5, 0.001)
	bodyGain.ExponentialRampToValueAtTime(0.0001, 0.1*p.Decay)
	vek32.Mul_Inplace(body, t.envelope(bodyGain))

	snap := t.noise(noise, t.n, duration)
	t.filter(snap, dsp.Highpass, 1500*p.Tone, 1)
	noiseGain := dsp.NewParam(0)
	noiseGain.SetValueAtTime(0, 0)
	noiseGain.LinearRampToValueAtTime(0.5, 0.001+p.Attack*0.01)
	noiseGain.ExponentialRampToValueAtTime(0.0001, duration)
	vek32.Mul_Inplace(snap, t.envelope(noiseGain))
	vek32.Add_Inplace(body, snap)
	return body, nil
}

func renderHiHat(p cl607.InstrumentParams, noise []float32, sampleRate int) ([]float32, error) {
	duration := 0.05 * p.Decay
	t, err := newTimeline(sampleRate, duration)
	if err != nil {
		return nil, err
	}
	buf := t.noise(noise, t.n, duration)
	t.filter(buf, dsp.Bandpass, 10000*p.Pitch, 0.5)
	t.filter(buf, dsp.Highpass, 7000, 1)
	gain := dsp.NewParam(0.8)
	gain.SetValueAtTime(0.8, 0)
	gain.ExponentialRampToValueAtTime(0.01, duration)
	vek32.Mul_Inplace(buf, t.envelope(gain))
	return buf, nil
}

func renderSnap(p cl607.InstrumentParams, noise []float32, sampleRate int) ([]float32, error) {
	attack := p.Attack * 0.01
	duration := attack + math.Max(0.01, 0.04*p.Decay-attack)
	t, err := newTimeline(sampleRate, duration)
	if err != nil {
		return nil, err
	}
	buf := t.noise(noise, t.n, duration)
	bp := dsp.NewBiquad(dsp.Bandpass, 4000*p.Pitch, sampleRate)
	bp.Frequency.SetValueAtTime(4000*p.Pitch, 0)
	bp.Frequency.ExponentialRampToValueAtTime(1500*p.Pitch, 0.03*p.Decay)
	bp.Q.Set(3)
	bp.Process(buf, 0)
	gain := dsp.NewParam(0)
	gain.SetValueAtTime(0, 0)
	gain.LinearRampToValueAtTime(0.96, attack)
	gain.ExponentialRampToValueAtTime(0.001, duration)
	vek32.Mul_Inplace(buf, t.envelope(gain))
	return buf, nil
}

func renderClave(p cl607.InstrumentParams, sampleRate int) ([]float32, error) {
	duration := 0.1 * p.Decay
	t, err := newTimeline(sampleRate, duration)
	if err != nil {
		return nil, err
	}
	buf := t.constant(dsp.Sine, duration, 2200*p.Pitch)
	vek32.Add_Inplace(buf, t.constant(dsp.Sine, duration, 2215*p.Pitch))
	gain := dsp.NewParam(0.5)
	gain.SetValueAtTime(0.5, 0)
	gain.ExponentialRampToValueAtTime(0.001, duration)
	vek32.Mul_Inplace(buf, t.envelope(gain))
	return buf, nil
}

func renderCowbell(p cl607.InstrumentParams, sampleRate int) ([]float32, error) {
	duration := 0.5 * p.Decay
	t, err := newTimeline(sampleRate, duration)
	if err != nil {
		return nil, err
	}
	buf := t.constant(dsp.Square, duration, 540*p.Pitch)
	vek32.Add_Inplace(buf, t.constant(dsp.Square, duration, 810*p.Pitch))
	t.filter(buf, dsp.Lowpass, 6000, 1)
	t.filter(buf, dsp.Bandpass, 1200*p.Pitch, 1.2)
	gain := dsp.NewParam(0)
	gain.SetValueAtTime(0, 0)
	gain.LinearRampToValueAtTime(0.5, 0.001+p.Attack*0.01)
	gain.ExponentialRampToValueAtTime(0.0001, duration)
	vek32.Mul_Inplace(buf, t.envelope(gain))
	return buf, nil
}

// RenderAirhorn synthesizes the airhorn: two detuned sawtooths a fourth above
// E3 and G#3 that drop into pitch, with a sharp attack and a slow decay.
func RenderAirhorn(sampleRate int) ([]float32, error) {
	const duration = 1.0
	t, err := newTimeline(sampleRate, duration+0.1)
	if err != nil {
		return nil, err
	}
	shift := math.Pow(2, 5.0/12)
	buf := make([]float32, t.n)
	for _, base := range []float64{164.81, 207.65} {
		f := base * shift
		vek32.Add_Inplace(buf, t.oscillator(dsp.Sawtooth, duration, func(p *dsp.Param) {
			p.SetValueAtTime(f*1.25, 0)
			p.ExponentialRampToValueAtTime(f, 0.1)
		}))
	}
	gain := dsp.NewParam(0)
	gain.SetValueAtTime(0, 0)
	gain.LinearRampToValueAtTime(0.056, 0.01)
	gain.ExponentialRampToValueAtTime(0.0001, duration)
	vek32.Mul_Inplace(buf, t.envelope(gain))
	return buf, nil
}
