package graph

import (
	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
	"github.com/cwbudde/algo-dsp/dsp/filter/crossover"
	"github.com/viterin/vek/vek32"
)

const (
	tapeCurveSize  = 44101
	shapeCurveSize = 257

	isolatorLowFreq  = 300.0
	isolatorHighFreq = 3000.0
	isolatorOrder    = 4

	envelopeSmoothing = 10.0 // Hz
	envelopeRange     = 8000.0
	lofiNoiseLevel    = 0.004
	xyResonance       = 5.0
)

type (
	// setter applies a parameter value either with a short ramp starting at
	// now, or immediately.
	setter struct {
		now  float64
		ramp bool
	}

	// tape is a parallel saturation insert: a tanh shaper followed by a tone
	// lowpass, mixed against the dry signal.
	tape struct {
		dry, wet *dsp.Gain
		shaper   *dsp.WaveShaper
		tone     *dsp.Biquad
		amount   float64
		buf      []float32
	}

	// isolator splits the signal into three bands with two fixed
	// Linkwitz-Riley crossovers and sums them back with independent gains.
	isolator struct {
		low, high *crossover.Crossover
		gains     [3]*dsp.Gain
		in, rest  []float64
		bands     [3][]float64
		bufs      [3][]float32
	}

	// lofi is a parallel insert: a narrowing bandpass into a soft clipper,
	// plus a looped noise floor, both behind the wet gain.
	lofi struct {
		dry, wet  *dsp.Gain
		bandpass  *dsp.Biquad
		shaper    *dsp.WaveShaper
		noiseGain *dsp.Gain
		noise     []float32
		noisePos  int
		mix       float64
		buf, nbuf []float32
	}

	// xyFilter is a switchable resonant bandpass into a drive shaper. Its
	// frequency and drive move together with the pad position.
	xyFilter struct {
		dry, wet *dsp.Gain
		bandpass *dsp.Biquad
		shaper   *dsp.WaveShaper
		drive    float64
		buf      []float32
	}

	// envelopeFilter is a return bus: a lowpass whose cutoff follows the
	// rectified and smoothed level of its own input.
	envelopeFilter struct {
		detector *dsp.WaveShaper
		smoother *dsp.Biquad
		base     *dsp.Param
		amount   *dsp.Param
		filter   *dsp.Biquad
		wet      *dsp.Gain

		sampleRate                       float64
		env, baseBuf, amountBuf, freqBuf []float32
	}

	// reverb is the convolution send.
	reverb struct {
		conv        *dsp.Convolver
		wet         stereoGain
		left, right []float32
	}

	// delay is the feedback delay send.
	delay struct {
		line *dsp.FeedbackDelay
		wet  *dsp.Gain
		buf  []float32
	}

	// stereoGain applies one automated gain to both channels.
	stereoGain struct {
		Gain       *dsp.Param
		sampleRate float64
		buf        []float32
	}
)

func (s setter) set(p *dsp.Param, v float64) {
	if p.Static(s.now) && p.Current() == v {
		return
	}
	if s.ramp {
		p.RampTo(v, s.now)
		return
	}
	p.Set(v)
}

// silent reports whether the gain stays at zero from t on.
func silent(p *dsp.Param, t float64) bool {
	return p.Static(t) && p.Current() == 0
}

func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}

func grow64(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}

func newTape(sampleRate int) *tape {
	return &tape{
		dry:    dsp.NewGain(1, sampleRate),
		wet:    dsp.NewGain(0, sampleRate),
		shaper: dsp.NewWaveShaper(dsp.TanhCurve(tapeCurveSize, 1), 2, sampleRate),
		tone:   dsp.NewBiquad(dsp.Lowpass, cl607.MaxFilterFreq, sampleRate),
	}
}

func (u *tape) apply(e *cl607.Effects, s setter) {
	s.set(u.dry.Gain, 1-e.TapeMix)
	s.set(u.wet.Gain, e.TapeMix)
	s.set(u.tone.Frequency, e.TapeTone)
	if e.TapeAmount != u.amount {
		u.amount = e.TapeAmount
		u.shaper.Curve = dsp.TanhCurve(tapeCurveSize, 1+10*e.TapeAmount)
	}
}

func (u *tape) process(buf []float32, start float64) {
	if silent(u.wet.Gain, start) {
		u.tone.Frequency.Prune(start)
		u.dry.Process(buf, start)
		return
	}
	u.buf = grow(u.buf, len(buf))
	copy(u.buf, buf)
	u.shaper.Process(u.buf)
	u.tone.Process(u.buf, start)
	u.wet.Process(u.buf, start)
	u.dry.Process(buf, start)
	dsp.Mix(buf, u.buf)
}

func newIsolator(sampleRate int) (*isolator, error) {
	low, err := crossover.New(isolatorLowFreq, isolatorOrder, float64(sampleRate))
	if err != nil {
		return nil, err
	}
	high, err := crossover.New(isolatorHighFreq, isolatorOrder, float64(sampleRate))
	if err != nil {
		return nil, err
	}
	u := &isolator{low: low, high: high}
	for i := range u.gains {
		u.gains[i] = dsp.NewGain(1, sampleRate)
	}
	return u, nil
}

func (u *isolator) apply(e *cl607.Effects, s setter) {
	for b := range u.gains {
		s.set(u.gains[b].Gain, e.Isolator.Gain(cl607.Band(b)))
	}
}

func (u *isolator) process(buf []float32, start float64) {
	n := len(buf)
	u.in = grow64(u.in, n)
	u.rest = grow64(u.rest, n)
	for b := range u.bands {
		u.bands[b] = grow64(u.bands[b], n)
	}
	for i, x := range buf {
		u.in[i] = float64(x)
	}
	u.low.ProcessBlock(u.in, u.bands[cl607.BandLow], u.rest)
	u.high.ProcessBlock(u.rest, u.bands[cl607.BandMid], u.bands[cl607.BandHigh])
	dsp.Clear(buf)
	for b, band := range u.bands {
		u.bufs[b] = grow(u.bufs[b], n)
		for i, x := range band {
			u.bufs[b][i] = float32(x)
		}
		u.gains[b].Process(u.bufs[b], start)
		dsp.Mix(buf, u.bufs[b])
	}
}

func newLofi(noise []float32, sampleRate int) *lofi {
	u := &lofi{
		dry:       dsp.NewGain(1, sampleRate),
		wet:       dsp.NewGain(0, sampleRate),
		bandpass:  dsp.NewBiquad(dsp.Bandpass, 3500, sampleRate),
		shaper:    dsp.NewWaveShaper(dsp.TanhCurve(shapeCurveSize, 1), 2, sampleRate),
		noiseGain: dsp.NewGain(0, sampleRate),
		noise:     noise,
	}
	u.bandpass.Q.Set(2)
	return u
}

func (u *lofi) apply(e *cl607.Effects, s setter) {
	s.set(u.dry.Gain, 1-e.LofiMix)
	s.set(u.wet.Gain, e.LofiMix)
	s.set(u.bandpass.Frequency, 3500-2500*e.LofiMix)
	s.set(u.bandpass.Q, 2+6*e.LofiMix)
	s.set(u.noiseGain.Gain, e.LofiMix*lofiNoiseLevel)
	if e.LofiMix != u.mix {
		u.mix = e.LofiMix
		u.shaper.Curve = dsp.TanhCurve(shapeCurveSize, 1+8*e.LofiMix)
	}
}

func (u *lofi) process(buf []float32, start float64) {
	n := len(buf)
	// the noise loop runs whether or not it is heard
	u.nbuf = grow(u.nbuf, n)
	for i := range u.nbuf {
		if len(u.noise) == 0 {
			u.nbuf[i] = 0
			continue
		}
		u.nbuf[i] = u.noise[u.noisePos]
		u.noisePos = (u.noisePos + 1) % len(u.noise)
	}
	if silent(u.wet.Gain, start) {
		u.bandpass.Frequency.Prune(start)
		u.bandpass.Q.Prune(start)
		u.noiseGain.Gain.Prune(start)
		u.dry.Process(buf, start)
		return
	}
	u.buf = grow(u.buf, n)
	copy(u.buf, buf)
	u.bandpass.Process(u.buf, start)
	u.shaper.Process(u.buf)
	// the noise floor sits behind the wet gain
	u.noiseGain.Process(u.nbuf, start)
	dsp.Mix(u.buf, u.nbuf)
	u.wet.Process(u.buf, start)
	u.dry.Process(buf, start)
	dsp.Mix(buf, u.buf)
}

func newXYFilter(sampleRate int) *xyFilter {
	u := &xyFilter{
		dry:      dsp.NewGain(1, sampleRate),
		wet:      dsp.NewGain(0, sampleRate),
		bandpass: dsp.NewBiquad(dsp.Bandpass, cl607.MaxFilterFreq, sampleRate),
		shaper:   dsp.NewWaveShaper(dsp.TanhCurve(shapeCurveSize, 1), 2, sampleRate),
	}
	u.bandpass.Q.Set(xyResonance)
	return u
}

func (u *xyFilter) apply(e *cl607.Effects, s setter) {
	dry, wet := 1.0, 0.0
	if e.XY.On {
		dry, wet = 0, 1
	}
	s.set(u.dry.Gain, dry)
	s.set(u.wet.Gain, wet)
	s.set(u.bandpass.Frequency, e.XY.Frequency)
	if e.XY.Drive != u.drive {
		u.drive = e.XY.Drive
		u.shaper.Curve = dsp.TanhCurve(shapeCurveSize, 1+20*e.XY.Drive)
	}
}

func (u *xyFilter) process(buf []float32, start float64) {
	if silent(u.wet.Gain, start) {
		u.bandpass.Frequency.Prune(start)
		u.dry.Process(buf, start)
		return
	}
	u.buf = grow(u.buf, len(buf))
	copy(u.buf, buf)
	u.bandpass.Process(u.buf, start)
	u.shaper.Process(u.buf)
	u.wet.Process(u.buf, start)
	u.dry.Process(buf, start)
	dsp.Mix(buf, u.buf)
}

func newEnvelopeFilter(sampleRate int) *envelopeFilter {
	return &envelopeFilter{
		detector:   dsp.NewWaveShaper(dsp.AbsCurve(shapeCurveSize), 1, sampleRate),
		smoother:   dsp.NewBiquad(dsp.Lowpass, envelopeSmoothing, sampleRate),
		base:       dsp.NewParam(100),
		amount:     dsp.NewParam(0),
		filter:     dsp.NewBiquad(dsp.Lowpass, 100, sampleRate),
		wet:        dsp.NewGain(0, sampleRate),
		sampleRate: float64(sampleRate),
	}
}

func (u *envelopeFilter) apply(e *cl607.Effects, s setter) {
	s.set(u.base, e.EnvBase)
	s.set(u.amount, e.EnvAmount*envelopeRange)
	s.set(u.filter.Q, 0.1+e.EnvQ*19.9)
	s.set(u.wet.Gain, e.EnvMix)
}

// process filters in into out, which must not alias in.
func (u *envelopeFilter) process(in, out []float32, start float64) {
	if silent(u.wet.Gain, start) {
		u.base.Prune(start)
		u.amount.Prune(start)
		u.filter.Q.Prune(start)
		dsp.Clear(out)
		return
	}
	n := len(in)
	u.env = grow(u.env, n)
	u.baseBuf = grow(u.baseBuf, n)
	u.amountBuf = grow(u.amountBuf, n)
	u.freqBuf = grow(u.freqBuf, n)
	copy(u.env, in)
	u.detector.Process(u.env)
	u.smoother.Process(u.env, start)
	u.base.Fill(u.baseBuf, start, u.sampleRate)
	u.amount.Fill(u.amountBuf, start, u.sampleRate)
	vek32.Mul_Into(u.freqBuf, u.env, u.amountBuf)
	vek32.Add_Inplace(u.freqBuf, u.baseBuf)
	copy(out, in)
	u.filter.ProcessModulated(out, u.freqBuf, start)
	u.wet.Process(out, start)
}

func (u *reverb) apply(e *cl607.Effects, s setter) {
	s.set(u.wet.Gain, e.ReverbMix)
}

// process convolves in and adds the wet signal to left and right.
func (u *reverb) process(in, left, right []float32, start float64) {
	n := len(in)
	u.left = grow(u.left, n)
	u.right = grow(u.right, n)
	dsp.Clear(u.left)
	dsp.Clear(u.right)
	if u.conv != nil {
		u.conv.Process(in, u.left, u.right)
	}
	u.wet.process(u.left, u.right, start)
	dsp.Mix(left, u.left)
	dsp.Mix(right, u.right)
}

func newDelay(sampleRate int) *delay {
	return &delay{
		line: dsp.NewFeedbackDelay(cl607.MaxDelayTime, 0.27, 0.3, sampleRate),
		wet:  dsp.NewGain(0, sampleRate),
	}
}

func (u *delay) apply(e *cl607.Effects, s setter) {
	s.set(u.line.Time, e.DelayTime)
	s.set(u.line.Feedback, e.DelayFeedback)
	s.set(u.wet.Gain, e.DelayMix)
}

// process feeds the delay line and writes its wet output to out.
func (u *delay) process(in, out []float32, start float64) {
	u.line.Process(in, out, start)
	u.wet.Process(out, start)
}

func newStereoGain(v float64, sampleRate int) stereoGain {
	return stereoGain{Gain: dsp.NewParam(v), sampleRate: float64(sampleRate)}
}

func (g *stereoGain) process(left, right []float32, start float64) {
	g.buf = grow(g.buf, len(left))
	g.Gain.Fill(g.buf, start, g.sampleRate)
	vek32.Mul_Inplace(left, g.buf)
	vek32.Mul_Inplace(right, g.buf)
}
