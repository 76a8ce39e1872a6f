// Package graph implements the signal routing of the drum machine: voice
// playback, the insert chain, the send buses, the sidechain duck and the
// master section. The same Graph is driven by the live engine and by the
// offline renderer, so both paths share one topology.
package graph

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
	"github.com/viterin/vek/vek32"
)

const (
	DuckAttack  = 0.008 // seconds
	DuckRelease = 0.15  // seconds
	duckFloor   = 0.0001
	duckMinimum = 0.01

	visualiserFreq = 60.0
	airhornDrive   = 2.5
	noiseSeconds   = 2

	// LiveMasterGain is the initial master volume of the live graph.
	LiveMasterGain = 0.7
	// VoiceAttack is the fade-in applied to live voice triggers.
	VoiceAttack = 0.005
)

type (
	// Graph is the complete signal path from the voice playbacks to the
	// stereo output. It is not safe for concurrent use: exactly one goroutine
	// owns it and calls its methods between blocks.
	Graph struct {
		sampleRate int
		opts       Options
		frame      int64

		effects cl607.Effects // effective values currently applied
		routes  Routes
		taps    Taps
		voices  []*playback

		duck       *dsp.Gain
		visualiser *dsp.Oscillator
		visGain    *dsp.Gain
		sampleHP   *dsp.Biquad
		sampleLP   *dsp.Biquad
		highPass   *dsp.Biquad
		lowPass    *dsp.Biquad
		tape       *tape
		isolator   *isolator
		lofi       *lofi
		xy         *xyFilter
		crusher    *dsp.Bitcrusher
		envelope   *envelopeFilter
		reverb     *reverb
		delay      *delay
		airhorn    *dsp.WaveShaper
		compressor *dsp.Compressor
		master     stereoGain

		buses                [cl607.NumInstruments][]float32
		main, iso, tmp, horn []float32
		left, right, gainBuf []float32
	}

	// Options select the behaviour that differs between the live and the
	// offline graph.
	Options struct {
		// Ramp applies parameter changes with a short ramp instead of
		// immediately.
		Ramp bool
		// Bitcrusher inserts the bitcrusher stage. The offline render leaves
		// it out.
		Bitcrusher bool
		// Taps creates the analysis taps and the sidechain visualiser.
		Taps bool
		// VoiceAttack is the fade-in of each trigger in seconds; zero sets the
		// volume at once.
		VoiceAttack float64
		MasterGain  float64
		// Noise is the looped noise of the lo-fi stage, usually shared with
		// the voice bank. Generated from Rand when nil.
		Noise []float32
		// Rand seeds the reverb impulse response and the default noise.
		Rand *rand.Rand
	}

	// Routes is the routing table of the two send buses: the source each of
	// them reads from. It is recomputed as a whole from the effect settings,
	// so a bus always reads exactly one source.
	Routes struct {
		Reverb cl607.Source
		Delay  cl607.Source
	}

	// playback is one triggered buffer. The start position is fractional so
	// that rates other than 1 and triggers between frames are exact.
	playback struct {
		instrument cl607.Instrument
		airhorn    bool
		buf        []float32
		startFrame float64
		rate       float64
		gain       *dsp.Param
	}
)

var errSampleRate = errors.New("sample rate must be positive")

// LiveOptions are the options of the real-time graph.
func LiveOptions() Options {
	return Options{Ramp: true, Bitcrusher: true, Taps: true, VoiceAttack: VoiceAttack, MasterGain: LiveMasterGain}
}

// OfflineOptions are the options of the render graph: parameters are baked in
// statically, voices start at full volume and the bitcrusher is left out.
func OfflineOptions(masterGain float64) Options {
	return Options{MasterGain: masterGain}
}

// RoutesFor derives the routing table from the effect settings.
func RoutesFor(e cl607.Effects) Routes {
	r := Routes{Reverb: e.ReverbSource, Delay: e.DelaySource}
	if !r.Reverb.Valid() {
		r.Reverb = cl607.SourceAll
	}
	if !r.Delay.Valid() {
		r.Delay = cl607.SourceAll
	}
	return r
}

// NewReverb builds the convolver of the reverb send for an impulse response
// of the given length.
func NewReverb(sampleRate int, seconds float64, rng *rand.Rand) (*dsp.Convolver, error) {
	if sampleRate <= 0 {
		return nil, errSampleRate
	}
	return dsp.NewConvolver(dsp.ImpulseResponse(sampleRate, seconds, rng), sampleRate)
}

// New builds the graph and applies the effect settings immediately.
func New(sampleRate int, effects cl607.Effects, opts Options) (*Graph, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("graph.New: %w", errSampleRate)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	if opts.Noise == nil {
		opts.Noise = dsp.Noise(opts.Rand, noiseSeconds*sampleRate)
	}
	effects = effects.Effective()
	conv, err := NewReverb(sampleRate, effects.ReverbSeconds(), opts.Rand)
	if err != nil {
		return nil, fmt.Errorf("graph.New: reverb: %w", err)
	}
	iso, err := newIsolator(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("graph.New: isolator: %w", err)
	}
	g := &Graph{
		sampleRate: sampleRate,
		opts:       opts,
		duck:       dsp.NewGain(1, sampleRate),
		sampleHP:   dsp.NewBiquad(dsp.Highpass, cl607.MinFilterFreq, sampleRate),
		sampleLP:   dsp.NewBiquad(dsp.Lowpass, cl607.MaxFilterFreq, sampleRate),
		highPass:   dsp.NewBiquad(dsp.Highpass, cl607.MinFilterFreq, sampleRate),
		lowPass:    dsp.NewBiquad(dsp.Lowpass, cl607.MaxFilterFreq, sampleRate),
		tape:       newTape(sampleRate),
		isolator:   iso,
		lofi:       newLofi(opts.Noise, sampleRate),
		xy:         newXYFilter(sampleRate),
		envelope:   newEnvelopeFilter(sampleRate),
		reverb:     &reverb{conv: conv, wet: newStereoGain(0, sampleRate)},
		delay:      newDelay(sampleRate),
		airhorn:    dsp.NewWaveShaper(dsp.TanhCurve(shapeCurveSize, airhornDrive), 1, sampleRate),
		compressor: dsp.NewCompressor(-18, 20, 2.5, 0.005, 0.15, sampleRate),
		master:     newStereoGain(opts.MasterGain, sampleRate),
	}
	if opts.Bitcrusher {
		g.crusher = dsp.NewBitcrusher(sampleRate)
	}
	if opts.Taps {
		g.taps = newTaps()
		g.visualiser = dsp.NewOscillator(dsp.Sine, visualiserFreq, sampleRate)
		g.visGain = dsp.NewGain(duckFloor, sampleRate)
	}
	g.applyEffects(effects, setter{ramp: false})
	return g, nil
}

func (g *Graph) SampleRate() int { return g.sampleRate }

// Time returns the time of the next frame to be rendered, in seconds.
func (g *Graph) Time() float64 { return float64(g.frame) / float64(g.sampleRate) }

// Frame returns the index of the next frame to be rendered.
func (g *Graph) Frame() int64 { return g.frame }

func (g *Graph) Taps() *Taps { return &g.taps }

func (g *Graph) Routes() Routes { return g.routes }

// Effects returns the effect values currently applied, after bypass.
func (g *Graph) Effects() cl607.Effects { return g.effects }

// SetEffects applies new effect settings at the current time. Disabled
// effects get their neutral value; the routing table is rebuilt. The reverb
// impulse response is not regenerated here, see SetReverb.
func (g *Graph) SetEffects(e cl607.Effects) {
	g.applyEffects(e.Effective(), setter{now: g.Time(), ramp: g.opts.Ramp})
}

func (g *Graph) applyEffects(e cl607.Effects, s setter) {
	s.set(g.highPass.Frequency, e.HighPass)
	s.set(g.lowPass.Frequency, e.LowPass)
	g.tape.apply(&e, s)
	g.isolator.apply(&e, s)
	g.lofi.apply(&e, s)
	g.xy.apply(&e, s)
	if g.crusher != nil {
		s.set(g.crusher.Amount, e.Crush)
	}
	g.envelope.apply(&e, s)
	g.reverb.apply(&e, s)
	g.delay.apply(&e, s)
	g.effects = e
	g.routes = RoutesFor(e)
}

// SetReverb replaces the convolver of the reverb send. The tail of the old
// impulse response is dropped.
func (g *Graph) SetReverb(c *dsp.Convolver) {
	if c != nil {
		g.reverb.conv = c
	}
}

// SetMasterGain sets the output volume.
func (g *Graph) SetMasterGain(v float64) {
	setter{now: g.Time(), ramp: g.opts.Ramp}.set(g.master.Gain, math.Max(0, v))
}

// SetSampleFilters retunes the standing filters of the sample voice.
func (g *Graph) SetSampleFilters(highPass, lowPass float64) {
	s := setter{now: g.Time(), ramp: g.opts.Ramp}
	s.set(g.sampleHP.Frequency, cl607.ClampFrequency(highPass))
	s.set(g.sampleLP.Frequency, cl607.ClampFrequency(lowPass))
}

// Trigger starts playing buf as instrument i at time when, scaled by volume
// and resampled by rate. Times in the past start at the next frame. A kick
// also ducks the other voices.
func (g *Graph) Trigger(i cl607.Instrument, buf []float32, when, volume, rate float64) {
	if !i.Valid() || len(buf) == 0 {
		return
	}
	when = math.Max(when, g.Time())
	p := g.newPlayback(buf, when, volume, rate)
	p.instrument = i
	g.voices = append(g.voices, p)
	if i == cl607.Kick {
		g.Duck(when, g.effects.Sidechain)
	}
}

// TriggerAirhorn plays buf through the airhorn shaper into the master
// section.
func (g *Graph) TriggerAirhorn(buf []float32, when float64) {
	if len(buf) == 0 {
		return
	}
	p := g.newPlayback(buf, math.Max(when, g.Time()), 1, 1)
	p.airhorn = true
	g.voices = append(g.voices, p)
}

func (g *Graph) newPlayback(buf []float32, when, volume, rate float64) *playback {
	volume = math.Max(0, math.Min(1, volume))
	if !(rate > 0) {
		rate = 1
	}
	gain := dsp.NewParam(volume)
	if g.opts.VoiceAttack > 0 {
		gain = dsp.NewParam(0)
		gain.SetValueAtTime(0, when)
		gain.LinearRampToValueAtTime(volume, when+g.opts.VoiceAttack)
	}
	return &playback{buf: buf, startFrame: when * float64(g.sampleRate), rate: rate, gain: gain}
}

// Duck schedules the sidechain envelope at time when: the duck gain drops to
// 1-amount over DuckAttack and recovers over DuckRelease. Pending automation
// is cancelled and held at when, so overlapping kicks continue from the
// current level. Amounts up to 0.01 do nothing.
func (g *Graph) Duck(when, amount float64) {
	if amount <= duckMinimum {
		return
	}
	p := g.duck.Gain
	p.CancelAndHoldAtTime(when)
	p.LinearRampToValueAtTime(math.Max(duckFloor, 1-amount), when+DuckAttack)
	p.LinearRampToValueAtTime(1, when+DuckAttack+DuckRelease)
	if g.visGain != nil {
		v := g.visGain.Gain
		v.CancelAndHoldAtTime(when)
		v.LinearRampToValueAtTime(amount, when+DuckAttack)
		v.LinearRampToValueAtTime(duckFloor, when+DuckAttack+DuckRelease)
	}
}

// DuckLevel evaluates the duck gain at time t.
func (g *Graph) DuckLevel(t float64) float64 { return g.duck.Gain.ValueAt(t) }

// Playing returns the number of voices still sounding or waiting to start.
func (g *Graph) Playing() int { return len(g.voices) }

// Process renders len(out) frames, in blocks of at most dsp.Quantum frames.
func (g *Graph) Process(out cl607.AudioBuffer) {
	for len(out) > 0 {
		n := min(len(out), dsp.Quantum)
		g.quantum(out[:n])
		out = out[n:]
	}
}

func (g *Graph) quantum(out cl607.AudioBuffer) {
	n := len(out)
	sr := float64(g.sampleRate)
	start := g.Time()
	for i := range g.buses {
		g.buses[i] = grow(g.buses[i], n)
		dsp.Clear(g.buses[i])
	}
	g.horn = grow(g.horn, n)
	g.gainBuf = grow(g.gainBuf, n)
	dsp.Clear(g.horn)
	g.mixVoices(start, sr)
	for i, bus := range g.buses {
		g.taps.Instruments[i].Write(bus, nil)
	}

	// the pitched and noise voices share the duck; kick and sample join
	// after it
	g.main = grow(g.main, n)
	dsp.Clear(g.main)
	for _, i := range []cl607.Instrument{cl607.Snare, cl607.Snap, cl607.HiHat, cl607.Clave, cl607.Cowbell} {
		dsp.Mix(g.main, g.buses[i])
	}
	g.duck.Process(g.main, start)
	g.taps.Duck.Write(g.main, nil)
	if g.visualiser != nil {
		g.tmp = grow(g.tmp, n)
		g.visualiser.Process(g.tmp, start)
		g.visGain.Process(g.tmp, start)
		g.taps.Sidechain.Write(g.tmp, nil)
	}
	g.tmp = grow(g.tmp, n)
	copy(g.tmp, g.buses[cl607.Sample])
	g.sampleHP.Process(g.tmp, start)
	g.sampleLP.Process(g.tmp, start)
	dsp.Mix(g.main, g.tmp)
	dsp.Mix(g.main, g.buses[cl607.Kick])

	g.highPass.Process(g.main, start)
	g.taps.HighPass.Write(g.main, nil)
	g.lowPass.Process(g.main, start)
	g.taps.LowPass.Write(g.main, nil)
	g.tape.process(g.main, start)
	g.taps.Tape.Write(g.main, nil)
	g.isolator.process(g.main, start)
	g.taps.Isolator.Write(g.main, nil)
	g.iso = grow(g.iso, n)
	copy(g.iso, g.main)

	g.lofi.process(g.main, start)
	g.taps.Lofi.Write(g.main, nil)
	g.xy.process(g.main, start)
	g.taps.XY.Write(g.main, nil)
	if g.crusher != nil {
		g.crusher.Process(g.main, start)
		g.taps.Crusher.Write(g.main, nil)
	}

	g.left = grow(g.left, n)
	g.right = grow(g.right, n)
	copy(g.left, g.main)
	copy(g.right, g.main)

	g.envelope.process(g.iso, g.tmp, start)
	g.taps.Envelope.Write(g.tmp, nil)
	dsp.Mix(g.left, g.tmp)
	dsp.Mix(g.right, g.tmp)

	g.reverb.process(g.sendInput(g.routes.Reverb), g.left, g.right, start)
	g.taps.Reverb.Write(g.reverb.left, g.reverb.right)

	g.delay.process(g.sendInput(g.routes.Delay), g.tmp, start)
	g.taps.Delay.Write(g.tmp, nil)
	dsp.Mix(g.left, g.tmp)
	dsp.Mix(g.right, g.tmp)

	if !dsp.Silent(g.horn) {
		g.airhorn.Process(g.horn)
		dsp.Mix(g.left, g.horn)
		dsp.Mix(g.right, g.horn)
	}

	g.compressor.Process(g.left, g.right)
	g.taps.Master.Write(g.left, g.right)
	g.master.process(g.left, g.right, start)
	for i := range out {
		out[i] = [2]float32{g.left[i], g.right[i]}
	}
	g.frame += int64(n)
}

// sendInput resolves a send source to the block it reads.
func (g *Graph) sendInput(s cl607.Source) []float32 {
	if i, ok := s.Instrument(); ok {
		return g.buses[i]
	}
	return g.iso
}

// mixVoices adds every playback to its bus and drops the finished ones.
func (g *Graph) mixVoices(start, sampleRate float64) {
	first := float64(g.frame)
	kept := g.voices[:0]
	for _, p := range g.voices {
		dst := g.horn
		if !p.airhorn {
			dst = g.buses[p.instrument]
		}
		if p.mix(dst, first, start, sampleRate, g.gainBuf) {
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(g.voices); i++ {
		g.voices[i] = nil
	}
	g.voices = kept
}

// mix adds the playback to dst, the block starting at frame first, and
// reports whether it has frames left to play.
func (p *playback) mix(dst []float32, first, start, sampleRate float64, gainBuf []float32) bool {
	n := len(dst)
	end := float64(len(p.buf))
	if first+float64(n) <= p.startFrame {
		p.gain.Prune(start)
		return true
	}
	p.gain.Fill(gainBuf[:n], start, sampleRate)
	for i := range dst {
		pos := (first + float64(i) - p.startFrame) * p.rate
		if pos < 0 {
			continue
		}
		if pos >= end {
			return false
		}
		k := int(pos)
		v := p.buf[k]
		if f := float32(pos - float64(k)); f > 0 && k+1 < len(p.buf) {
			v += (p.buf[k+1] - v) * f
		}
		dst[i] += v * gainBuf[i]
	}
	return (first+float64(n)-p.startFrame)*p.rate < end
}

// Render runs the graph for frames frames into a new buffer.
func (g *Graph) Render(frames int) cl607.AudioBuffer {
	buf := make(cl607.AudioBuffer, frames)
	g.Process(buf)
	return buf
}

// Peak returns the largest absolute sample of the buffer.
func Peak(buf cl607.AudioBuffer) float32 {
	if len(buf) == 0 {
		return 0
	}
	flat := make([]float32, 0, 2*len(buf))
	for _, f := range buf {
		flat = append(flat, f[0], f[1])
	}
	vek32.Abs_Inplace(flat)
	return vek32.Max(flat)
}
