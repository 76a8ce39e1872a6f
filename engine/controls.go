package engine

import (
	"math"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/graph"
)

// Effects returns the current effect settings, including bypassed values.
func (e *Engine) Effects() cl607.Effects {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetEffects replaces every effect setting at once.
func (e *Engine) SetEffects(fx cl607.Effects) {
	e.update(func(s *cl607.Effects) { *s = fx })
}

// update applies f to the settings, clamps the result and hands it to the
// audio goroutine. Changing the reverb decay also rebuilds the impulse
// response here, off the audio goroutine.
func (e *Engine) update(f func(*cl607.Effects)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.settings
	f(&e.settings)
	e.settings = e.settings.Clamp()
	fx := e.settings
	e.pending.Store(&fx)
	if e.graph != nil && fx.ReverbSeconds() != old.ReverbSeconds() {
		conv, err := graph.NewReverb(e.sampleRate, fx.ReverbSeconds(), e.rng)
		if err != nil {
			e.logger.Error("reverb impulse rebuild failed", "seconds", fx.ReverbSeconds(), "err", err)
			return
		}
		e.send(reverbMsg{conv})
	}
}

func (e *Engine) SetLowPass(hz float64)  { e.update(func(s *cl607.Effects) { s.LowPass = hz }) }
func (e *Engine) SetHighPass(hz float64) { e.update(func(s *cl607.Effects) { s.HighPass = hz }) }

func (e *Engine) SetReverbMix(v float64) { e.update(func(s *cl607.Effects) { s.ReverbMix = v }) }

// SetReverbDecay sets the impulse length control: 0..1 maps to 0.1..4.1 s.
func (e *Engine) SetReverbDecay(v float64) { e.update(func(s *cl607.Effects) { s.ReverbDecay = v }) }

func (e *Engine) SetDelayMix(v float64)  { e.update(func(s *cl607.Effects) { s.DelayMix = v }) }
func (e *Engine) SetDelayTime(v float64) { e.update(func(s *cl607.Effects) { s.DelayTime = v }) }
func (e *Engine) SetDelayFeedback(v float64) {
	e.update(func(s *cl607.Effects) { s.DelayFeedback = v })
}

// SetSource selects what a send bus reads: the mixed bus after the isolator,
// or the tap of exactly one instrument.
func (e *Engine) SetSource(send Send, src cl607.Source) {
	e.update(func(s *cl607.Effects) {
		switch send {
		case SendReverb:
			s.ReverbSource = src
		case SendDelay:
			s.DelaySource = src
		}
	})
}

// SetSidechain sets how deep each kick ducks the other voices.
func (e *Engine) SetSidechain(v float64) { e.update(func(s *cl607.Effects) { s.Sidechain = v }) }

func (e *Engine) SetCrush(v float64) { e.update(func(s *cl607.Effects) { s.Crush = v }) }

func (e *Engine) SetTapeMix(v float64)    { e.update(func(s *cl607.Effects) { s.TapeMix = v }) }
func (e *Engine) SetTapeAmount(v float64) { e.update(func(s *cl607.Effects) { s.TapeAmount = v }) }
func (e *Engine) SetTapeTone(hz float64)  { e.update(func(s *cl607.Effects) { s.TapeTone = hz }) }

func (e *Engine) SetEnvelopeMix(v float64)    { e.update(func(s *cl607.Effects) { s.EnvMix = v }) }
func (e *Engine) SetEnvelopeAmount(v float64) { e.update(func(s *cl607.Effects) { s.EnvAmount = v }) }
func (e *Engine) SetEnvelopeBase(hz float64)  { e.update(func(s *cl607.Effects) { s.EnvBase = hz }) }
func (e *Engine) SetEnvelopeQ(v float64)      { e.update(func(s *cl607.Effects) { s.EnvQ = v }) }

func (e *Engine) SetLofiMix(v float64) { e.update(func(s *cl607.Effects) { s.LofiMix = v }) }

// SetIsolatorGain sets the gain of one isolator band, in [0, 1.5].
func (e *Engine) SetIsolatorGain(b cl607.Band, v float64) {
	e.update(func(s *cl607.Effects) { s.Isolator.SetGain(b, v) })
}

// ToggleXY switches the XY filter between its dry and wet path and returns
// the new state.
func (e *Engine) ToggleXY() (on bool) {
	e.update(func(s *cl607.Effects) {
		s.XY.On = !s.XY.On
		on = s.XY.On
	})
	return on
}

// SetXY moves the XY pad: the filter frequency and the drive change together.
func (e *Engine) SetXY(hz, drive float64) {
	e.update(func(s *cl607.Effects) { s.XY.Frequency, s.XY.Drive = hz, drive })
}

// SetEnabled bypasses or re-enables an effect. A bypassed effect keeps its
// place in the graph with a neutral value; its stored setting is kept.
func (e *Engine) SetEnabled(fx cl607.Effect, on bool) {
	e.update(func(s *cl607.Effects) { s.Enabled.Set(fx, on) })
}

// SetMasterVolume sets the output gain; negative values are clamped to 0.
func (e *Engine) SetMasterVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	v = math.Max(0, v)
	e.mu.Lock()
	e.master = v
	e.mu.Unlock()
	e.send(masterMsg(v))
}

func (e *Engine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.master
}
