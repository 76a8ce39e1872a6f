package cl607

import "fmt"

type (
	// Effects is the complete parameter state of the routing graph: the value
	// of every effect parameter, each enabled flag and the source selection
	// of both send buses.
	Effects struct {
		LowPass  float64 `json:"lowPass" yaml:"lowPass"`   // Hz
		HighPass float64 `json:"highPass" yaml:"highPass"` // Hz

		ReverbMix    float64 `json:"reverbMix" yaml:"reverbMix"`
		ReverbDecay  float64 `json:"reverbDecay" yaml:"reverbDecay"` // 0..1, mapped to 0.1..4.1 s
		ReverbSource Source  `json:"reverbSource" yaml:"reverbSource"`

		DelayMix      float64 `json:"delayMix" yaml:"delayMix"`
		DelayTime     float64 `json:"delayTime" yaml:"delayTime"` // seconds
		DelayFeedback float64 `json:"delayFeedback" yaml:"delayFeedback"`
		DelaySource   Source  `json:"delaySource" yaml:"delaySource"`

		Sidechain float64 `json:"sidechain" yaml:"sidechain"`
		Crush     float64 `json:"crush" yaml:"crush"`

		TapeMix    float64 `json:"tapeMix" yaml:"tapeMix"`
		TapeAmount float64 `json:"tapeAmount" yaml:"tapeAmount"`
		TapeTone   float64 `json:"tapeTone" yaml:"tapeTone"` // Hz

		EnvMix    float64 `json:"envMix" yaml:"envMix"`
		EnvAmount float64 `json:"envAmount" yaml:"envAmount"`
		EnvBase   float64 `json:"envBase" yaml:"envBase"` // Hz
		EnvQ      float64 `json:"envQ" yaml:"envQ"`

		Isolator Isolator `json:"isolator" yaml:"isolator"`
		LofiMix  float64  `json:"lofiMix" yaml:"lofiMix"`
		XY       XYPad    `json:"xy" yaml:"xy"`

		Enabled EffectsEnabled `json:"enabled" yaml:"enabled"`
	}

	// Isolator holds the band gains of the 3-band isolator EQ, each in
	// [0, 1.5].
	Isolator struct {
		Low  float64 `json:"low" yaml:"low"`
		Mid  float64 `json:"mid" yaml:"mid"`
		High float64 `json:"high" yaml:"high"`
	}

	// XYPad is the state of the XY filter insert. On switches between the dry
	// and the wet path; Frequency and Drive are controlled jointly by the pad
	// position.
	XYPad struct {
		On        bool    `json:"on" yaml:"on"`
		Frequency float64 `json:"frequency" yaml:"frequency"`
		Drive     float64 `json:"drive" yaml:"drive"`
	}

	// EffectsEnabled has one flag per effect that can be bypassed. A bypassed
	// effect stays in the topology with a neutral parameter value.
	EffectsEnabled struct {
		LowPass   bool `json:"lowPass" yaml:"lowPass"`
		HighPass  bool `json:"highPass" yaml:"highPass"`
		Sidechain bool `json:"sidechain" yaml:"sidechain"`
		Crush     bool `json:"crush" yaml:"crush"`
		Tape      bool `json:"tape" yaml:"tape"`
		Envelope  bool `json:"envelope" yaml:"envelope"`
		Reverb    bool `json:"reverb" yaml:"reverb"`
		Delay     bool `json:"delay" yaml:"delay"`
	}

	// Band selects one isolator band.
	Band int
)

const (
	BandLow Band = iota
	BandMid
	BandHigh
)

const (
	MaxDelayTime     = 1.0
	MaxDelayFeedback = 0.95
	MaxIsolatorGain  = 1.5
)

func AllEnabled() EffectsEnabled {
	return EffectsEnabled{true, true, true, true, true, true, true, true}
}

func DefaultEffects() Effects {
	return Effects{
		LowPass:       MaxFilterFreq,
		HighPass:      MinFilterFreq,
		ReverbDecay:   0.4,
		ReverbSource:  SourceAll,
		DelayTime:     0.27,
		DelayFeedback: 0.3,
		DelaySource:   SourceAll,
		TapeTone:      MaxFilterFreq,
		EnvAmount:     0.5,
		EnvBase:       100,
		EnvQ:          0.25,
		Isolator:      Isolator{Low: 1, Mid: 1, High: 1},
		XY:            XYPad{Frequency: MaxFilterFreq},
		Enabled:       AllEnabled(),
	}
}

// Clamp forces every parameter into its documented range. Out-of-range
// inputs are clamped, never rejected.
func (e Effects) Clamp() Effects {
	e.LowPass = ClampFrequency(e.LowPass)
	e.HighPass = ClampFrequency(e.HighPass)
	e.ReverbMix = clamp(e.ReverbMix, 0, 1)
	e.ReverbDecay = clamp(e.ReverbDecay, 0, 1)
	if !e.ReverbSource.Valid() {
		e.ReverbSource = SourceAll
	}
	e.DelayMix = clamp(e.DelayMix, 0, 1)
	e.DelayTime = clamp(e.DelayTime, 0, MaxDelayTime)
	e.DelayFeedback = clamp(e.DelayFeedback, 0, MaxDelayFeedback)
	if !e.DelaySource.Valid() {
		e.DelaySource = SourceAll
	}
	e.Sidechain = clamp(e.Sidechain, 0, 1)
	e.Crush = clamp(e.Crush, 0, 1)
	e.TapeMix = clamp(e.TapeMix, 0, 1)
	e.TapeAmount = clamp(e.TapeAmount, 0, 1)
	e.TapeTone = ClampFrequency(e.TapeTone)
	e.EnvMix = clamp(e.EnvMix, 0, 1)
	e.EnvAmount = clamp(e.EnvAmount, 0, 1)
	e.EnvBase = ClampFrequency(e.EnvBase)
	e.EnvQ = clamp(e.EnvQ, 0, 1)
	e.Isolator.Low = clamp(e.Isolator.Low, 0, MaxIsolatorGain)
	e.Isolator.Mid = clamp(e.Isolator.Mid, 0, MaxIsolatorGain)
	e.Isolator.High = clamp(e.Isolator.High, 0, MaxIsolatorGain)
	e.LofiMix = clamp(e.LofiMix, 0, 1)
	e.XY.Frequency = ClampFrequency(e.XY.Frequency)
	e.XY.Drive = clamp(e.XY.Drive, 0, 1)
	return e
}

// Effective returns the parameter values that are actually applied to the
// graph: every disabled effect is replaced by its neutral bypass value.
func (e Effects) Effective() Effects {
	e = e.Clamp()
	if !e.Enabled.LowPass {
		e.LowPass = MaxFilterFreq
	}
	if !e.Enabled.HighPass {
		e.HighPass = MinFilterFreq
	}
	if !e.Enabled.Sidechain {
		e.Sidechain = 0
	}
	if !e.Enabled.Crush {
		e.Crush = 0
	}
	if !e.Enabled.Tape {
		e.TapeMix = 0
	}
	if !e.Enabled.Envelope {
		e.EnvMix = 0
	}
	if !e.Enabled.Reverb {
		e.ReverbMix = 0
	}
	if !e.Enabled.Delay {
		e.DelayMix = 0
	}
	e.Enabled = AllEnabled()
	return e
}

// ReverbSeconds maps the 0..1 decay control to the impulse response length.
func (e Effects) ReverbSeconds() float64 { return 0.1 + e.ReverbDecay*4 }

func (i Isolator) Gain(b Band) float64 {
	switch b {
	case BandLow:
		return i.Low
	case BandMid:
		return i.Mid
	case BandHigh:
		return i.High
	}
	return 0
}

func (i *Isolator) SetGain(b Band, v float64) {
	switch b {
	case BandLow:
		i.Low = v
	case BandMid:
		i.Mid = v
	case BandHigh:
		i.High = v
	}
}

// Effect names one of the effects that can be bypassed.
type Effect int

const (
	EffectLowPass Effect = iota
	EffectHighPass
	EffectSidechain
	EffectCrush
	EffectTape
	EffectEnvelope
	EffectReverb
	EffectDelay
	NumEffects
)

var effectNames = [NumEffects]string{"lowpass", "highpass", "sidechain", "crush", "tape", "envelope", "reverb", "delay"}

func (e Effect) String() string {
	if e < 0 || e >= NumEffects {
		return "unknown"
	}
	return effectNames[e]
}

func ParseEffect(s string) (Effect, error) {
	for i, n := range effectNames {
		if n == s {
			return Effect(i), nil
		}
	}
	return 0, fmt.Errorf("unknown effect %q", s)
}

func (f *EffectsEnabled) flag(e Effect) *bool {
	switch e {
	case EffectLowPass:
		return &f.LowPass
	case EffectHighPass:
		return &f.HighPass
	case EffectSidechain:
		return &f.Sidechain
	case EffectCrush:
		return &f.Crush
	case EffectTape:
		return &f.Tape
	case EffectEnvelope:
		return &f.Envelope
	case EffectReverb:
		return &f.Reverb
	case EffectDelay:
		return &f.Delay
	}
	return nil
}

// Get reports whether the effect is enabled; unknown effects are never
// enabled.
func (f EffectsEnabled) Get(e Effect) bool {
	if p := f.flag(e); p != nil {
		return *p
	}
	return false
}

// Set enables or bypasses the effect. Unknown effects are ignored.
func (f *EffectsEnabled) Set(e Effect, on bool) {
	if p := f.flag(e); p != nil {
		*p = on
	}
}
