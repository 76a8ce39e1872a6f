package cl607

// Filter cutoff range in Hz, shared by all filter controls.
const (
	MinFilterFreq = 20.0
	MaxFilterFreq = 20000.0
)

type (
	// InstrumentParams are the synthesis knobs of a non-kick voice. Not every
	// voice uses every field: HighPass and LowPass only apply to the sample
	// voice, where they retune a standing filter instead of re-rendering.
	InstrumentParams struct {
		Pitch    float64 `json:"pitch,omitempty" yaml:"pitch,omitempty"`
		Decay    float64 `json:"decay,omitempty" yaml:"decay,omitempty"`
		Tone     float64 `json:"tone,omitempty" yaml:"tone,omitempty"`
		Attack   float64 `json:"attack,omitempty" yaml:"attack,omitempty"`
		HighPass float64 `json:"highPass,omitempty" yaml:"highPass,omitempty"`
		LowPass  float64 `json:"lowPass,omitempty" yaml:"lowPass,omitempty"`
	}

	// KickParams is the larger parameter set of the kick designer.
	KickParams struct {
		Pitch            float64 `json:"pitch" yaml:"pitch"`
		Decay            float64 `json:"decay" yaml:"decay"`
		Attack           float64 `json:"attack" yaml:"attack"`
		StartFreq        float64 `json:"startFreq" yaml:"startFreq"`
		PitchDropTime    float64 `json:"pitchDropTime" yaml:"pitchDropTime"`
		Resonance        float64 `json:"resonance" yaml:"resonance"`
		BodyGain         float64 `json:"bodyGain" yaml:"bodyGain"`
		ClickMix         float64 `json:"clickMix" yaml:"clickMix"`
		ClickTone        float64 `json:"clickTone" yaml:"clickTone"`
		ClickDecay       float64 `json:"clickDecay" yaml:"clickDecay"`
		SaturationAmount float64 `json:"saturationAmount" yaml:"saturationAmount"`
	}

	// Kit is the complete set of voice parameters.
	Kit struct {
		Kick        KickParams                       `json:"kick" yaml:"kick"`
		Instruments [NumInstruments]InstrumentParams `json:"instruments" yaml:"instruments"`
	}

	// ParamKind names one field of InstrumentParams, for single parameter
	// updates coming from the control surface.
	ParamKind int
)

const (
	ParamPitch ParamKind = iota
	ParamDecay
	ParamTone
	ParamAttack
	ParamHighPass
	ParamLowPass
)

func DefaultKickParams() KickParams {
	return KickParams{
		Pitch:            1,
		Decay:            1,
		Attack:           0,
		StartFreq:        600,
		PitchDropTime:    0.015,
		Resonance:        15,
		BodyGain:         0.4,
		ClickMix:         0.25,
		ClickTone:        2500,
		ClickDecay:       0.01,
		SaturationAmount: 4.5,
	}
}

// DefaultInstrumentParams returns the default knobs of instrument i.
func DefaultInstrumentParams(i Instrument) InstrumentParams {
	switch i {
	case Snare:
		return InstrumentParams{Tone: 1, Decay: 1}
	case Snap, HiHat, Clave, Cowbell:
		return InstrumentParams{Pitch: 1, Decay: 1}
	case Sample:
		return InstrumentParams{Pitch: 1, HighPass: MinFilterFreq, LowPass: MaxFilterFreq}
	}
	return InstrumentParams{}
}

func DefaultKit() Kit {
	k := Kit{Kick: DefaultKickParams()}
	for _, i := range Instruments() {
		k.Instruments[i] = DefaultInstrumentParams(i)
	}
	return k
}

func (p *InstrumentParams) Get(kind ParamKind) float64 {
	switch kind {
	case ParamPitch:
		return p.Pitch
	case ParamDecay:
		return p.Decay
	case ParamTone:
		return p.Tone
	case ParamAttack:
		return p.Attack
	case ParamHighPass:
		return p.HighPass
	case ParamLowPass:
		return p.LowPass
	}
	return 0
}

func (p *InstrumentParams) Set(kind ParamKind, v float64) {
	switch kind {
	case ParamPitch:
		p.Pitch = v
	case ParamDecay:
		p.Decay = v
	case ParamTone:
		p.Tone = v
	case ParamAttack:
		p.Attack = v
	case ParamHighPass:
		p.HighPass = v
	case ParamLowPass:
		p.LowPass = v
	}
}

// FilterOnly reports whether the parameter is applied to a standing filter
// rather than to the synthesis recipe.
func (k ParamKind) FilterOnly() bool { return k == ParamHighPass || k == ParamLowPass }

func (k ParamKind) String() string {
	switch k {
	case ParamPitch:
		return "pitch"
	case ParamDecay:
		return "decay"
	case ParamTone:
		return "tone"
	case ParamAttack:
		return "attack"
	case ParamHighPass:
		return "highPass"
	case ParamLowPass:
		return "lowPass"
	}
	return "unknown"
}

// Clamp keeps the knobs of instrument i in their usable ranges. Zero pitch or
// decay would produce empty buffers, so they are held slightly above zero.
func (p InstrumentParams) Clamp(i Instrument) InstrumentParams {
	def := DefaultInstrumentParams(i)
	if p.Pitch == 0 {
		p.Pitch = def.Pitch
	}
	if p.Decay == 0 {
		p.Decay = def.Decay
	}
	if p.Tone == 0 {
		p.Tone = def.Tone
	}
	p.Pitch = clamp(p.Pitch, 0.05, 4)
	p.Decay = clamp(p.Decay, 0.05, 4)
	p.Attack = clamp(p.Attack, 0, 1)
	if i == Snare {
		p.Tone = clamp(p.Tone, 0.05, 4)
	}
	if i == Sample {
		if p.HighPass == 0 {
			p.HighPass = MinFilterFreq
		}
		if p.LowPass == 0 {
			p.LowPass = MaxFilterFreq
		}
		p.HighPass = ClampFrequency(p.HighPass)
		p.LowPass = ClampFrequency(p.LowPass)
	}
	return p
}

func (k KickParams) Clamp() KickParams {
	k.Pitch = clamp(k.Pitch, 0.05, 4)
	k.Decay = clamp(k.Decay, 0.01, 4)
	k.Attack = clamp(k.Attack, 0, 1)
	k.StartFreq = clamp(k.StartFreq, MinFilterFreq, MaxFilterFreq)
	k.PitchDropTime = clamp(k.PitchDropTime, 0.001, 1)
	k.Resonance = clamp(k.Resonance, 0, 40)
	k.BodyGain = clamp(k.BodyGain, 0, 2)
	k.ClickMix = clamp(k.ClickMix, 0, 1)
	k.ClickTone = ClampFrequency(k.ClickTone)
	k.ClickDecay = clamp(k.ClickDecay, 0.001, 0.5)
	k.SaturationAmount = clamp(k.SaturationAmount, 0.1, 20)
	return k
}

func (k Kit) Clamp() Kit {
	k.Kick = k.Kick.Clamp()
	for _, i := range Instruments() {
		k.Instruments[i] = k.Instruments[i].Clamp(i)
	}
	return k
}

func ClampFrequency(f float64) float64 { return clamp(f, MinFilterFreq, MaxFilterFreq) }

func clamp(value, min, max float64) float64 {
	if value != value { // NaN
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
