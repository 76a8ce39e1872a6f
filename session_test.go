package cl607_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cl607/cl607"
)

func TestLegacyPatternMigration(t *testing.T) {
	legacy := `{"grid": [[true, false, false, false, true], [false, true]], "volumes": [0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5], "tempo": 120}`
	p, err := cl607.ParseSavedPattern([]byte(legacy))
	if err != nil {
		t.Fatalf("ParseSavedPattern failed: %v", err)
	}
	if p.Swing == nil || *p.Swing != 0 {
		t.Errorf("swing should default to 0 for legacy patterns, got %v", p.Swing)
	}
	patterns, err := p.Patterns()
	if err != nil {
		t.Fatalf("Patterns failed: %v", err)
	}
	var want cl607.Grid
	want.Set(cl607.Kick, 0, true)
	want.Set(cl607.Kick, 4, true)
	want.Set(cl607.Snare, 1, true)
	if patterns.A != want {
		t.Errorf("pattern a mismatch: got %v, want %v", patterns.A, want)
	}
	if patterns.B.HasNotes() {
		t.Errorf("pattern b should be empty after migration")
	}
}

func TestSavedPatternYAML(t *testing.T) {
	doc := `
grids:
  a: [[true, false, true]]
  b: [[false, true]]
volumes: [1, 1, 1, 1, 1, 1, 1]
tempo: 100
swing: 0.5
instrumentParams:
  snare: {tone: 2, decay: 1}
`
	p, err := cl607.ParseSavedPattern([]byte(doc))
	if err != nil {
		t.Fatalf("ParseSavedPattern failed: %v", err)
	}
	s := cl607.DefaultSession()
	if err := s.Apply(p); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if s.Tempo != 100 || s.Swing != 0.5 {
		t.Errorf("tempo/swing not applied: %v %v", s.Tempo, s.Swing)
	}
	if !s.Patterns.B.Active(cl607.Kick, 1) {
		t.Errorf("pattern b not applied")
	}
	if s.Kit.Instruments[cl607.Snare].Tone != 2 {
		t.Errorf("snare tone not applied")
	}
}

func TestSaveAndApplyRoundTrip(t *testing.T) {
	s := cl607.DefaultSession()
	s.Patterns.A.Set(cl607.Clave, 7, true)
	s.Patterns.B.Set(cl607.Cowbell, 15, true)
	s.Swing = 0.25
	restored := cl607.DefaultSession()
	if err := restored.Apply(s.SavePattern()); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !reflect.DeepEqual(restored, s) {
		t.Errorf("session did not survive save/apply:\ngot  %+v\nwant %+v", restored, s)
	}
}

func TestReadSessionDefaults(t *testing.T) {
	doc := `
grid: [[true]]
volumes: [1]
tempo: 500
effects:
  reverbMix: 0.5
  reverbSource: snare
`
	s, err := cl607.ReadSession(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadSession failed: %v", err)
	}
	if s.Tempo != cl607.MaxTempo {
		t.Errorf("tempo should be clamped to %v, got %v", cl607.MaxTempo, s.Tempo)
	}
	if s.Effects.ReverbMix != 0.5 || s.Effects.ReverbSource != cl607.SourceOf(cl607.Snare) {
		t.Errorf("effects section not applied: %+v", s.Effects)
	}
	if s.Effects.DelayTime != 0.27 || !s.Effects.Enabled.Reverb {
		t.Errorf("missing effect fields should keep their defaults: %+v", s.Effects)
	}
}

func TestEffectiveBypass(t *testing.T) {
	e := cl607.DefaultEffects()
	e.LowPass = 500
	e.TapeMix = 0.7
	e.Enabled.LowPass = false
	e.Enabled.Tape = false
	got := e.Effective()
	if got.LowPass != cl607.MaxFilterFreq || got.TapeMix != 0 {
		t.Errorf("disabled effects should be neutral: %+v", got)
	}
	e.Enabled = cl607.AllEnabled()
	e.LowPass = 1e6
	if got := e.Effective(); got.LowPass != cl607.MaxFilterFreq {
		t.Errorf("low pass should be clamped, got %v", got.LowPass)
	}
}

func TestPresets(t *testing.T) {
	presets, err := cl607.Presets()
	if err != nil {
		t.Fatalf("Presets failed: %v", err)
	}
	if len(presets) == 0 {
		t.Fatalf("expected built-in presets")
	}
	kit, err := cl607.LoadPreset("classic")
	if err != nil {
		t.Fatalf("LoadPreset failed: %v", err)
	}
	if !reflect.DeepEqual(kit, cl607.DefaultKit().Clamp()) {
		t.Errorf("classic preset should equal the default kit:\ngot  %+v\nwant %+v", kit, cl607.DefaultKit().Clamp())
	}
}

func TestWriteSession(t *testing.T) {
	s := cl607.DefaultSession()
	s.Tempo = 128
	s.Swing = 0.25
	s.MasterVolume = 0.8
	s.Patterns.A.Set(cl607.Kick, 0, true)
	s.Patterns.B.Set(cl607.Clave, 3, true)
	s.Kit.Kick.Pitch = 60
	s.Effects.ReverbMix = 0.4
	s.Effects.DelaySource = cl607.SourceOf(cl607.Snare)
	s.Visible[cl607.Sample] = false
	var b strings.Builder
	if err := cl607.WriteSession(&b, &s); err != nil {
		t.Fatalf("WriteSession failed: %v", err)
	}
	got, err := cl607.ReadSession(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("ReadSession failed: %v\n%s", err, b.String())
	}
	want := s.Clamp()
	if got.Tempo != want.Tempo || got.Swing != want.Swing || got.MasterVolume != want.MasterVolume {
		t.Errorf("tempo/swing/master = %v/%v/%v, want %v/%v/%v", got.Tempo, got.Swing, got.MasterVolume, want.Tempo, want.Swing, want.MasterVolume)
	}
	if got.Patterns != want.Patterns {
		t.Errorf("patterns mismatch: got %v, want %v", got.Patterns, want.Patterns)
	}
	if got.Kit.Kick != want.Kit.Kick {
		t.Errorf("kick mismatch: got %+v, want %+v", got.Kit.Kick, want.Kit.Kick)
	}
	if !reflect.DeepEqual(got.Effects, want.Effects) {
		t.Errorf("effects mismatch: got %+v, want %+v", got.Effects, want.Effects)
	}
	if got.Visible != want.Visible {
		t.Errorf("visible = %v, want %v", got.Visible, want.Visible)
	}
}
