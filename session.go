package cl607

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTempo = 90.0
	MinTempo     = 40.0
	MaxTempo     = 240.0
)

type (
	// Session is everything needed to render a beat: the patterns, the mix,
	// the voice parameters and the effect settings.
	Session struct {
		Patterns     Patterns
		Volumes      [NumInstruments]float64
		Visible      [NumInstruments]bool
		Tempo        float64
		Swing        float64
		MasterVolume float64
		Kit          Kit
		Effects      Effects
	}

	// SavedPattern is the persisted snapshot of a pattern slot. Grids is nil
	// in the legacy single-grid format, which has Grid instead.
	SavedPattern struct {
		Grids            *savedGrids                 `json:"grids,omitempty" yaml:"grids,omitempty"`
		Grid             [][]bool                    `json:"grid,omitempty" yaml:"grid,omitempty"`
		Volumes          []float64                   `json:"volumes" yaml:"volumes"`
		Tempo            float64                     `json:"tempo" yaml:"tempo"`
		InstrumentParams map[string]InstrumentParams `json:"instrumentParams,omitempty" yaml:"instrumentParams,omitempty"`
		Swing            *float64                    `json:"swing,omitempty" yaml:"swing,omitempty"`
	}

	savedGrids struct {
		A [][]bool `json:"a" yaml:"a"`
		B [][]bool `json:"b" yaml:"b"`
	}

	// sessionFile is the on-disk shape of a session: a saved pattern with
	// optional mix, kit and effect sections.
	sessionFile struct {
		SavedPattern `yaml:",inline"`
		MasterVolume *float64    `json:"masterVolume,omitempty" yaml:"masterVolume,omitempty"`
		Kick         *KickParams `json:"kick,omitempty" yaml:"kick,omitempty"`
		Preset       string      `json:"preset,omitempty" yaml:"preset,omitempty"`
		Effects      *Effects    `json:"effects,omitempty" yaml:"effects,omitempty"`
		Visible      []bool      `json:"visible,omitempty" yaml:"visible,omitempty"`
	}
)

var defaultVolumes = [NumInstruments]float64{0.3, 0.59, 1, 0.42, 0.29, 0.31, 0.7}

func DefaultSession() Session {
	s := Session{
		Volumes:      defaultVolumes,
		Tempo:        DefaultTempo,
		MasterVolume: 0.5,
		Kit:          DefaultKit(),
		Effects:      DefaultEffects(),
	}
	for i := range s.Visible {
		s.Visible[i] = true
	}
	return s
}

// Clamp keeps tempo, swing and volumes in range and clamps the kit and the
// effects.
func (s Session) Clamp() Session {
	if s.Tempo == 0 {
		s.Tempo = DefaultTempo
	}
	s.Tempo = clamp(s.Tempo, MinTempo, MaxTempo)
	s.Swing = clamp(s.Swing, 0, 1)
	s.MasterVolume = clamp(s.MasterVolume, 0, 1)
	for i := range s.Volumes {
		s.Volumes[i] = clamp(s.Volumes[i], 0, 1)
	}
	s.Kit = s.Kit.Clamp()
	s.Effects = s.Effects.Clamp()
	return s
}

// ParseSavedPattern decodes a saved pattern from JSON, or YAML if the data is
// not JSON, and migrates the legacy single-grid format: the single grid
// becomes pattern A, pattern B is empty and swing defaults to 0.
func ParseSavedPattern(data []byte) (SavedPattern, error) {
	var p SavedPattern
	if err := unmarshal(data, &p); err != nil {
		return SavedPattern{}, err
	}
	if err := p.migrate(); err != nil {
		return SavedPattern{}, err
	}
	return p, nil
}

func (p *SavedPattern) migrate() error {
	if p.Grids == nil {
		if p.Grid == nil {
			return fmt.Errorf("%w: neither grids nor grid present", ErrInvalidPattern)
		}
		empty := Grid{}
		p.Grids = &savedGrids{A: p.Grid, B: empty.Rows()}
		p.Grid = nil
	}
	if p.Swing == nil {
		p.Swing = new(float64)
	}
	return nil
}

// Patterns converts the grids of the snapshot.
func (p *SavedPattern) Patterns() (Patterns, error) {
	if p.Grids == nil {
		if err := p.migrate(); err != nil {
			return Patterns{}, err
		}
	}
	a, err := GridFromRows(p.Grids.A)
	if err != nil {
		return Patterns{}, fmt.Errorf("pattern a: %w", err)
	}
	b, err := GridFromRows(p.Grids.B)
	if err != nil {
		return Patterns{}, fmt.Errorf("pattern b: %w", err)
	}
	return Patterns{A: a, B: b}, nil
}

// SavePattern takes the persisted subset of a session.
func (s *Session) SavePattern() SavedPattern {
	swing := s.Swing
	p := SavedPattern{
		Grids:            &savedGrids{A: s.Patterns.A.Rows(), B: s.Patterns.B.Rows()},
		Volumes:          append([]float64(nil), s.Volumes[:]...),
		Tempo:            s.Tempo,
		InstrumentParams: map[string]InstrumentParams{},
		Swing:            &swing,
	}
	for _, i := range Instruments() {
		if i != Kick {
			p.InstrumentParams[i.String()] = s.Kit.Instruments[i]
		}
	}
	return p
}

// Apply overwrites the session fields present in the snapshot.
func (s *Session) Apply(p SavedPattern) error {
	patterns, err := p.Patterns()
	if err != nil {
		return err
	}
	s.Patterns = patterns
	copy(s.Volumes[:], p.Volumes)
	if p.Tempo != 0 {
		s.Tempo = p.Tempo
	}
	if p.Swing != nil {
		s.Swing = *p.Swing
	}
	for name, params := range p.InstrumentParams {
		i, err := ParseInstrument(name)
		if err != nil {
			return err
		}
		s.Kit.Instruments[i] = params
	}
	return nil
}

// ReadSession reads a session file: a saved pattern (JSON or YAML, legacy
// format accepted) with optional masterVolume, kick, preset, effects and
// visible sections. Missing sections keep their defaults.
func ReadSession(r io.Reader) (Session, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Session{}, fmt.Errorf("could not read session: %w", err)
	}
	s := DefaultSession()
	f := sessionFile{Effects: &s.Effects}
	if err := unmarshal(data, &f); err != nil {
		return Session{}, err
	}
	if err := f.SavedPattern.migrate(); err != nil {
		return Session{}, err
	}
	if f.Preset != "" {
		kit, err := LoadPreset(f.Preset)
		if err != nil {
			return Session{}, err
		}
		s.Kit = kit
	}
	if err := s.Apply(f.SavedPattern); err != nil {
		return Session{}, err
	}
	if f.MasterVolume != nil {
		s.MasterVolume = *f.MasterVolume
	}
	if f.Kick != nil {
		s.Kit.Kick = *f.Kick
	}
	if f.Effects != nil {
		s.Effects = *f.Effects
	}
	for i, v := range f.Visible {
		if i < len(s.Visible) {
			s.Visible[i] = v
		}
	}
	return s.Clamp(), nil
}

func unmarshal(data []byte, v any) error {
	errJSON := json.Unmarshal(data, v)
	if errJSON == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(errJSON, &syntaxErr) {
		return fmt.Errorf("could not parse json: %w", errJSON)
	}
	if errYaml := yaml.Unmarshal(data, v); errYaml != nil {
		return fmt.Errorf("the data could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
	}
	return nil
}

// WriteSession writes the session as YAML in the format ReadSession reads.
func WriteSession(w io.Writer, s *Session) error {
	master := s.MasterVolume
	kick := s.Kit.Kick
	f := sessionFile{
		SavedPattern: s.SavePattern(),
		MasterVolume: &master,
		Kick:         &kick,
		Effects:      &s.Effects,
		Visible:      append([]bool(nil), s.Visible[:]...),
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("could not write session: %w", err)
	}
	return enc.Close()
}
