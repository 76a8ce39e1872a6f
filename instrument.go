package cl607

import (
	"fmt"
	"strings"
)

type (
	// Instrument identifies one of the fixed voices of the drum machine. The
	// numeric value is also the row index of the instrument in a Grid.
	Instrument int

	// Source selects what feeds a send bus: either the mixed main bus after
	// the isolator (SourceAll), or the pre-effect tap of exactly one
	// instrument.
	Source int
)

const (
	Kick Instrument = iota
	Snare
	Snap
	HiHat
	Clave
	Cowbell
	Sample
	NumInstruments
)

const SourceAll Source = -1

var instrumentNames = [NumInstruments]string{"kick", "snare", "snap", "hihat", "clave", "cowbell", "sample"}

// Instruments lists all instruments in grid row order.
func Instruments() []Instrument {
	ret := make([]Instrument, NumInstruments)
	for i := range ret {
		ret[i] = Instrument(i)
	}
	return ret
}

func (i Instrument) Valid() bool { return i >= 0 && i < NumInstruments }

func (i Instrument) String() string {
	if !i.Valid() {
		return fmt.Sprintf("instrument(%d)", int(i))
	}
	return instrumentNames[i]
}

func ParseInstrument(s string) (Instrument, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "hi-hat" {
		s = "hihat"
	}
	for i, n := range instrumentNames {
		if n == s {
			return Instrument(i), nil
		}
	}
	return 0, fmt.Errorf("unknown instrument %q", s)
}

func (i Instrument) MarshalText() ([]byte, error) {
	if !i.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid instrument %d", int(i))
	}
	return []byte(i.String()), nil
}

func (i *Instrument) UnmarshalText(text []byte) error {
	v, err := ParseInstrument(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// SourceOf returns the Source that taps the given instrument only.
func SourceOf(i Instrument) Source { return Source(i) }

// Instrument returns the tapped instrument; ok is false for SourceAll.
func (s Source) Instrument() (i Instrument, ok bool) {
	if s == SourceAll || !Instrument(s).Valid() {
		return 0, false
	}
	return Instrument(s), true
}

func (s Source) Valid() bool { return s == SourceAll || Instrument(s).Valid() }

func (s Source) String() string {
	if i, ok := s.Instrument(); ok {
		return i.String()
	}
	return "all"
}

func ParseSource(str string) (Source, error) {
	if strings.EqualFold(strings.TrimSpace(str), "all") || str == "" {
		return SourceAll, nil
	}
	i, err := ParseInstrument(str)
	if err != nil {
		return SourceAll, fmt.Errorf("unknown send source %q", str)
	}
	return SourceOf(i), nil
}

func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Source) UnmarshalText(text []byte) error {
	v, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// InstrumentForNote maps a General MIDI percussion note to an instrument, so
// that MIDI pads can trigger the voices. Notes without a mapping return ok =
// false.
func InstrumentForNote(note byte) (i Instrument, ok bool) {
	switch note {
	case 35, 36:
		return Kick, true
	case 38, 40:
		return Snare, true
	case 37, 39:
		return Snap, true
	case 42, 44, 46:
		return HiHat, true
	case 75, 76:
		return Clave, true
	case 56:
		return Cowbell, true
	case 60:
		return Sample, true
	}
	return 0, false
}
