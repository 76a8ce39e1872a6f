package cl607_test

import (
	"testing"

	"github.com/cl607/cl607"
	"gitlab.com/gomidi/midi/v2"
)

func TestPadForMessage(t *testing.T) {
	cases := []struct {
		name string
		msg  midi.Message
		want cl607.PadHit
		ok   bool
	}{
		{"kick", midi.NoteOn(9, 36, 127), cl607.PadHit{Instrument: cl607.Kick, Volume: 1, Channel: 9, Note: 36}, true},
		{"closed hat", midi.NoteOn(0, 42, 127), cl607.PadHit{Instrument: cl607.HiHat, Volume: 1, Channel: 0, Note: 42}, true},
		{"unmapped note", midi.NoteOn(9, 100, 100), cl607.PadHit{}, false},
		{"zero velocity", midi.NoteOn(9, 36, 0), cl607.PadHit{}, false},
		{"note off", midi.NoteOff(9, 36), cl607.PadHit{}, false},
		{"control change", midi.ControlChange(0, 7, 100), cl607.PadHit{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := cl607.PadForMessage(c.msg)
			if ok != c.ok || got != c.want {
				t.Errorf("PadForMessage = %+v, %v, want %+v, %v", got, ok, c.want, c.ok)
			}
		})
	}
}
