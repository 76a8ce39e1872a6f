package cl607

import "gitlab.com/gomidi/midi/v2"

// PadHit is a note-on message mapped onto an instrument.
type PadHit struct {
	Instrument Instrument
	Volume     float64 // velocity / 127
	Channel    uint8
	Note       uint8
}

// PadForMessage decodes a raw MIDI message. Only note-on messages with a
// non-zero velocity on a mapped note are pad hits.
func PadForMessage(msg []byte) (hit PadHit, ok bool) {
	var channel, key, velocity uint8
	if !midi.Message(msg).GetNoteOn(&channel, &key, &velocity) || velocity == 0 {
		return PadHit{}, false
	}
	i, ok := InstrumentForNote(key)
	if !ok {
		return PadHit{}, false
	}
	return PadHit{Instrument: i, Volume: float64(velocity) / 127, Channel: channel, Note: key}, true
}
