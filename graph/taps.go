package graph

import (
	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
)

// Taps are the analysis points of the graph: one per instrument, taken after
// its volume, and one per effect stage. A graph built without taps has nil
// pointers here; writing to a nil tap is a no-op.
type Taps struct {
	Instruments [cl607.NumInstruments]*dsp.Tap

	Duck      *dsp.Tap
	HighPass  *dsp.Tap
	LowPass   *dsp.Tap
	Tape      *dsp.Tap
	Isolator  *dsp.Tap
	Lofi      *dsp.Tap
	XY        *dsp.Tap
	Crusher   *dsp.Tap
	Envelope  *dsp.Tap
	Reverb    *dsp.Tap
	Delay     *dsp.Tap
	Sidechain *dsp.Tap
	Master    *dsp.Tap
}

func newTaps() Taps {
	var t Taps
	for _, i := range cl607.Instruments() {
		t.Instruments[i] = dsp.NewTap(i.String())
	}
	t.Duck = dsp.NewTap("duck")
	t.HighPass = dsp.NewTap("highpass")
	t.LowPass = dsp.NewTap("lowpass")
	t.Tape = dsp.NewTap("tape")
	t.Isolator = dsp.NewTap("isolator")
	t.Lofi = dsp.NewTap("lofi")
	t.XY = dsp.NewTap("xy")
	t.Crusher = dsp.NewTap("crusher")
	t.Envelope = dsp.NewTap("envelope")
	t.Reverb = dsp.NewTap("reverb")
	t.Delay = dsp.NewTap("delay")
	t.Sidechain = dsp.NewTap("sidechain")
	t.Master = dsp.NewTap("master")
	return t
}

// All lists the non-nil taps, instruments first.
func (t *Taps) All() []*dsp.Tap {
	ret := make([]*dsp.Tap, 0, int(cl607.NumInstruments)+13)
	for _, tap := range t.Instruments {
		if tap != nil {
			ret = append(ret, tap)
		}
	}
	for _, tap := range []*dsp.Tap{t.Duck, t.HighPass, t.LowPass, t.Tape, t.Isolator, t.Lofi, t.XY, t.Crusher, t.Envelope, t.Reverb, t.Delay, t.Sidechain, t.Master} {
		if tap != nil {
			ret = append(ret, tap)
		}
	}
	return ret
}

// Find returns the tap with the given name, or nil.
func (t *Taps) Find(name string) *dsp.Tap {
	for _, tap := range t.All() {
		if tap.Name == name {
			return tap
		}
	}
	return nil
}
