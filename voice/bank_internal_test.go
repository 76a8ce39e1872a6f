package voice

import (
	"math/rand"
	"testing"

	"github.com/cl607/cl607"
)

func TestFailedRerenderKeepsBuffer(t *testing.T) {
	b, err := NewBank(44100, cl607.DefaultKit(), rand.New(rand.NewSource(1)), nil)
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}
	before := b.Buffer(cl607.Snare)
	if err := b.rerender(cl607.Snare, cl607.InstrumentParams{Decay: -1, Tone: 1}); err == nil {
		t.Fatalf("expected an error for a negative decay")
	}
	if after := b.Buffer(cl607.Snare); &after[0] != &before[0] {
		t.Errorf("the previous snare buffer was replaced")
	}
	if got := b.Kit().Instruments[cl607.Snare].Decay; got != 1 {
		t.Errorf("stored decay = %v, want the previous value 1", got)
	}
}

func TestSafeRenderRecoversPanics(t *testing.T) {
	_, err := safeRender(func() ([]float32, error) { panic("boom") })
	if err == nil {
		t.Errorf("expected the panic to be returned as an error")
	}
}
