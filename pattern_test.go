package cl607_test

import (
	"errors"
	"testing"

	"github.com/cl607/cl607"
)

func TestGridToggle(t *testing.T) {
	var g cl607.Grid
	g.Toggle(cl607.Snare, 3)
	if !g.Active(cl607.Snare, 3) {
		t.Fatalf("step 3 of snare should be active after toggle")
	}
	g.Toggle(cl607.Snare, 3)
	if g.Active(cl607.Snare, 3) {
		t.Fatalf("step 3 of snare should be inactive after second toggle")
	}
	g.Toggle(cl607.Snare, cl607.NumSteps) // out of range, ignored
	if g.HasNotes() {
		t.Fatalf("out of range toggle should not change the grid")
	}
}

func TestGridShift(t *testing.T) {
	var g cl607.Grid
	g.Set(cl607.Kick, 0, true)
	g.Set(cl607.HiHat, cl607.NumSteps-1, true)
	g.ShiftRight()
	if !g.Active(cl607.Kick, 1) || g.Active(cl607.Kick, 0) {
		t.Errorf("kick should move from step 0 to step 1")
	}
	if !g.Active(cl607.HiHat, 0) {
		t.Errorf("hihat on the last step should wrap to step 0")
	}
	g.ShiftLeft()
	g.ShiftLeft()
	if !g.Active(cl607.Kick, cl607.NumSteps-1) {
		t.Errorf("kick should wrap to the last step after shifting left twice")
	}
	g.Clear()
	if g.HasNotes() {
		t.Errorf("cleared grid should have no notes")
	}
}

func TestGridFromRows(t *testing.T) {
	g, err := cl607.GridFromRows([][]bool{{true}, {false, true}})
	if err != nil {
		t.Fatalf("GridFromRows failed: %v", err)
	}
	if !g.Active(cl607.Kick, 0) || !g.Active(cl607.Snare, 1) {
		t.Errorf("cells were not copied")
	}
	tooLong := make([]bool, cl607.NumSteps+1)
	if _, err := cl607.GridFromRows([][]bool{tooLong}); !errors.Is(err, cl607.ErrInvalidPattern) {
		t.Errorf("expected ErrInvalidPattern for too long row, got %v", err)
	}
}

func TestPatternKeyOther(t *testing.T) {
	if cl607.PatternA.Other() != cl607.PatternB || cl607.PatternB.Other() != cl607.PatternA {
		t.Fatalf("Other should flip between a and b")
	}
}

func TestInstrumentText(t *testing.T) {
	for _, i := range cl607.Instruments() {
		text, err := i.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) failed: %v", i, err)
		}
		var back cl607.Instrument
		if err := back.UnmarshalText(text); err != nil || back != i {
			t.Errorf("instrument %v did not survive text marshaling: got %v, %v", i, back, err)
		}
	}
	s, err := cl607.ParseSource("all")
	if err != nil || s != cl607.SourceAll {
		t.Errorf("ParseSource(all) = %v, %v", s, err)
	}
	s, err = cl607.ParseSource("cowbell")
	if i, ok := s.Instrument(); err != nil || !ok || i != cl607.Cowbell {
		t.Errorf("ParseSource(cowbell) = %v, %v", s, err)
	}
}
