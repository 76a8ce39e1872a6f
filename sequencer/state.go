package sequencer

import (
	"math/rand"

	"github.com/cl607/cl607"
)

type (
	// Snapshot is the externally owned state the scheduler reads. It is
	// copied whole at the start of a tick, so edits made while a tick runs
	// never tear.
	Snapshot struct {
		Patterns  cl607.Patterns
		Volumes   [cl607.NumInstruments]float64
		Visible   [cl607.NumInstruments]bool
		Params    [cl607.NumInstruments]cl607.InstrumentParams
		Tempo     float64
		Swing     float64
		Randomize bool
		Intensity float64 // 0..10
	}

	// TriggerFunc plays instrument i at time when.
	TriggerFunc func(i cl607.Instrument, when, volume float64, params cl607.InstrumentParams)

	// State is owned by the scheduling loop and advanced only by it.
	State struct {
		Step         int
		NextNoteTime float64
		Pattern      cl607.PatternKey
		Chain        Chain

		rng *rand.Rand
	}

	// Position is the published, read-only view of a State.
	Position struct {
		Step         int
		NextNoteTime float64
		Pattern      cl607.PatternKey
		Playing      bool
	}
)

// SnapshotOf copies the parts of a session the scheduler needs.
func SnapshotOf(s *cl607.Session) Snapshot {
	return Snapshot{
		Patterns: s.Patterns,
		Volumes:  s.Volumes,
		Visible:  s.Visible,
		Params:   s.Kit.Instruments,
		Tempo:    s.Tempo,
		Swing:    s.Swing,
	}
}

// NewState starts playback at time now on the given pattern.
func NewState(now float64, pattern cl607.PatternKey, mode ChainMode, rng *rand.Rand) State {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	s := State{NextNoteTime: now, Pattern: pattern, rng: rng}
	s.Chain.SetMode(mode)
	return s
}

// Position returns the published view of the state.
func (s *State) Position() Position {
	return Position{Step: s.Step, NextNoteTime: s.NextNoteTime, Pattern: s.Pattern, Playing: true}
}

// Advance schedules every step that starts before now+LookAhead. At step 0
// the chain may switch the pattern; switched reports whether it did.
func (s *State) Advance(now float64, snap *Snapshot, trigger TriggerFunc) (switched bool) {
	tempo := clampTempo(snap.Tempo)
	swing := min(max(snap.Swing, 0), 1)
	for s.NextNoteTime < now+LookAhead {
		if s.Step == 0 {
			if p := s.Chain.Next(s.Pattern); p != s.Pattern {
				s.Pattern = p
				switched = true
			}
		}
		grid := snap.Patterns.Get(s.Pattern)
		step := s.Step
		if snap.Randomize {
			step = Randomize(step, snap.Intensity, cl607.NumSteps, s.rng)
		}
		if step != SkipStep {
			for _, i := range cl607.Instruments() {
				if snap.Visible[i] && grid.Active(i, step) && snap.Volumes[i] > 0 {
					trigger(i, s.NextNoteTime, snap.Volumes[i], snap.Params[i])
				}
			}
		}
		s.NextNoteTime += StepDuration(s.Step, tempo, swing)
		s.Step = (s.Step + 1) % cl607.NumSteps
	}
	return switched
}

func clampTempo(t float64) float64 {
	if t != t { // NaN
		return cl607.DefaultTempo
	}
	return min(max(t, cl607.MinTempo), cl607.MaxTempo)
}
