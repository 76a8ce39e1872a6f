package sequencer

import (
	"math"
	"math/rand"
	"time"

	"github.com/cl607/cl607"
)

const (
	// LookAhead is how far past the audio clock the scheduler places notes,
	// in seconds.
	LookAhead = 0.1
	// TickInterval is the period of the scheduling loop.
	TickInterval = 25 * time.Millisecond
	// SkipStep is returned by Randomize when no step should sound.
	SkipStep = -1
	// MaxIntensity is the top of the randomizer intensity scale.
	MaxIntensity = 10.0
)

// SecondsPerStep is the unswung length of a sixteenth note.
func SecondsPerStep(tempo float64) float64 {
	return 60 / tempo / 4
}

// SwingFactor is the share of a step pair taken by its even step.
func SwingFactor(swing float64) float64 {
	return 0.5 + swing*0.25
}

// StepDuration returns the swung length of the step: even steps are
// lengthened and odd steps shortened so that each pair lasts exactly two
// unswung steps.
func StepDuration(step int, tempo, swing float64) float64 {
	sps := SecondsPerStep(tempo)
	sf := SwingFactor(swing)
	if step%2 != 0 {
		return (1 - sf) * 2 * sps
	}
	return sf * 2 * sps
}

// StepTimes returns the start time of every step of a measure starting at
// start, accumulated the same way the scheduler advances its clock.
func StepTimes(start, tempo, swing float64) [cl607.NumSteps]float64 {
	var ret [cl607.NumSteps]float64
	t := start
	for i := range ret {
		ret[i] = t
		t += StepDuration(i, tempo, swing)
	}
	return ret
}

// MeasureDuration is the length of one measure of NumSteps steps.
func MeasureDuration(tempo float64) float64 {
	return float64(cl607.NumSteps) * SecondsPerStep(tempo)
}

// Randomize humanizes a step. With probability intensity/20 it returns
// SkipStep; otherwise it moves the step by a uniform offset of at most
// round(intensity*0.4) steps, wrapping around n. Intensity 0 is the identity
// and consumes no randomness.
func Randomize(step int, intensity float64, n int, rng *rand.Rand) int {
	if intensity <= 0 || n <= 0 {
		return step
	}
	ratio := math.Min(intensity, MaxIntensity) / MaxIntensity
	if rng.Float64() < ratio*0.5 {
		return SkipStep
	}
	maxOffset := int(math.Round(ratio * 4))
	if maxOffset > 0 {
		offset := rng.Intn(2*maxOffset+1) - maxOffset
		return ((step+offset)%n + n) % n
	}
	return step
}

// VisualStep derives the step to highlight at time now from the last
// published position. It may lag the audio slightly and never affects
// scheduling.
func VisualStep(now float64, pos Position, tempo float64) int {
	sps := SecondsPerStep(tempo)
	elapsed := now - pos.NextNoteTime + sps*cl607.NumSteps
	v := math.Mod(elapsed/sps+float64(pos.Step), cl607.NumSteps)
	if v < 0 {
		v += cl607.NumSteps
	}
	return int(math.Floor(v)) % cl607.NumSteps
}
