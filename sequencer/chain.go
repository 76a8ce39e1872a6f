// Package sequencer walks the step patterns in time: it decides which of the
// two patterns plays at each measure, computes swung step timestamps ahead
// of the audio clock and hands the active cells to a trigger function.
package sequencer

import (
	"fmt"
	"strings"

	"github.com/cl607/cl607"
)

type (
	// ChainMode is the rule for switching between patterns A and B at
	// measure boundaries.
	ChainMode int

	// Chain decides the pattern of each measure. The counter holds how many
	// measures the current pattern has already played in its run.
	Chain struct {
		Mode   ChainMode
		played int
	}
)

const (
	ChainOff ChainMode = iota
	ChainAB
	ChainAAB
	ChainAAAB
	ChainAABB
	numChainModes
)

var chainModeNames = [numChainModes]string{"off", "ab", "aab", "aaab", "aabb"}

// run lengths in measures of pattern A and pattern B
var chainRuns = [numChainModes][2]int{
	ChainAB:   {1, 1},
	ChainAAB:  {2, 1},
	ChainAAAB: {3, 1},
	ChainAABB: {2, 2},
}

func (m ChainMode) String() string {
	if m < 0 || m >= numChainModes {
		return fmt.Sprintf("chain(%d)", int(m))
	}
	return chainModeNames[m]
}

func ParseChainMode(s string) (ChainMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range chainModeNames {
		if n == s {
			return ChainMode(i), nil
		}
	}
	return ChainOff, fmt.Errorf("unknown chain mode %q", s)
}

func (m ChainMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ChainMode) UnmarshalText(text []byte) error {
	v, err := ParseChainMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// SetMode changes the mode and resets the counter.
func (c *Chain) SetMode(m ChainMode) {
	c.Mode = m
	c.Reset()
}

// Reset restarts the run of the current pattern. Called on manual pattern
// changes, mode changes and when playback starts.
func (c *Chain) Reset() { c.played = 0 }

// Next is called at the start of every measure with the pattern that played
// last and returns the pattern for the new measure.
func (c *Chain) Next(current cl607.PatternKey) cl607.PatternKey {
	if c.Mode <= ChainOff || c.Mode >= numChainModes {
		return current
	}
	if c.played >= chainRuns[c.Mode][current] {
		current = current.Other()
		c.played = 0
	}
	c.played++
	return current
}
