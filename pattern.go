package cl607

import "fmt"

// NumSteps is the number of steps in one measure of a pattern.
const NumSteps = 16

type (
	// Grid is an instrument x step matrix of note triggers. Its dimensions
	// are fixed; only the cell values ever change.
	Grid [NumInstruments][NumSteps]bool

	// PatternKey selects one of the two patterns of a session.
	PatternKey int

	// Patterns holds the two independent grids A and B.
	Patterns struct {
		A Grid `json:"a" yaml:"a"`
		B Grid `json:"b" yaml:"b"`
	}
)

const (
	PatternA PatternKey = iota
	PatternB
)

func (g *Grid) Active(i Instrument, step int) bool {
	if !i.Valid() || step < 0 || step >= NumSteps {
		return false
	}
	return g[i][step]
}

func (g *Grid) Set(i Instrument, step int, value bool) {
	if !i.Valid() || step < 0 || step >= NumSteps {
		return
	}
	g[i][step] = value
}

func (g *Grid) Toggle(i Instrument, step int) {
	g.Set(i, step, !g.Active(i, step))
}

func (g *Grid) Clear() { *g = Grid{} }

// ShiftLeft rotates every row one step to the left; the first step wraps to
// the end.
func (g *Grid) ShiftLeft() {
	for i := range g {
		first := g[i][0]
		copy(g[i][:], g[i][1:])
		g[i][NumSteps-1] = first
	}
}

// ShiftRight rotates every row one step to the right; the last step wraps to
// the beginning.
func (g *Grid) ShiftRight() {
	for i := range g {
		last := g[i][NumSteps-1]
		copy(g[i][1:], g[i][:NumSteps-1])
		g[i][0] = last
	}
}

// HasNotes reports whether any cell of the grid is active.
func (g *Grid) HasNotes() bool {
	for i := range g {
		for _, v := range g[i] {
			if v {
				return true
			}
		}
	}
	return false
}

// Rows returns the grid as a slice of rows, the shape used in saved pattern
// files.
func (g *Grid) Rows() [][]bool {
	ret := make([][]bool, NumInstruments)
	for i := range g {
		ret[i] = append([]bool(nil), g[i][:]...)
	}
	return ret
}

// GridFromRows converts rows of cells into a Grid. Missing rows and missing
// trailing steps are treated as inactive; more rows or steps than the grid
// can hold is an error.
func GridFromRows(rows [][]bool) (Grid, error) {
	var g Grid
	if len(rows) > int(NumInstruments) {
		return g, fmt.Errorf("%w: %d rows, at most %d allowed", ErrInvalidPattern, len(rows), NumInstruments)
	}
	for i, row := range rows {
		if len(row) > NumSteps {
			return g, fmt.Errorf("%w: row %d has %d steps, at most %d allowed", ErrInvalidPattern, i, len(row), NumSteps)
		}
		copy(g[i][:], row)
	}
	return g, nil
}

func (k PatternKey) Other() PatternKey {
	if k == PatternA {
		return PatternB
	}
	return PatternA
}

func (k PatternKey) String() string {
	if k == PatternB {
		return "b"
	}
	return "a"
}

func (k PatternKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PatternKey) UnmarshalText(text []byte) error {
	switch string(text) {
	case "a", "A":
		*k = PatternA
	case "b", "B":
		*k = PatternB
	default:
		return fmt.Errorf("unknown pattern %q", string(text))
	}
	return nil
}

func (p *Patterns) Get(k PatternKey) *Grid {
	if k == PatternB {
		return &p.B
	}
	return &p.A
}

func (p *Patterns) Set(k PatternKey, g Grid) { *p.Get(k) = g }
