package rating

import "math"

// Elo tracks the two contestants of a head-to-head tournament.
type Elo struct {
	A, B  float64 // ratings
	K     float64 // base K
	Games int     // games applied
}

func NewElo(start, k float64) Elo { return Elo{A: start, B: start, K: k} }

// Expected returns the expected scores of A and B.
func (e Elo) Expected() (ea, eb float64) {
	ea = 1.0 / (1.0 + math.Pow(10, (e.B-e.A)/400.0))
	return ea, 1.0 - ea
}

// Update applies one game where A scored sa (1 win, 0.5 draw, 0 loss) and
// returns the deltas.
func (e *Elo) Update(sa float64) (dA, dB float64) {
	ea, eb := e.Expected()
	k := e.K * decay(e.Games)
	dA = k * (sa - ea)
	dB = k * ((1 - sa) - eb)
	e.A += dA
	e.B += dB
	e.Games++
	return dA, dB
}

// slow anneal so long runs settle
func decay(games int) float64 {
	return 1.0 / (1.0 + 0.01*float64(games))
}
