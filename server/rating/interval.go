package rating

import "math"

// WilsonCI95 bounds a score rate over total games, counting draws as half a win.
func WilsonCI95(wins, draws, total int) (low, high float64) {
	if total <= 0 {
		return 0, 1
	}
	const z = 1.96
	n := float64(total)
	p := (float64(wins) + 0.5*float64(draws)) / n
	den := 1 + z*z/n
	center := p + z*z/(2*n)
	half := z * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))
	return (center - half) / den, (center + half) / den
}
