package rating

import "math"

const (
	glickoScale = 173.7178
	glickoBase  = 1500.0
	convergence = 1e-6
)

// Glicko2 is a rating on the public 1500 scale.
type Glicko2 struct {
	Rating     float64 `json:"rating"`
	RD         float64 `json:"rd"`         // rating deviation
	Volatility float64 `json:"volatility"` // sigma
	Games      int     `json:"games"`      // rating periods applied
}

// NewGlicko2 returns the standard starting rating.
func NewGlicko2() Glicko2 {
	return Glicko2{Rating: glickoBase, RD: 350, Volatility: 0.06}
}

func (g Glicko2) mu() float64  { return (g.Rating - glickoBase) / glickoScale }
func (g Glicko2) phi() float64 { return g.RD / glickoScale }

func (g *Glicko2) set(mu, phi float64) {
	g.Rating = mu*glickoScale + glickoBase
	g.RD = phi * glickoScale
}

func weight(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

func expectation(mu, oppMu, oppPhi float64) float64 {
	return 1.0 / (1.0 + math.Exp(-weight(oppPhi)*(mu-oppMu)))
}

// Update applies a one-game rating period against opp (as it was before the
// game). score is 1 for a win, 0.5 for a draw, 0 for a loss; tau constrains
// volatility changes (0.3-1.2, 0.5 is typical).
func (g *Glicko2) Update(opp Glicko2, score, tau float64) {
	mu, phi := g.mu(), g.phi()
	w := weight(opp.phi())
	e := expectation(mu, opp.mu(), opp.phi())

	v := 1.0 / (w * w * e * (1 - e))
	delta := v * w * (score - e)

	sigma := g.newVolatility(phi, v, delta, tau)
	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	newPhi := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	newMu := mu + newPhi*newPhi*w*(score-e)

	g.set(newMu, newPhi)
	g.Volatility = sigma
	g.Games++
}

// newVolatility solves step 5 of the Glicko-2 paper with the Illinois method.
func (g Glicko2) newVolatility(phi, v, delta, tau float64) float64 {
	a := math.Log(g.Volatility * g.Volatility)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := phi*phi + v + ex
		return ex*(delta*delta-phi*phi-v-ex)/(2*d*d) - (x-a)/(tau*tau)
	}

	lo := a
	var hi float64
	if delta*delta > phi*phi+v {
		hi = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 && k < 1e6 {
			k++
		}
		hi = a - k*tau
	}

	fLo, fHi := f(lo), f(hi)
	for i := 0; i < 100 && math.Abs(hi-lo) > convergence; i++ {
		c := lo + (lo-hi)*fLo/(fHi-fLo)
		fC := f(c)
		if math.IsNaN(fC) || math.IsInf(fC, 0) {
			break
		}
		if fC*fHi <= 0 {
			lo, fLo = hi, fHi
		} else {
			fLo /= 2
		}
		hi, fHi = c, fC
	}
	return math.Exp(lo / 2)
}
