package tournament

import (
	"sync"

	"onitama-arena/server/agent"
	"onitama-arena/server/rating"
)

const glickoTau = 0.5

// Row is one engine's line in the standings.
type Row struct {
	Name      string         `json:"name"`
	Games     int            `json:"games"`
	Wins      int            `json:"wins"`
	Draws     int            `json:"draws"`
	Losses    int            `json:"losses"`
	AsPlayer1 int            `json:"as_player1"`
	Overruns  int            `json:"overruns"`
	Elo       float64        `json:"elo"`
	Glicko    rating.Glicko2 `json:"glicko"`
}

// Points counts a draw as half a win.
func (r Row) Points() float64 { return float64(r.Wins) + 0.5*float64(r.Draws) }

// Snapshot is a consistent copy of the standings.
type Snapshot struct {
	Games   int        `json:"games"`
	Plies   int        `json:"plies"`
	Rows    [2]Row     `json:"rows"`
	ScoreCI [2]float64 `json:"score_ci"` // Wilson 95% bounds on Rows[0]'s score rate
	Last    *LastGame  `json:"last,omitempty"`
}

// LastGame summarizes the most recent finished game.
type LastGame struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Result  string `json:"result"`
	Plies   int    `json:"plies"`
}

// Standings accumulates results between the two engines of a tournament. Rows
// are kept in the configured engine order, whoever moved first in a game, so
// an engine playing itself still gets two rows.
type Standings struct {
	mu    sync.Mutex
	rows  [2]Row
	elo   rating.Elo
	prior [2]int // career games before this run
	plies int
	last  *LastGame
}

func NewStandings(a, b string, eloStart, eloK float64) *Standings {
	s := &Standings{elo: rating.NewElo(eloStart, eloK)}
	s.rows[0] = Row{Name: a, Elo: eloStart, Glicko: rating.NewGlicko2()}
	s.rows[1] = Row{Name: b, Elo: eloStart, Glicko: rating.NewGlicko2()}
	return s
}

// Seed starts the engine in slot i (0 or 1, configured order) from previously
// stored ratings and its career game count. The shared Elo K-factor decays
// with the less experienced engine's games.
func (s *Standings) Seed(i int, elo float64, g rating.Glicko2, games int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[i].Elo = elo
	s.rows[i].Glicko = g
	if i == 0 {
		s.elo.A = elo
	} else {
		s.elo.B = elo
	}
	s.prior[i] = games
	s.elo.Games = min(s.prior[0], s.prior[1]) + s.rows[0].Games
}

// AddOverruns charges late replies to the engine in slot i.
func (s *Standings) AddOverruns(i, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[i].Overruns += n
}

// Add folds in a finished game and returns the standings after it.
func (s *Standings) Add(g agent.GameRecord) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	first, second := 0, 1
	if g.Swapped {
		first, second = 1, 0
	}
	s.rows[first].AsPlayer1++
	for _, i := range []int{first, second} {
		s.rows[i].Games++
	}
	switch g.Outcome {
	case agent.Player1Wins:
		s.rows[first].Wins++
		s.rows[second].Losses++
	case agent.Player2Wins:
		s.rows[second].Wins++
		s.rows[first].Losses++
	default:
		s.rows[first].Draws++
		s.rows[second].Draws++
	}
	s.plies += g.Plies()

	// score of rows[0]
	score := g.Outcome.Score()
	if first == 1 {
		score = 1 - score
	}
	s.elo.Update(score)
	s.rows[0].Elo, s.rows[1].Elo = s.elo.A, s.elo.B
	ga, gb := s.rows[0].Glicko, s.rows[1].Glicko
	s.rows[0].Glicko.Update(gb, score, glickoTau)
	s.rows[1].Glicko.Update(ga, 1-score, glickoTau)

	s.last = &LastGame{
		ID:      g.ID.String(),
		Index:   g.Index,
		Player1: g.Player1,
		Player2: g.Player2,
		Result:  g.Outcome.PGN(),
		Plies:   g.Plies(),
	}
	return s.snapshotLocked()
}

func (s *Standings) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Standings) snapshotLocked() Snapshot {
	snap := Snapshot{Games: s.rows[0].Games, Plies: s.plies, Rows: s.rows}
	snap.ScoreCI[0], snap.ScoreCI[1] = rating.WilsonCI95(s.rows[0].Wins, s.rows[0].Draws, s.rows[0].Games)
	if s.last != nil {
		last := *s.last
		snap.Last = &last
	}
	return snap
}
