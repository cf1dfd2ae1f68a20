package tournament

import (
	"math"
	"testing"

	"onitama-arena/server/agent"
	"onitama-arena/server/engine"
	"onitama-arena/server/rating"

	"github.com/google/uuid"
)

func game(idx int, swapped bool, o agent.Outcome, plies int) agent.GameRecord {
	g := agent.GameRecord{ID: uuid.New(), Index: idx, Player1: "a", Player2: "b", Swapped: swapped, Outcome: o}
	if swapped {
		g.Player1, g.Player2 = "b", "a"
	}
	for i := 0; i < plies; i++ {
		g.Moves = append(g.Moves, engine.Move("x"))
	}
	return g
}

func TestStandingsAdd(t *testing.T) {
	s := NewStandings("a", "b", 1500, 24)
	s.Add(game(0, false, agent.Player1Wins, 10)) // a wins
	s.Add(game(1, true, agent.Player1Wins, 12))  // b wins
	snap := s.Add(game(2, false, agent.Draw, 7))

	a, b := snap.Rows[0], snap.Rows[1]
	if a.Games != 3 || a.Wins != 1 || a.Losses != 1 || a.Draws != 1 || a.AsPlayer1 != 2 {
		t.Fatalf("row a = %+v", a)
	}
	if b.Games != 3 || b.Wins != 1 || b.Losses != 1 || b.Draws != 1 || b.AsPlayer1 != 1 {
		t.Fatalf("row b = %+v", b)
	}
	if a.Points() != 1.5 {
		t.Fatalf("a points = %v", a.Points())
	}
	if snap.Games != 3 || snap.Plies != 29 {
		t.Fatalf("games=%d plies=%d", snap.Games, snap.Plies)
	}
	if snap.Last == nil || snap.Last.Index != 2 || snap.Last.Result != "1/2-1/2" || snap.Last.Plies != 7 {
		t.Fatalf("last = %+v", snap.Last)
	}
	if snap.ScoreCI[0] >= 0.5 || snap.ScoreCI[1] <= 0.5 {
		t.Fatalf("score interval = %v", snap.ScoreCI)
	}
}

func TestStandingsRatingsFollowResults(t *testing.T) {
	s := NewStandings("a", "b", 1500, 24)
	for i := 0; i < 6; i++ {
		// b wins every game, whichever side it starts on
		o := agent.Player2Wins
		if i%2 == 1 {
			o = agent.Player1Wins
		}
		s.Add(game(i, i%2 == 1, o, 5))
	}
	snap := s.Snapshot()
	if snap.Rows[1].Wins != 6 || snap.Rows[0].Losses != 6 {
		t.Fatalf("rows = %+v", snap.Rows)
	}
	if snap.Rows[1].Elo <= snap.Rows[0].Elo {
		t.Fatalf("elo a=%.1f b=%.1f, want b ahead", snap.Rows[0].Elo, snap.Rows[1].Elo)
	}
	if snap.Rows[1].Glicko.Rating <= snap.Rows[0].Glicko.Rating {
		t.Fatalf("glicko a=%.1f b=%.1f, want b ahead", snap.Rows[0].Glicko.Rating, snap.Rows[1].Glicko.Rating)
	}
}

func TestStandingsSelfPlayKeepsSlotsApart(t *testing.T) {
	s := NewStandings("./engine", "./engine", 1500, 24)
	g := agent.GameRecord{ID: uuid.New(), Player1: "./engine", Player2: "./engine", Outcome: agent.Player1Wins}
	s.Add(g)
	g.Swapped = true
	s.Add(g)
	snap := s.Snapshot()
	if snap.Rows[0].Wins != 1 || snap.Rows[1].Wins != 1 {
		t.Fatalf("self-play rows = %+v", snap.Rows)
	}
}

func TestStandingsSeedAndOverruns(t *testing.T) {
	s := NewStandings("a", "b", 1500, 24)
	g := rating.Glicko2{Rating: 1700, RD: 80, Volatility: 0.05}
	s.Seed(1, 1650, g, 0)
	s.AddOverruns(1, 2)
	s.AddOverruns(1, 0)
	s.AddOverruns(0, 1)
	snap := s.Snapshot()
	if snap.Rows[1].Elo != 1650 || snap.Rows[1].Glicko != g {
		t.Fatalf("seeded row = %+v", snap.Rows[1])
	}
	if snap.Rows[1].Overruns != 2 || snap.Rows[0].Overruns != 1 {
		t.Fatalf("overruns = %d/%d", snap.Rows[0].Overruns, snap.Rows[1].Overruns)
	}
	snap = s.Add(game(0, false, agent.Player1Wins, 1))
	// a beat a higher rated b, so a gains more than the K/2 of an even game
	if d := snap.Rows[0].Elo - 1500; d <= 12 {
		t.Fatalf("elo gain %.2f against a stronger opponent", d)
	}
}

func TestStandingsSeedKeepsKFactorDecay(t *testing.T) {
	fresh := NewStandings("a", "b", 1500, 24)
	veteran := NewStandings("a", "b", 1500, 24)
	g := rating.NewGlicko2()
	veteran.Seed(0, 1500, g, 100)
	veteran.Seed(1, 1500, g, 300)

	gain := func(s *Standings) float64 {
		return s.Add(game(0, false, agent.Player1Wins, 1)).Rows[0].Elo - 1500
	}
	// even game: full K gives 12, after 100 career games K is halved
	if d := gain(fresh); math.Abs(d-12) > 1e-9 {
		t.Fatalf("fresh gain = %.4f, want 12", d)
	}
	if d := gain(veteran); math.Abs(d-6) > 1e-9 {
		t.Fatalf("veteran gain = %.4f, want 6", d)
	}
}
