package main

import (
	"context"
	"errors"
	"testing"

	"onitama-arena/server/agent"
	"onitama-arena/server/store"
	"onitama-arena/server/tournament"
)

func TestStoreRecorderSeedsAndPersists(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	id, err := db.UpsertEngine(ctx, "./b")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := db.GetOrInitRatings(ctx, id); err != nil {
		t.Fatalf("init ratings: %v", err)
	}
	if err := db.UpdateEngineRatings(ctx, id, store.Ratings{Elo: 1620, GRating: 1640, GRD: 120, GSigma: 0.058}, 7, 300); err != nil {
		t.Fatalf("seed ratings: %v", err)
	}

	st := tournament.NewStandings("./a", "./b", 1500, 24)
	rec, err := newStoreRecorder(ctx, db, st)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	snap := st.Snapshot()
	if snap.Rows[1].Elo != 1620 || snap.Rows[1].Glicko.Rating != 1640 || snap.Rows[0].Elo != 1500 {
		t.Fatalf("standings not seeded: %+v", snap.Rows)
	}

	g := finishedGame(0, false, agent.Player1Wins)
	snap = st.Add(g)
	if err := rec.Record(ctx, g, snap); err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Disabled() {
		t.Fatalf("recorder disabled after a good write")
	}

	got, err := db.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if got.White != "./a" || got.Result != "1-0" {
		t.Fatalf("stored game = %+v", got)
	}
	rb, err := db.GetOrInitRatings(ctx, id)
	if err != nil {
		t.Fatalf("ratings: %v", err)
	}
	if rb.Games != 8 || rb.Plies != 303 || rb.Elo != snap.Rows[1].Elo {
		t.Fatalf("career ratings = %+v, standings elo %.2f", rb, snap.Rows[1].Elo)
	}
}

type failingStore struct {
	store.Store
	inserts int
}

func (f *failingStore) InsertGame(context.Context, agent.GameRecord, int64, int64) error {
	f.inserts++
	return errors.New("disk full")
}

func TestStoreRecorderDisablesOnFailure(t *testing.T) {
	fs := &failingStore{Store: openTestStore(t)}
	st := tournament.NewStandings("./a", "./b", 1500, 24)
	rec, err := newStoreRecorder(context.Background(), fs, st)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	for i := 0; i < 3; i++ {
		g := finishedGame(i, false, agent.Draw)
		if err := rec.Record(context.Background(), g, st.Add(g)); err != nil {
			t.Fatalf("store failure must not stop the run: %v", err)
		}
	}
	if !rec.Disabled() || fs.inserts != 1 {
		t.Fatalf("disabled=%v inserts=%d, want disabled after one attempt", rec.Disabled(), fs.inserts)
	}
}

func TestStoreRecorderWritesAfterCancel(t *testing.T) {
	db := openTestStore(t)
	st := tournament.NewStandings("./a", "./b", 1500, 24)
	rec, err := newStoreRecorder(context.Background(), db, st)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := finishedGame(0, true, agent.Player2Wins)
	if err := rec.Record(ctx, g, st.Add(g)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := db.GetGame(context.Background(), g.ID); err != nil {
		t.Fatalf("game lost after cancel: %v", err)
	}
}

func TestStoreRecorderOutOfOrderGames(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()
	st := tournament.NewStandings("./a", "./b", 1500, 24)
	rec, err := newStoreRecorder(ctx, db, st)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}

	// two workers finish games 0 and 1, but game 1 reaches the store first
	g0 := finishedGame(0, false, agent.Player1Wins)
	g1 := finishedGame(1, true, agent.Player1Wins)
	s0 := st.Add(g0)
	s1 := st.Add(g1)
	if err := rec.Record(ctx, g1, s1); err != nil {
		t.Fatalf("record g1: %v", err)
	}
	if err := rec.Record(ctx, g0, s0); err != nil {
		t.Fatalf("record g0: %v", err)
	}

	aID, err := db.UpsertEngine(ctx, "./a")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	hist, err := db.RatingHistory(ctx, aID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history has %d points, want 2", len(hist))
	}
	byGame := map[string]float64{}
	for _, p := range hist {
		byGame[p.GameID.String()] = p.Elo
	}
	if byGame[g0.ID.String()] != s0.Rows[0].Elo || byGame[g1.ID.String()] != s1.Rows[0].Elo {
		t.Fatalf("history %v, want g0=%.3f g1=%.3f", byGame, s0.Rows[0].Elo, s1.Rows[0].Elo)
	}
	if s0.Rows[0].Elo == s1.Rows[0].Elo {
		t.Fatalf("test needs distinct ratings after each game")
	}

	career, err := db.GetOrInitRatings(ctx, aID)
	if err != nil {
		t.Fatalf("ratings: %v", err)
	}
	if career.Elo != s1.Rows[0].Elo || career.Games != 2 {
		t.Fatalf("career = %+v, want the newest elo %.3f over 2 games", career, s1.Rows[0].Elo)
	}
}
