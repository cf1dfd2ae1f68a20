package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"onitama-arena/server/agent"
	"onitama-arena/server/engine"

	"github.com/google/uuid"
)

func testGame(idx int, white, black string, ended time.Time) agent.GameRecord {
	return agent.GameRecord{
		ID:          uuid.New(),
		Index:       idx,
		Player1:     white,
		Player2:     black,
		Opening:     engine.Hand{"rabbit", "cobra", "rooster", "tiger", "monkey"},
		Moves:       []engine.Move{"a1b2", "c3d4"},
		Outcome:     agent.Player1Wins,
		TimeControl: 1500 * time.Millisecond,
		StartedAt:   ended.Add(-time.Second),
		EndedAt:     ended,
	}
}

// exerciseStore runs the same checks against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// migrations are idempotent
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	white := "./white " + uuid.NewString()
	black := "./black " + uuid.NewString()
	wID, err := s.UpsertEngine(ctx, white)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	again, err := s.UpsertEngine(ctx, white)
	if err != nil || again != wID {
		t.Fatalf("upsert again = %d, %v; want %d", again, err, wID)
	}
	bID, err := s.UpsertEngine(ctx, black)
	if err != nil || bID == wID {
		t.Fatalf("upsert black = %d, %v", bID, err)
	}

	r, err := s.GetOrInitRatings(ctx, wID)
	if err != nil {
		t.Fatalf("ratings: %v", err)
	}
	if r.Elo != 1500 || r.GRating != 1500 || r.GRD != 350 || r.GSigma != 0.06 || r.Games != 0 {
		t.Fatalf("fresh ratings = %+v", r)
	}
	upd := Ratings{Elo: 1512, GRating: 1562.5, GRD: 290, GSigma: 0.059999}
	if err := s.UpdateEngineRatings(ctx, wID, upd, 1, 2); err != nil {
		t.Fatalf("update ratings: %v", err)
	}
	if err := s.UpdateEngineRatings(ctx, wID, upd, 1, 3); err != nil {
		t.Fatalf("update ratings: %v", err)
	}
	r, err = s.GetOrInitRatings(ctx, wID)
	if err != nil {
		t.Fatalf("ratings: %v", err)
	}
	if r.Elo != upd.Elo || r.GRD != upd.GRD || r.Games != 2 || r.Plies != 5 {
		t.Fatalf("updated ratings = %+v", r)
	}

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	g1 := testGame(0, white, black, base)
	g2 := testGame(1, black, white, base.Add(time.Minute))
	g2.Moves = nil
	g2.Outcome = agent.Draw
	for _, g := range []agent.GameRecord{g1, g2} {
		w, b := wID, bID
		if g.Player1 == black {
			w, b = bID, wID
		}
		if err := s.InsertGame(ctx, g, w, b); err != nil {
			t.Fatalf("insert game: %v", err)
		}
		if err := s.InsertRatingPoint(ctx, g.ID, wID, upd); err != nil {
			t.Fatalf("rating point: %v", err)
		}
	}

	hist, err := s.RatingHistory(ctx, wID)
	if err != nil {
		t.Fatalf("rating history: %v", err)
	}
	if len(hist) != 2 || hist[0].GameID != g1.ID || hist[1].GameID != g2.ID || hist[1].Elo != upd.Elo {
		t.Fatalf("rating history = %+v", hist)
	}

	got, err := s.GetGame(ctx, g1.ID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if got.ID != g1.ID || got.White != white || got.Black != black || got.Result != "1-0" || got.Plies != 2 {
		t.Fatalf("game = %+v", got)
	}
	if len(got.Moves) != 2 || got.Moves[1] != "c3d4" || len(got.Opening) != 5 || got.Opening[0] != "rabbit" {
		t.Fatalf("game moves/opening = %v / %v", got.Moves, got.Opening)
	}
	if got.TimeControlMS != 1500 || !got.EndedAt.Equal(base) {
		t.Fatalf("tc=%d ended=%s", got.TimeControlMS, got.EndedAt)
	}

	if _, err := s.GetGame(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing game err = %v, want ErrNotFound", err)
	}

	list, err := s.ListGames(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != g2.ID || list[0].Result != "1/2-1/2" || len(list[0].Moves) != 0 {
		t.Fatalf("list = %+v, want the latest game only", list)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if !IsPostgres(dsn) {
		t.Skip("DATABASE_URL not set to a postgres:// DSN")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*DB); !ok {
		t.Fatalf("Open picked %T for a postgres DSN", s)
	}
	exerciseStore(t, s)
}

func TestOpenPicksBackend(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLite); !ok {
		t.Fatalf("Open picked %T for a file path", s)
	}
	for dsn, want := range map[string]bool{
		"postgres://u@h/db":   true,
		"postgresql://u@h/db": true,
		"arena.db":            false,
		"":                    false,
	} {
		if got := IsPostgres(dsn); got != want {
			t.Errorf("IsPostgres(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{0: 50, -3: 50, 10: 10, 5000: 500} {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
