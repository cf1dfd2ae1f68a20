// Package store persists finished games and career ratings.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"onitama-arena/server/agent"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("store: not found")

// Ratings is one engine's career rating row.
type Ratings struct {
	Elo     float64 `json:"elo"`
	GRating float64 `json:"g_rating"`
	GRD     float64 `json:"g_rd"`
	GSigma  float64 `json:"g_sigma"`
	Games   int     `json:"games"`
	Plies   int     `json:"plies"`
}

// RatingPoint is an engine's rating right after one game.
type RatingPoint struct {
	GameID uuid.UUID `json:"game_id"`
	Ratings
}

// Game is a stored game as served by the status API.
type Game struct {
	ID            uuid.UUID `json:"id"`
	Index         int       `json:"index"`
	White         string    `json:"white"`
	Black         string    `json:"black"`
	Opening       []string  `json:"opening"`
	Moves         []string  `json:"moves"`
	Result        string    `json:"result"`
	Plies         int       `json:"plies"`
	TimeControlMS int64     `json:"tc_ms"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
}

// Store is implemented by the Postgres and SQLite backends.
type Store interface {
	Migrate(ctx context.Context) error
	UpsertEngine(ctx context.Context, command string) (int64, error)
	GetOrInitRatings(ctx context.Context, engineID int64) (Ratings, error)
	UpdateEngineRatings(ctx context.Context, engineID int64, r Ratings, gamesInc, pliesInc int) error
	InsertGame(ctx context.Context, g agent.GameRecord, whiteID, blackID int64) error
	InsertRatingPoint(ctx context.Context, gameID uuid.UUID, engineID int64, r Ratings) error
	RatingHistory(ctx context.Context, engineID int64) ([]RatingPoint, error)
	ListGames(ctx context.Context, limit int) ([]Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (Game, error)
	Close()
}

// IsPostgres reports whether dsn names a Postgres server rather than a file.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open picks the backend from the shape of dsn.
func Open(ctx context.Context, dsn string) (Store, error) {
	if IsPostgres(dsn) {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(dsn)
}

const defaultListLimit = 50

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > 500 {
		return 500
	}
	return n
}

func openingStrings(g agent.GameRecord) []string {
	out := make([]string, len(g.Opening))
	for i, c := range g.Opening {
		out[i] = string(c)
	}
	return out
}
