package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"onitama-arena/server/agent"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite is the single-file backend.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// one writer at a time; games from concurrent workers queue here
	db.SetMaxOpenConns(1)
	for _, p := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() { s.db.Close() }

func (s *SQLite) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS engines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			command TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS engine_ratings (
			engine_id INTEGER PRIMARY KEY REFERENCES engines(id) ON DELETE CASCADE,
			elo REAL NOT NULL DEFAULT 1500,
			g_rating REAL NOT NULL DEFAULT 1500,
			g_rd REAL NOT NULL DEFAULT 350,
			g_sigma REAL NOT NULL DEFAULT 0.06,
			games INTEGER NOT NULL DEFAULT 0,
			plies INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			game_index INTEGER NOT NULL,
			white_id INTEGER NOT NULL REFERENCES engines(id),
			black_id INTEGER NOT NULL REFERENCES engines(id),
			white TEXT NOT NULL,
			black TEXT NOT NULL,
			opening TEXT NOT NULL,
			moves TEXT NOT NULL,
			result TEXT NOT NULL,
			plies INTEGER NOT NULL,
			tc_ms INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS games_ended_at_idx ON games(ended_at DESC)`,
		`CREATE TABLE IF NOT EXISTS rating_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			engine_id INTEGER NOT NULL REFERENCES engines(id),
			elo REAL NOT NULL,
			g_rating REAL NOT NULL,
			g_rd REAL NOT NULL,
			g_sigma REAL NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS rating_history_engine_idx ON rating_history(engine_id, created_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func (s *SQLite) UpsertEngine(ctx context.Context, command string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO engines(command, created_at) VALUES (?, ?)
		ON CONFLICT(command) DO UPDATE SET command = excluded.command
		RETURNING id
	`, command, toMillis(time.Now())).Scan(&id)
	return id, err
}

func (s *SQLite) GetOrInitRatings(ctx context.Context, engineID int64) (Ratings, error) {
	var r Ratings
	if _, err := s.db.ExecContext(ctx, `INSERT INTO engine_ratings(engine_id, updated_at) VALUES (?, ?) ON CONFLICT(engine_id) DO NOTHING`,
		engineID, toMillis(time.Now())); err != nil {
		return r, err
	}
	err := s.db.QueryRowContext(ctx, `
		SELECT elo, g_rating, g_rd, g_sigma, games, plies
		  FROM engine_ratings WHERE engine_id = ?
	`, engineID).Scan(&r.Elo, &r.GRating, &r.GRD, &r.GSigma, &r.Games, &r.Plies)
	return r, err
}

func (s *SQLite) UpdateEngineRatings(ctx context.Context, engineID int64, r Ratings, gamesInc, pliesInc int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE engine_ratings
		   SET elo = ?, g_rating = ?, g_rd = ?, g_sigma = ?,
		       games = games + ?, plies = plies + ?, updated_at = ?
		 WHERE engine_id = ?
	`, r.Elo, r.GRating, r.GRD, r.GSigma, gamesInc, pliesInc, toMillis(time.Now()), engineID)
	return err
}

func (s *SQLite) InsertGame(ctx context.Context, g agent.GameRecord, whiteID, blackID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games(
			id, game_index, white_id, black_id, white, black,
			opening, moves, result, plies, tc_ms, started_at, ended_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, g.ID.String(), g.Index, whiteID, blackID, g.Player1, g.Player2,
		strings.Join(openingStrings(g), " "), strings.Join(g.MoveStrings(), " "),
		g.Outcome.PGN(), g.Plies(), g.TimeControl.Milliseconds(),
		toMillis(g.StartedAt), toMillis(g.EndedAt))
	return err
}

func (s *SQLite) InsertRatingPoint(ctx context.Context, gameID uuid.UUID, engineID int64, r Ratings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rating_history(game_id, engine_id, elo, g_rating, g_rd, g_sigma, created_at)
		VALUES (?,?,?,?,?,?,?)
	`, gameID.String(), engineID, r.Elo, r.GRating, r.GRD, r.GSigma, toMillis(time.Now()))
	return err
}

const sqliteGameColumns = `id, game_index, white, black, opening, moves, result, plies, tc_ms, started_at, ended_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanSQLiteGame(row rowScanner) (Game, error) {
	var (
		g                Game
		id, opening, mvs string
		started, ended   int64
	)
	if err := row.Scan(&id, &g.Index, &g.White, &g.Black, &opening, &mvs,
		&g.Result, &g.Plies, &g.TimeControlMS, &started, &ended); err != nil {
		return g, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return g, fmt.Errorf("game id %q: %w", id, err)
	}
	g.ID = parsed
	g.Opening = strings.Fields(opening)
	g.Moves = strings.Fields(mvs)
	g.StartedAt, g.EndedAt = fromMillis(started), fromMillis(ended)
	return g, nil
}

func (s *SQLite) ListGames(ctx context.Context, limit int) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteGameColumns+` FROM games ORDER BY ended_at DESC, game_index DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Game{}
	for rows.Next() {
		g, err := scanSQLiteGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLite) GetGame(ctx context.Context, id uuid.UUID) (Game, error) {
	g, err := scanSQLiteGame(s.db.QueryRowContext(ctx, `SELECT `+sqliteGameColumns+` FROM games WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	return g, err
}

func (s *SQLite) RatingHistory(ctx context.Context, engineID int64) ([]RatingPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, elo, g_rating, g_rd, g_sigma
		  FROM rating_history WHERE engine_id = ? ORDER BY id
	`, engineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RatingPoint{}
	for rows.Next() {
		var (
			p  RatingPoint
			id string
		)
		if err := rows.Scan(&id, &p.Elo, &p.GRating, &p.GRD, &p.GSigma); err != nil {
			return nil, err
		}
		if p.GameID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("game id %q: %w", id, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*SQLite)(nil)
)
