package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"onitama-arena/server/agent"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

// DB is the Postgres backend.
type DB struct{ *pgxpool.Pool }

func OpenPostgres(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close() { db.Pool.Close() }

func (db *DB) Migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

// Upsert an engine by command line and return its id.
func (db *DB) UpsertEngine(ctx context.Context, command string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO engines(command)
        VALUES ($1)
        ON CONFLICT (command) DO UPDATE
          SET command = EXCLUDED.command
        RETURNING id
    `, command).Scan(&id)
	return id, err
}

// Ensure an engine_ratings row exists and fetch it.
func (db *DB) GetOrInitRatings(ctx context.Context, engineID int64) (Ratings, error) {
	var r Ratings
	if _, err := db.Exec(ctx, `INSERT INTO engine_ratings(engine_id) VALUES ($1) ON CONFLICT (engine_id) DO NOTHING`, engineID); err != nil {
		return r, err
	}
	err := db.QueryRow(ctx, `
		SELECT elo, g_rating, g_rd, g_sigma, games, plies
		  FROM engine_ratings WHERE engine_id = $1
	`, engineID).Scan(&r.Elo, &r.GRating, &r.GRD, &r.GSigma, &r.Games, &r.Plies)
	return r, err
}

// Persist current ratings and increment career counters.
func (db *DB) UpdateEngineRatings(ctx context.Context, engineID int64, r Ratings, gamesInc, pliesInc int) error {
	_, err := db.Exec(ctx, `
		UPDATE engine_ratings
		   SET elo = $2,
		       g_rating = $3,
		       g_rd = $4,
		       g_sigma = $5,
		       games = games + $6,
		       plies = plies + $7,
		       updated_at = now()
		 WHERE engine_id = $1
	`, engineID, r.Elo, r.GRating, r.GRD, r.GSigma, gamesInc, pliesInc)
	return err
}

func (db *DB) InsertGame(ctx context.Context, g agent.GameRecord, whiteID, blackID int64) error {
	_, err := db.Exec(ctx, `
        INSERT INTO games(
            id, game_index, white_id, black_id, white, black,
            opening, moves, result, plies, tc_ms, started_at, ended_at
        ) VALUES ($1::uuid,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `, g.ID.String(), g.Index, whiteID, blackID, g.Player1, g.Player2,
		openingStrings(g), g.MoveStrings(), g.Outcome.PGN(), g.Plies(),
		g.TimeControl.Milliseconds(), g.StartedAt, g.EndedAt)
	return err
}

// Add a rating history point after a game.
func (db *DB) InsertRatingPoint(ctx context.Context, gameID uuid.UUID, engineID int64, r Ratings) error {
	_, err := db.Exec(ctx, `
        INSERT INTO rating_history(game_id, engine_id, elo, g_rating, g_rd, g_sigma)
        VALUES ($1::uuid,$2,$3,$4,$5,$6)
    `, gameID.String(), engineID, r.Elo, r.GRating, r.GRD, r.GSigma)
	return err
}

const pgGameColumns = `id::text, game_index, white, black, opening, moves, result, plies, tc_ms, started_at, ended_at`

func scanPGGame(row pgx.Row) (Game, error) {
	var (
		g  Game
		id string
	)
	if err := row.Scan(&id, &g.Index, &g.White, &g.Black, &g.Opening, &g.Moves,
		&g.Result, &g.Plies, &g.TimeControlMS, &g.StartedAt, &g.EndedAt); err != nil {
		return g, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return g, fmt.Errorf("game id %q: %w", id, err)
	}
	g.ID = parsed
	return g, nil
}

// ListGames returns the most recent games first.
func (db *DB) ListGames(ctx context.Context, limit int) ([]Game, error) {
	rows, err := db.Query(ctx, `SELECT `+pgGameColumns+` FROM games ORDER BY ended_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Game{}
	for rows.Next() {
		g, err := scanPGGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (db *DB) GetGame(ctx context.Context, id uuid.UUID) (Game, error) {
	g, err := scanPGGame(db.QueryRow(ctx, `SELECT `+pgGameColumns+` FROM games WHERE id = $1::uuid`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return g, ErrNotFound
	}
	return g, err
}

// RatingHistory returns an engine's rating points, oldest first.
func (db *DB) RatingHistory(ctx context.Context, engineID int64) ([]RatingPoint, error) {
	rows, err := db.Query(ctx, `
		SELECT game_id::text, elo, g_rating, g_rd, g_sigma
		  FROM rating_history WHERE engine_id = $1 ORDER BY id
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
