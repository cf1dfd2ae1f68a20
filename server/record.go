package main

import (
	"context"
	"log"
	"sync"
	"time"

	"onitama-arena/server/agent"
	"onitama-arena/server/rating"
	"onitama-arena/server/store"
	"onitama-arena/server/tournament"
)

const storeWriteTimeout = 10 * time.Second

// storeRecorder persists each finished game and the career ratings after it.
// A store failure is logged and turns the recorder off for the rest of the
// run; it never stops the tournament.
type storeRecorder struct {
	mu       sync.Mutex
	db       store.Store
	ids      [2]int64 // by configured slot
	latest   tournament.Snapshot
	disabled bool
}

// newStoreRecorder registers both engines and seeds the standings with their
// stored ratings.
func newStoreRecorder(ctx context.Context, db store.Store, standings *tournament.Standings) (*storeRecorder, error) {
	r := &storeRecorder{db: db}
	snap := standings.Snapshot()
	for i, row := range snap.Rows {
		id, err := db.UpsertEngine(ctx, row.Name)
		if err != nil {
			return nil, err
		}
		r.ids[i] = id
		rt, err := db.GetOrInitRatings(ctx, id)
		if err != nil {
			return nil, err
		}
		standings.Seed(i, rt.Elo, rating.Glicko2{Rating: rt.GRating, RD: rt.GRD, Volatility: rt.GSigma, Games: rt.Games}, rt.Games)
		log.Printf("Seeding ratings → %s: Elo=%.1f Glicko=%.1f/%.0f σ=%.3f (%d career games)",
			row.Name, rt.Elo, rt.GRating, rt.GRD, rt.GSigma, rt.Games)
	}
	return r, nil
}

// Record stores g with the standings as they stood right after it. With
// several workers games can arrive out of order, so career ratings are only
// moved forward to the newest standings seen.
func (r *storeRecorder) Record(ctx context.Context, g agent.GameRecord, s tournament.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled {
		return nil
	}
	// an immediate stop cancels ctx; a finished game is still worth keeping
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
	defer cancel()

	white, black := r.ids[0], r.ids[1]
	if g.Swapped {
		white, black = black, white
	}
	if err := r.db.InsertGame(ctx, g, white, black); err != nil {
		log.Printf("InsertGame failed: %v (disabling DB this run)", err)
		r.disabled = true
		return nil
	}
	if s.Games > r.latest.Games {
		r.latest = s
	}
	for i := range s.Rows {
		name := s.Rows[i].Name
		if err := r.db.UpdateEngineRatings(ctx, r.ids[i], storeRatings(r.latest.Rows[i]), 1, g.Plies()); err != nil {
			log.Printf("UpdateEngineRatings(%s) failed: %v", name, err)
		}
		if err := r.db.InsertRatingPoint(ctx, g.ID, r.ids[i], storeRatings(s.Rows[i])); err != nil {
			log.Printf("InsertRatingPoint(%s) failed: %v", name, err)
		}
	}
	return nil
}

func storeRatings(row tournament.Row) store.Ratings {
	return store.Ratings{Elo: row.Elo, GRating: row.Glicko.Rating, GRD: row.Glicko.RD, GSigma: row.Glicko.Volatility}
}

func (r *storeRecorder) Disabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disabled
}
