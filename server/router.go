package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"onitama-arena/server/store"
	"onitama-arena/server/tournament"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Router serves the live scoreboard and, when db is non-nil, stored games.
func Router(standings *tournament.Standings, db store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "store": db != nil})
	})

	r.Get("/api/standings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, standings.Snapshot())
	})

	r.Get("/api/games", func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			http.Error(w, "no result store configured", http.StatusNotFound)
			return
		}
		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		games, err := db.ListGames(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rows": games})
	})

	r.Get("/api/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			http.Error(w, "no result store configured", http.StatusNotFound)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		g, err := db.GetGame(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, g)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
