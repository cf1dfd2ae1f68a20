package main

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"onitama-arena/server/agent"
	"onitama-arena/server/engine"
	"onitama-arena/server/tournament"
)

//
// ===== pretty printing =====
//

var useColor bool

const (
	colReset  = "\033[0m"
	colBold   = "\033[1m"
	colDim    = "\033[2m"
	colGreen  = "\033[32m"
	colRed    = "\033[31m"
	colYellow = "\033[33m"
	colMag    = "\033[35m"
	colCyan   = "\033[36m"
)

func c(code, s string) string {
	if !useColor {
		return s
	}
	return code + s + colReset
}
func bold(s string) string { return c(colBold, s) }
func dim(s string) string  { return c(colDim, s) }
func good(s string) string { return c(colGreen, s) }
func warn(s string) string { return c(colYellow, s) }
func bad(s string) string  { return c(colRed, s) }
func cyan(s string) string { return c(colCyan, s) }
func mag(s string) string  { return c(colMag, s) }

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s %s %s\n", dim("──"), bold(title), dim("──"))
}

func resultTag(o agent.Outcome) string {
	switch o {
	case agent.Player1Wins:
		return good(o.PGN())
	case agent.Player2Wins:
		return bad(o.PGN())
	default:
		return warn(o.PGN())
	}
}

// points prints 1.5 as "1.5" and 2 as "2".
func points(p float64) string { return strconv.FormatFloat(p, 'f', -1, 64) }

// console prints tournament progress. Lines from concurrent games are kept
// whole but may interleave.
type console struct {
	mu    sync.Mutex
	w     io.Writer
	debug bool
}

func (o *console) GameStarted(index int, player1, player2 string, hand engine.Hand) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "%s Playing %s - %s\n", dim(fmt.Sprintf("#%d", index+1)), bold(player1), bold(player2))
	if o.debug {
		fmt.Fprintf(o.w, "%s opening %s\n", dim(fmt.Sprintf("#%d", index+1)), cyan(hand.String()))
	}
}

func (o *console) MovePlayed(index, ply int, mover string, m engine.Move) {
	if !o.debug {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "%s Got move: %s %s\n", dim(fmt.Sprintf("#%d.%d", index+1, ply)), mag(string(m)), dim(mover))
}

func (o *console) GameFinished(g agent.GameRecord, s tournament.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "%s %s after %d plies (%s - %s)\n",
		dim(fmt.Sprintf("#%d", g.Index+1)), resultTag(g.Outcome), g.Plies(), g.Player1, g.Player2)
	fmt.Fprintf(o.w, "Score: %s - %s\n", points(s.Rows[0].Points()), points(s.Rows[1].Points()))
}

// summary prints the final standings.
func summary(w io.Writer, s tournament.Snapshot) {
	section(w, "Summary")
	fmt.Fprintf(w, "games %d, plies %d\n", s.Games, s.Plies)
	for _, r := range s.Rows {
		fmt.Fprintf(w, "%s  +%d =%d -%d  (%s pts, %d as player1, %d overruns)\n",
			bold(r.Name), r.Wins, r.Draws, r.Losses, points(r.Points()), r.AsPlayer1, r.Overruns)
		fmt.Fprintf(w, "    Elo %.1f   Glicko-2 %.1f ± %.0f σ=%.3f\n",
			r.Elo, r.Glicko.Rating, r.Glicko.RD, r.Glicko.Volatility)
	}
	if s.Games > 0 {
		fmt.Fprintf(w, "%s score rate 95%% CI [%.3f, %.3f]\n", s.Rows[0].Name, s.ScoreCI[0], s.ScoreCI[1])
	}
}
