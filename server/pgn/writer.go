// Package pgn appends finished games to a PGN-style log file.
package pgn

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"onitama-arena/server/agent"
	"onitama-arena/server/tournament"
)

// Writer appends one record per game. It is safe for concurrent use.
type Writer struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewWriter(path string) *Writer {
	return &Writer{path: path, now: time.Now}
}

func (w *Writer) Path() string { return w.path }

// Record implements tournament.Recorder.
func (w *Writer) Record(_ context.Context, g agent.GameRecord, _ tournament.Snapshot) error {
	return w.Append(g)
}

// Append writes g as a single record. The file is created if missing and
// closed again before Append returns.
func (w *Writer) Append(g agent.GameRecord) error {
	date := g.EndedAt
	if date.IsZero() {
		date = w.now()
	}
	rec := Format(g, date)

	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("pgn: open %s: %w", w.path, err)
	}
	if _, err := f.Write(rec); err != nil {
		f.Close()
		return fmt.Errorf("pgn: write %s: %w", w.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("pgn: close %s: %w", w.path, err)
	}
	return nil
}

// Format renders the record for g dated date.
func Format(g agent.GameRecord, date time.Time) []byte {
	var b bytes.Buffer
	tag := func(k, v string) { fmt.Fprintf(&b, "[%s %q]\n", k, v) }
	tag("Event", "?")
	tag("Site", "?")
	tag("Date", date.Local().Format("2006.01.02"))
	tag("Round", "?")
	tag("White", g.Player1)
	tag("Black", g.Player2)
	tag("Opening", g.Opening.String())
	tag("Plycount", strconv.Itoa(g.Plies()))
	tag("Result", g.Outcome.PGN())
	tag("TimeControl", "+"+seconds(g.TimeControl))
	b.WriteString("\n")
	b.WriteString(strings.Join(g.MoveStrings(), " "))
	b.WriteString("\n\n")
	return b.Bytes()
}

// seconds prints d in seconds with at least one decimal: 1s is "1.0",
// 250ms is "0.25".
func seconds(d time.Duration) string {
	s := strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
