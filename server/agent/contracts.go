package agent

import (
	"context"
	"fmt"
	"time"

	"onitama-arena/server/engine"

	"github.com/google/uuid"
)

// Player is the arbiter's view of one contestant for the length of a game.
type Player interface {
	Name() string
	NewGame(hand engine.Hand) error
	Move(m engine.Move) error
	GenMove(ctx context.Context, budget time.Duration) (engine.Move, error)
}

// Contestant is a Player that owns a process and must be released after the game.
type Contestant interface {
	Player
	Quit()
}

// Outcome is a game result relative to the player1/player2 assignment of that game.
type Outcome int

const (
	Draw Outcome = iota
	Player1Wins
	Player2Wins
)

func (o Outcome) String() string {
	switch o {
	case Player1Wins:
		return "player1"
	case Player2Wins:
		return "player2"
	default:
		return "draw"
	}
}

// PGN returns the result tag value.
func (o Outcome) PGN() string {
	switch o {
	case Player1Wins:
		return "1-0"
	case Player2Wins:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}

// Score returns player1's score: 1 for a win, 0.5 for a draw, 0 for a loss.
func (o Outcome) Score() float64 {
	switch o {
	case Player1Wins:
		return 1
	case Player2Wins:
		return 0
	default:
		return 0.5
	}
}

// Resolve maps a terminal token, which the mover states from its own point of
// view, onto the stable player1/player2 result. flipped reports whether the
// engines were out of their original slots when the token was declared.
func Resolve(final engine.Move, flipped bool) (Outcome, error) {
	switch final {
	case engine.Draw:
		return Draw, nil
	case engine.Win:
		if flipped {
			return Player2Wins, nil
		}
		return Player1Wins, nil
	case engine.Loss:
		if flipped {
			return Player1Wins, nil
		}
		return Player2Wins, nil
	}
	return Draw, fmt.Errorf("resolve: %q is not a terminal token", final)
}

// GameRecord is everything recorded about one finished game.
type GameRecord struct {
	ID          uuid.UUID
	Index       int
	Player1     string // command line of the engine that moved first
	Player2     string
	Swapped     bool // the second configured engine moved first
	Opening     engine.Hand
	Moves       []engine.Move
	Outcome     Outcome
	TimeControl time.Duration
	StartedAt   time.Time
	EndedAt     time.Time
}

// Plies is the number of non-terminal moves exchanged.
func (g GameRecord) Plies() int { return len(g.Moves) }

// MoveStrings converts the move list for storage.
func (g GameRecord) MoveStrings() []string {
	out := make([]string, len(g.Moves))
	for i, m := range g.Moves {
		out[i] = string(m)
	}
	return out
}
