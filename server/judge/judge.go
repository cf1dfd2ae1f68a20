package judge

import (
	"context"
	"fmt"
	"time"

	"onitama-arena/server/agent"
	"onitama-arena/server/engine"
)

// SecondOpinionBudget is the fixed budget given to the opponent when it is
// asked to confirm a terminal declaration.
const SecondOpinionBudget = 100 * time.Millisecond

// ConsistencyError means the two engines disagree about how the game ended.
// It is fatal for the whole run: one of the engines has a corrupt game state.
type ConsistencyError struct {
	Declarer  string
	Confirmer string
	Declared  engine.Move
	Confirmed engine.Move
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("disagree about state: %q != %q (%s declared, %s answered)",
		e.Declared, e.Confirmed, e.Declarer, e.Confirmer)
}

// Result is what a finished game leaves behind.
type Result struct {
	Moves   []engine.Move // non-terminal moves in play order
	Final   engine.Move   // terminal token, from the final mover's point of view
	Flipped bool          // engines were out of their starting slots at the end
}

// Match holds the parameters of one game.
type Match struct {
	Hand   engine.Hand
	Budget time.Duration

	// OnMove, if set, sees every move as it is accepted.
	OnMove func(ply int, mover string, m engine.Move)
}

// Play runs the game to its end. first moves first. Neither player is released
// here; the caller owns their lifetimes.
func (m Match) Play(ctx context.Context, first, second agent.Player) (Result, error) {
	players := [2]agent.Player{first, second}
	for _, p := range players {
		if err := p.NewGame(m.Hand); err != nil {
			return Result{}, fmt.Errorf("new game: %w", err)
		}
	}

	var res Result
	for {
		mover, other := players[0], players[1]
		mv, err := mover.GenMove(ctx, m.Budget)
		if err != nil {
			return res, fmt.Errorf("ply %d: %w", len(res.Moves)+1, err)
		}

		if mv.Terminal() {
			confirm, err := other.GenMove(ctx, SecondOpinionBudget)
			if err != nil {
				return res, fmt.Errorf("second opinion: %w", err)
			}
			if confirm != mv {
				return res, &ConsistencyError{
					Declarer:  mover.Name(),
					Confirmer: other.Name(),
					Declared:  mv,
					Confirmed: confirm,
				}
			}
			res.Final = mv
			return res, nil
		}

		res.Moves = append(res.Moves, mv)
		if m.OnMove != nil {
			m.OnMove(len(res.Moves), mover.Name(), mv)
		}
		// the mover hears its own move too so both engines stay in step
		for _, p := range players {
			if err := p.Move(mv); err != nil {
				return res, fmt.Errorf("ply %d: %w", len(res.Moves), err)
			}
		}
		players[0], players[1] = players[1], players[0]
		res.Flipped = !res.Flipped
	}
}
