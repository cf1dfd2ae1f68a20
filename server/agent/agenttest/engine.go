// Package agenttest provides in-memory contestants for arbiter and tournament
// tests.
package agenttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"onitama-arena/server/engine"
)

// Engine plays a scripted game: it answers "m1", "m2", ... until it has heard
// Plies moves, then answers Final. Two Engines with the same script agree on
// every position.
type Engine struct {
	Plies int
	Final engine.Move
	// Err, when set, is returned from GenMove once Plies moves were heard
	// instead of Final.
	Err error

	name string

	mu      sync.Mutex
	hands   []engine.Hand
	heard   []engine.Move
	budgets []time.Duration
	quits   int
}

func New(name string, plies int, final engine.Move) *Engine {
	return &Engine{name: name, Plies: plies, Final: final}
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) NewGame(h engine.Hand) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hands = append(e.hands, h)
	return nil
}

func (e *Engine) Move(m engine.Move) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.heard = append(e.heard, m)
	return nil
}

func (e *Engine) GenMove(ctx context.Context, budget time.Duration) (engine.Move, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.budgets = append(e.budgets, budget)
	if len(e.heard) < e.Plies {
		return engine.Move(fmt.Sprintf("m%d", len(e.heard)+1)), nil
	}
	if e.Err != nil {
		return "", e.Err
	}
	return e.Final, nil
}

func (e *Engine) Quit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quits++
}

func (e *Engine) Hands() []engine.Hand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.Hand(nil), e.hands...)
}

func (e *Engine) Heard() []engine.Move {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.Move(nil), e.heard...)
}

func (e *Engine) Budgets() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Duration(nil), e.budgets...)
}

func (e *Engine) Quits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quits
}
