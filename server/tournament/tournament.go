package tournament

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"onitama-arena/server/agent"
	"onitama-arena/server/engine"
	"onitama-arena/server/judge"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config is the immutable description of a tournament.
type Config struct {
	Engines     [2]engine.Command
	Catalog     engine.Catalog
	TimeControl time.Duration // per-move budget
	Concurrency int           // games in flight; 1 keeps strict alternation in time
	MaxGames    int           // 0 runs until stopped
	Seed        uint64        // opening stream base; 0 picks one at random
	EloStart    float64
	EloK        float64
}

func (c Config) validate() error {
	for i, e := range c.Engines {
		if len(e.Argv) == 0 {
			return fmt.Errorf("engine %d: empty command", i+1)
		}
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if c.TimeControl <= 0 {
		return fmt.Errorf("time control must be positive, got %s", c.TimeControl)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxGames < 0 {
		return fmt.Errorf("max games must not be negative, got %d", c.MaxGames)
	}
	return nil
}

// Spawner starts one contestant for one game.
type Spawner func(ctx context.Context, cmd engine.Command) (agent.Contestant, error)

// Recorder receives every finished game with the standings right after it.
// An error stops the tournament.
type Recorder interface {
	Record(ctx context.Context, g agent.GameRecord, s Snapshot) error
}

// Observer is told about progress. Calls may come from several workers.
type Observer interface {
	GameStarted(index int, player1, player2 string, hand engine.Hand)
	MovePlayed(index, ply int, mover string, m engine.Move)
	GameFinished(g agent.GameRecord, s Snapshot)
}

type nopObserver struct{}

func (nopObserver) GameStarted(int, string, string, engine.Hand) {}
func (nopObserver) MovePlayed(int, int, string, engine.Move)     {}
func (nopObserver) GameFinished(agent.GameRecord, Snapshot)      {}

type Option func(*Runner)

func WithRecorder(r Recorder) Option { return func(t *Runner) { t.recorders = append(t.recorders, r) } }

func WithObserver(o Observer) Option { return func(t *Runner) { t.observer = o } }

// WithStopCheck adds a predicate polled before each game; true ends the
// tournament gracefully once games in flight have finished.
func WithStopCheck(f func() bool) Option { return func(t *Runner) { t.stop = f } }

// Runner plays games between the two configured engines until stopped.
type Runner struct {
	cfg       Config
	spawn     Spawner
	recorders []Recorder
	observer  Observer
	stop      func() bool
	standings *Standings

	next atomic.Int64
}

func New(cfg Config, spawn Spawner, opts ...Option) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("tournament config: %w", err)
	}
	if spawn == nil {
		return nil, errors.New("tournament config: nil spawner")
	}
	if cfg.Seed == 0 {
		cfg.Seed = SecureBaseSeed()
	}
	r := &Runner{
		cfg:       cfg,
		spawn:     spawn,
		observer:  nopObserver{},
		standings: NewStandings(cfg.Engines[0].Line, cfg.Engines[1].Line, cfg.EloStart, cfg.EloK),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

func (r *Runner) Standings() *Standings { return r.standings }

// AddRecorder appends a recorder. It must be called before Run.
func (r *Runner) AddRecorder(rc Recorder) { r.recorders = append(r.recorders, rc) }

// Seed returns the base of the opening stream in use.
func (r *Runner) Seed() uint64 { return r.cfg.Seed }

// Run plays until the stop check fires, MaxGames is reached, ctx is cancelled
// or a game fails. Cancelling ctx aborts games in flight without recording
// them and is not an error; every spawned engine is still shut down.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < r.cfg.Concurrency; w++ {
		g.Go(func() error { return r.work(gctx) })
	}
	err := g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func (r *Runner) work(ctx context.Context) error {
	for {
		if ctx.Err() != nil || (r.stop != nil && r.stop()) {
			return nil
		}
		idx := int(r.next.Add(1) - 1)
		if r.cfg.MaxGames > 0 && idx >= r.cfg.MaxGames {
			return nil
		}
		rec, err := r.playGame(ctx, idx)
		if err != nil {
			return fmt.Errorf("game %d: %w", idx+1, err)
		}
		snap := r.standings.Add(rec)
		for _, rc := range r.recorders {
			if err := rc.Record(ctx, rec, snap); err != nil {
				return fmt.Errorf("game %d: record: %w", idx+1, err)
			}
		}
		r.observer.GameFinished(rec, snap)
	}
}

// playGame runs game idx with fresh engines. Even games keep the configured
// order, odd games swap it, so who starts alternates.
func (r *Runner) playGame(ctx context.Context, idx int) (rec agent.GameRecord, err error) {
	cmds := r.cfg.Engines
	slots := [2]int{0, 1}
	swapped := idx%2 == 1
	if swapped {
		cmds[0], cmds[1] = cmds[1], cmds[0]
		slots[0], slots[1] = 1, 0
	}
	hand := r.cfg.Catalog.Deal(int64(seedAt(r.cfg.Seed, idx)))
	r.observer.GameStarted(idx, cmds[0].Line, cmds[1].Line, hand)
	started := time.Now()

	var players [2]agent.Contestant
	for i, c := range cmds {
		p, err := r.spawn(ctx, c)
		if err != nil {
			return rec, err
		}
		players[i] = p
		defer r.release(p, slots[i])
	}

	m := judge.Match{
		Hand:   hand,
		Budget: r.cfg.TimeControl,
		OnMove: func(ply int, mover string, mv engine.Move) { r.observer.MovePlayed(idx, ply, mover, mv) },
	}
	res, err := m.Play(ctx, players[0], players[1])
	if err != nil {
		return rec, err
	}
	outcome, err := agent.Resolve(res.Final, res.Flipped)
	if err != nil {
		return rec, err
	}
	return agent.GameRecord{
		ID:          uuid.New(),
		Index:       idx,
		Player1:     cmds[0].Line,
		Player2:     cmds[1].Line,
		Swapped:     swapped,
		Opening:     hand,
		Moves:       res.Moves,
		Outcome:     outcome,
		TimeControl: r.cfg.TimeControl,
		StartedAt:   started,
		EndedAt:     time.Now(),
	}, nil
}

// release quits a contestant and charges its late replies to its slot.
func (r *Runner) release(p agent.Contestant, slot int) {
	p.Quit()
	if o, ok := p.(interface{ Overruns() int }); ok {
		r.standings.AddOverruns(slot, o.Overruns())
	}
}
