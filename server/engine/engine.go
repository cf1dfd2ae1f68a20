package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// QuitGrace is how long an engine may take to exit by itself after quit
// before it is killed.
const QuitGrace = 100 * time.Millisecond

// Handle owns one engine process for the length of a single game.
type Handle struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	logf  func(format string, args ...any)

	replies chan string
	readErr error // set before replies is closed
	done    chan struct{}
	reaped  chan struct{}
	debug   bool

	quitOnce sync.Once
	plies    atomic.Int64
	overruns atomic.Int64
}

type Option func(*exec.Cmd, *Handle)

// WithStderr redirects the engine's stderr (default: the arbiter's stderr).
func WithStderr(w io.Writer) Option {
	return func(c *exec.Cmd, _ *Handle) { c.Stderr = w }
}

// WithEnv appends variables to the inherited environment.
func WithEnv(kv ...string) Option {
	return func(c *exec.Cmd, _ *Handle) { c.Env = append(os.Environ(), kv...) }
}

// WithLogf routes info lines and overrun warnings (default: log.Printf).
func WithLogf(f func(format string, args ...any)) Option {
	return func(_ *exec.Cmd, h *Handle) { h.logf = f }
}

// WithDebug also logs reply lines that are neither info nor bestmove.
func WithDebug(on bool) Option {
	return func(_ *exec.Cmd, h *Handle) { h.debug = on }
}

// Start spawns the engine. The caller must call Quit exactly once it is done,
// whatever happens to the game.
func Start(command Command, opts ...Option) (*Handle, error) {
	if len(command.Argv) == 0 {
		return nil, fmt.Errorf("start engine %q: empty argv", command.Line)
	}
	c := exec.Command(command.Argv[0], command.Argv[1:]...)
	c.Stderr = os.Stderr
	h := &Handle{
		name:    command.Line,
		cmd:     c,
		logf:    log.Printf,
		replies: make(chan string, 16),
		done:    make(chan struct{}),
		reaped:  make(chan struct{}),
	}
	for _, o := range opts {
		o(c, h)
	}
	detach(c)

	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("start engine %q: %w", command.Line, err)
	}
	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("start engine %q: %w", command.Line, err)
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start engine %q: %w", command.Line, err)
	}
	h.stdin = stdin
	go h.readLines(stdout)
	return h, nil
}

// readLines forwards output lines of any length. A final line without a
// newline is still delivered.
func (h *Handle) readLines(r io.Reader) {
	defer close(h.replies)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			select {
			case h.replies <- strings.TrimRight(line, "\r\n"):
			case <-h.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.readErr = err
			}
			return
		}
	}
}

func (h *Handle) Name() string { return h.name }

// Plies counts bestmove replies received.
func (h *Handle) Plies() int { return int(h.plies.Load()) }

// Overruns counts replies that arrived after their budget.
func (h *Handle) Overruns() int { return int(h.overruns.Load()) }

// ProcessState is nil until Quit has reaped the process.
func (h *Handle) ProcessState() *os.ProcessState {
	select {
	case <-h.reaped:
		return h.cmd.ProcessState
	default:
		return nil
	}
}

func (h *Handle) send(s string) error {
	if _, err := io.WriteString(h.stdin, s); err != nil {
		return fmt.Errorf("%s: send %q: %w", h.name, strings.TrimSpace(s), err)
	}
	return nil
}

// NewGame announces the opening hand. No reply is expected.
func (h *Handle) NewGame(hand Hand) error { return h.send(encodeNewGame(hand)) }

// Move tells the engine a move was played. No reply is expected.
func (h *Handle) Move(m Move) error { return h.send(encodeMove(m)) }

// GenMove asks for a move within budget and blocks until the bestmove line.
// A late reply is only logged; ctx is for operator stops, not the budget.
func (h *Handle) GenMove(ctx context.Context, budget time.Duration) (Move, error) {
	start := time.Now()
	if err := h.send(encodeGenMove(budget)); err != nil {
		return "", err
	}
	for {
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok = <-h.replies:
		}
		if !ok {
			if h.readErr != nil {
				return "", fmt.Errorf("%s: %w: %w", h.name, ErrProtocolRead, h.readErr)
			}
			return "", fmt.Errorf("%s: %w: output closed before bestmove", h.name, ErrProtocolRead)
		}
		r := DecodeReply(line)
		if r.Kind == ReplyOther && r.Text == "" {
			return "", fmt.Errorf("%s: %w: empty read", h.name, ErrProtocolRead)
		}
		switch r.Kind {
		case ReplyOther:
			if h.debug {
				h.logf("%s: ignored %q", h.name, r.Text)
			}
		case ReplyInfo:
			h.logf("%s: info %s", h.name, r.Text)
		case ReplyBestMove:
			h.plies.Add(1)
			if elapsed := time.Since(start); elapsed > budget {
				h.overruns.Add(1)
				h.logf("WARNING: %s used %s when it was only allotted %s", h.name, elapsed.Round(time.Millisecond), budget)
			}
			return Move(r.Text), nil
		}
	}
}

// Quit asks the engine to exit, kills it after QuitGrace if it has not, and
// reaps it. Safe to call more than once; only the first call does anything.
func (h *Handle) Quit() {
	h.quitOnce.Do(func() {
		defer close(h.reaped)
		// the engine may already be gone; nothing to do about a failed write
		_ = h.send(quitCommand)
		close(h.done)

		exited := make(chan error, 1)
		go func() { exited <- h.cmd.Wait() }()
		select {
		case <-exited:
			return
		case <-time.After(QuitGrace):
		}
		if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			h.logf("%s: kill: %v", h.name, err)
		}
		<-exited
	})
}
