package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

const (
	infoPrefix     = "info "
	bestMovePrefix = "bestmove "
	quitCommand    = "quit\n"
)

// ErrProtocolRead is returned when an engine's output ends (or yields an empty
// line) before a bestmove reply arrives.
var ErrProtocolRead = errors.New("engine protocol read failed")

func encodeNewGame(h Hand) string { return "newgame " + h.String() + "\n" }

func encodeMove(m Move) string { return "move " + string(m) + "\n" }

// Budgets are sent in whole milliseconds, truncated.
func encodeGenMove(budget time.Duration) string {
	return fmt.Sprintf("genmove %d\n", budget.Milliseconds())
}

// DecodeReply classifies one line of engine output. Surrounding whitespace is
// ignored; prefixes are case-sensitive.
func DecodeReply(line string) Reply {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, bestMovePrefix):
		return Reply{Kind: ReplyBestMove, Text: strings.TrimPrefix(line, bestMovePrefix)}
	case strings.HasPrefix(line, infoPrefix):
		return Reply{Kind: ReplyInfo, Text: strings.TrimPrefix(line, infoPrefix)}
	default:
		return Reply{Kind: ReplyOther, Text: line}
	}
}

// Command is an engine launch command: the line the operator typed, which also
// identifies the engine in records, and its argv.
type Command struct {
	Line string
	Argv []string
}

func (c Command) String() string { return c.Line }

// ParseCommand splits a command line shell-style, honoring quotes.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	argv, err := shellwords.Parse(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse engine command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return Command{}, fmt.Errorf("empty engine command")
	}
	return Command{Line: line, Argv: argv}, nil
}
