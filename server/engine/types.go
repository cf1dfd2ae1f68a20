package engine

import "strings"

// Card names one of the movement cards.
type Card string

// Hand is the opening deal given identically to both engines.
type Hand [HandSize]Card

const HandSize = 5

func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = string(c)
	}
	return strings.Join(parts, " ")
}

// Move is an opaque move token as sent by an engine. The three terminal tokens
// are stated from the point of view of the engine that was asked to move.
type Move string

const (
	Win  Move = "win"
	Draw Move = "draw"
	Loss Move = "loss"
)

// Terminal reports whether m declares the game over.
func (m Move) Terminal() bool {
	return m == Win || m == Draw || m == Loss
}

// ReplyKind tags a decoded engine output line.
type ReplyKind int

const (
	ReplyOther ReplyKind = iota
	ReplyInfo
	ReplyBestMove
)

// Reply is one engine output line, decoded once at the protocol boundary.
type Reply struct {
	Kind ReplyKind
	Text string // info payload, bestmove token, or the raw line
}
