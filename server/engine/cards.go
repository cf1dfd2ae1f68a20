package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// Catalog is the ordered set of cards openings are drawn from.
type Catalog []Card

var defaultCatalog = [...]Card{
	"rabbit", "cobra", "rooster", "tiger",
	"monkey", "crab", "crane", "frog",
	"boar", "horse", "elephant", "ox",
	"goose", "dragon", "mantis", "eel",
}

// DefaultCatalog returns a fresh copy of the sixteen standard cards.
func DefaultCatalog() Catalog {
	out := make(Catalog, len(defaultCatalog))
	copy(out, defaultCatalog[:])
	return out
}

// Validate checks the catalog can produce an opening hand.
func (c Catalog) Validate() error {
	if len(c) < HandSize {
		return fmt.Errorf("catalog has %d cards, need at least %d", len(c), HandSize)
	}
	seen := make(map[Card]struct{}, len(c))
	for _, card := range c {
		if card == "" {
			return fmt.Errorf("catalog contains an empty card name")
		}
		if _, dup := seen[card]; dup {
			return fmt.Errorf("catalog contains %q twice", card)
		}
		seen[card] = struct{}{}
	}
	return nil
}

// Contains reports whether card is part of the catalog.
func (c Catalog) Contains(card Card) bool {
	for _, x := range c {
		if x == card {
			return true
		}
	}
	return false
}

// Deal draws HandSize distinct cards uniformly without replacement.
// A zero seed draws from the clock.
func (c Catalog) Deal(seed int64) Hand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))
	deck := make([]Card, len(c))
	copy(deck, c)
	var h Hand
	// partial Fisher-Yates: the first HandSize slots are a uniform sample
	for i := 0; i < HandSize; i++ {
		j := i + r.Intn(len(deck)-i)
		deck[i], deck[j] = deck[j], deck[i]
		h[i] = deck[i]
	}
	return h
}
