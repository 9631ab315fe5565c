package deck

import (
	"fmt"
	"slices"
)

// Shuffler is satisfied by *rand.Rand from math/rand/v2 and by randutil.Locked.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Deck is an ordered set of card identifiers.
type Deck struct {
	cards []Card
}

// New creates the fixed 52-card deck in identifier order.
func New() *Deck {
	d := &Deck{cards: make([]Card, Size)}
	for i := range d.cards {
		d.cards[i] = Card(i)
	}
	return d
}

// Shuffle randomizes the order of cards in the deck
func (d *Deck) Shuffle(rng Shuffler) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Cards returns a copy of the current order.
func (d *Deck) Cards() []Card {
	return slices.Clone(d.cards)
}

// Partition splits the deck into n contiguous groups of equal size in the
// current order. Group i holds cards [i*size, (i+1)*size).
func (d *Deck) Partition(n int) ([][]Card, error) {
	if n <= 0 || len(d.cards)%n != 0 {
		return nil, fmt.Errorf("cannot split %d cards into %d groups", len(d.cards), n)
	}
	size := len(d.cards) / n
	groups := make([][]Card, n)
	for i := range groups {
		groups[i] = slices.Clone(d.cards[i*size : (i+1)*size])
	}
	return groups, nil
}

// Holder returns the index of the group holding c, or -1.
func Holder(groups [][]Card, c Card) int {
	for i, g := range groups {
		if slices.Contains(g, c) {
			return i
		}
	}
	return -1
}

// Sort orders cards by game rank, lowest first.
func Sort(cards []Card) {
	slices.Sort(cards)
}
