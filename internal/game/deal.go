package game

import (
	"fmt"

	"github.com/lox/bigtwo/internal/deck"
)

// DealIfReady deals a full forming room exactly once. It returns true only
// for the call that performed the deal; later calls on an already dealt
// room return false and no error. A room that lost a player before the deal
// returns ErrQuorum with its phase untouched.
func (c *Coordinator) DealIfReady(roomID int) (bool, error) {
	room, ok := c.alloc.lookup(roomID)
	if !ok {
		return false, ErrUnknownRoom
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	switch room.phase {
	case Forming:
	case Closed:
		return false, ErrUnknownRoom
	default:
		return false, nil
	}
	if n := room.occupiedLocked(); n < Seats {
		return false, fmt.Errorf("%w: %d seated", ErrQuorum, n)
	}

	d := deck.New()
	d.Shuffle(c.rng)
	groups, err := d.Partition(Seats)
	if err != nil {
		return false, fmt.Errorf("partition deck: %w", err)
	}
	first := deck.Holder(groups, deck.Lowest)

	room.phase = Dealt
	room.turn = newTurnState(groups, first)
	room.phase = InPlay

	c.roundsDealt.Add(1)
	room.logger.Info("Dealt round", "first", room.seats[first], "seat", first)
	return true, nil
}
