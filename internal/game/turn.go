package game

import (
	"slices"

	"github.com/lox/bigtwo/internal/deck"
)

// PlayResult describes the room after a recorded play or pass.
type PlayResult struct {
	Play      Play
	Seat      int
	Remaining int
	Next      int
	RoundOver bool
}

// SeatCount is one seat's public state.
type SeatCount struct {
	Seat      int
	Name      string
	Remaining int
}

// RecordPlay records a play of count cards by the seat whose turn it is.
// cards may be empty, in which case only the count is tracked; otherwise it
// must list exactly count cards held by the player.
func (c *Coordinator) RecordPlay(name, description string, count int, cards []deck.Card) (PlayResult, error) {
	return c.act(name, func(room *Room, seat int) (PlayResult, error) {
		t := room.turn
		hand := &t.Hands[seat]
		if count < 1 || count > hand.Remaining {
			return PlayResult{}, ErrBadCount
		}
		if len(cards) > 0 && (len(cards) != count || !hand.holds(cards)) {
			return PlayResult{}, ErrCardsNotHeld
		}

		hand.remove(cards)
		hand.Remaining -= count
		play := &Play{User: name, Description: description, Count: count, Cards: slices.Clone(cards)}
		t.Last = play

		next := (seat + 1) % Seats
		for i := range t.Views {
			t.Views[i] = play
		}
		t.Views[next] = nil
		t.Current = next

		res := PlayResult{Play: *play, Seat: seat, Remaining: hand.Remaining, Next: next}
		c.plays.Add(1)
		if hand.Remaining == 0 {
			t.Over = true
			t.Winner = seat
			res.RoundOver = true
			c.roundsCompleted.Add(1)
			room.logger.Info("Round over", "winner", name, "seat", seat)
		} else {
			room.logger.Debug("Play recorded", "player", name, "count", count, "remaining", hand.Remaining, "next", next)
		}
		return res, nil
	})
}

// Pass hands the turn to the next seat without playing. The opening seat
// may not pass before anything has been played.
func (c *Coordinator) Pass(name string) (PlayResult, error) {
	return c.act(name, func(room *Room, seat int) (PlayResult, error) {
		t := room.turn
		if t.Last == nil {
			return PlayResult{}, ErrMustLead
		}
		next := (seat + 1) % Seats
		t.Current = next
		room.logger.Debug("Seat passed", "player", name, "next", next)
		return PlayResult{Seat: seat, Remaining: t.Hands[seat].Remaining, Next: next}, nil
	})
}

// act runs fn under the room lock once the player is confirmed to hold the
// current seat of a round in play. A room whose turn state fails its
// consistency check is force-closed.
func (c *Coordinator) act(name string, fn func(room *Room, seat int) (PlayResult, error)) (PlayResult, error) {
	room, err := c.alloc.roomOf(name)
	if err != nil {
		return PlayResult{}, err
	}
	c.touch(name)

	res, err := func() (PlayResult, error) {
		room.mu.Lock()
		defer room.mu.Unlock()

		seat := room.seatOfLocked(name)
		if seat < 0 || room.phase == Closed {
			return PlayResult{}, ErrNotSeated
		}
		if room.phase != InPlay || room.turn == nil {
			return PlayResult{}, ErrNotDealt
		}
		if err := room.turn.check(); err != nil {
			room.logger.Error("Closing room with corrupt turn state", "err", err)
			room.phase = Closed
			room.turn = nil
			return PlayResult{}, err
		}
		if room.turn.Over {
			return PlayResult{}, ErrRoundOver
		}
		if room.turn.Current != seat {
			return PlayResult{}, ErrNotYourTurn
		}
		return fn(room, seat)
	}()

	if KindOf(err) == KindInvariant {
		c.Abandon(room.id)
	}
	return res, err
}

// withRound runs fn under the room lock for a seated player in a dealt room.
func (c *Coordinator) withRound(name string, fn func(room *Room, seat int) error) error {
	room, err := c.alloc.roomOf(name)
	if err != nil {
		return err
	}
	c.touch(name)
	room.mu.Lock()
	defer room.mu.Unlock()

	seat := room.seatOfLocked(name)
	if seat < 0 || room.phase == Closed {
		return ErrNotSeated
	}
	if room.turn == nil {
		return ErrNotDealt
	}
	return fn(room, seat)
}

// LastPlay returns the play the player's seat should be shown. It reports
// false when there is none: before the first play, and for the seat whose
// turn was just handed over.
func (c *Coordinator) LastPlay(name string) (Play, bool, error) {
	var (
		play Play
		ok   bool
	)
	err := c.withRound(name, func(room *Room, seat int) error {
		if v := room.turn.Views[seat]; v != nil {
			play, ok = *v, true
		}
		return nil
	})
	return play, ok, err
}

// Hand returns the cards the player still holds, lowest first.
func (c *Coordinator) Hand(name string) ([]deck.Card, error) {
	var cards []deck.Card
	err := c.withRound(name, func(room *Room, seat int) error {
		cards = slices.Clone(room.turn.Hands[seat].Cards)
		return nil
	})
	return cards, err
}

// FirstPlayer returns the name of the seat that opened the round.
func (c *Coordinator) FirstPlayer(name string) (string, error) {
	var first string
	err := c.withRound(name, func(room *Room, seat int) error {
		first = room.seats[room.turn.First]
		return nil
	})
	return first, err
}

// CurrentPlayer returns the name of the seat whose turn it is.
func (c *Coordinator) CurrentPlayer(name string) (string, error) {
	var current string
	err := c.withRound(name, func(room *Room, seat int) error {
		current = room.seats[room.turn.Current]
		return nil
	})
	return current, err
}

// Opponents returns the other seats in turn order starting after the
// player, with their remaining card counts.
func (c *Coordinator) Opponents(name string) ([]SeatCount, error) {
	var others []SeatCount
	err := c.withRound(name, func(room *Room, seat int) error {
		for i := 1; i < Seats; i++ {
			s := (seat + i) % Seats
			others = append(others, SeatCount{
				Seat:      s,
				Name:      room.seats[s],
				Remaining: room.turn.Hands[s].Remaining,
			})
		}
		return nil
	})
	return others, err
}

// SeatCountInRoom returns the occupied seat count of a room.
func (c *Coordinator) SeatCountInRoom(roomID int) int {
	return c.alloc.Occupancy(roomID)
}

// OccupiedSeatCount returns the occupied seat count of the player's room
// together with its id.
func (c *Coordinator) OccupiedSeatCount(name string) (int, int, error) {
	room, err := c.alloc.roomOf(name)
	if err != nil {
		return 0, 0, err
	}
	return room.id, c.alloc.Occupancy(room.id), nil
}

// Roster returns the seat names of a room in seat order.
func (c *Coordinator) Roster(roomID int) ([]string, error) {
	info, ok := c.alloc.Room(roomID)
	if !ok {
		return nil, ErrUnknownRoom
	}
	return info.Seats[:], nil
}
