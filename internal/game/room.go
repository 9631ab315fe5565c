package game

import (
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lox/bigtwo/internal/deck"
)

// Seats is the fixed number of seats in every room.
const Seats = 4

// HandSize is the number of cards dealt to each seat.
const HandSize = deck.Size / Seats

// Phase is a room's lifecycle phase.
type Phase int

const (
	Forming Phase = iota
	Dealt
	InPlay
	Closed
)

func (p Phase) String() string {
	switch p {
	case Forming:
		return "forming"
	case Dealt:
		return "dealt"
	case InPlay:
		return "in-play"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Play is one recorded play.
type Play struct {
	User        string
	Description string
	Count       int
	Cards       []deck.Card
}

// Hand is the cards held by one seat. Remaining is decremented by every
// play's count; Cards only loses cards that a play names explicitly.
type Hand struct {
	Cards     []deck.Card
	Remaining int
}

func (h *Hand) holds(cards []deck.Card) bool {
	left := slices.Clone(h.Cards)
	for _, c := range cards {
		i := slices.Index(left, c)
		if i < 0 {
			return false
		}
		left = slices.Delete(left, i, i+1)
	}
	return true
}

func (h *Hand) remove(cards []deck.Card) {
	for _, c := range cards {
		if i := slices.Index(h.Cards, c); i >= 0 {
			h.Cards = slices.Delete(h.Cards, i, i+1)
		}
	}
}

// TurnState is the per-room round state created by a deal.
type TurnState struct {
	Current int
	First   int
	Last    *Play
	Hands   [Seats]Hand
	// Views holds the last play each seat should be shown. The seat about
	// to act has its view cleared by the play that hands it the turn.
	Views  [Seats]*Play
	Over   bool
	Winner int
}

func newTurnState(groups [][]deck.Card, first int) *TurnState {
	t := &TurnState{Current: first, First: first, Winner: -1}
	for i, g := range groups {
		cards := slices.Clone(g)
		deck.Sort(cards)
		t.Hands[i] = Hand{Cards: cards, Remaining: len(cards)}
	}
	return t
}

// TotalRemaining is the number of cards left across all seats.
func (t *TurnState) TotalRemaining() int {
	total := 0
	for _, h := range t.Hands {
		total += h.Remaining
	}
	return total
}

func (t *TurnState) check() error {
	if t.Current < 0 || t.Current >= Seats {
		return fmt.Errorf("%w: current seat %d", ErrInvariant, t.Current)
	}
	if t.First < 0 || t.First >= Seats {
		return fmt.Errorf("%w: first seat %d", ErrInvariant, t.First)
	}
	for i, h := range t.Hands {
		if h.Remaining < 0 || h.Remaining > HandSize || len(h.Cards) < h.Remaining {
			return fmt.Errorf("%w: seat %d remaining %d with %d cards", ErrInvariant, i, h.Remaining, len(h.Cards))
		}
	}
	return nil
}

// Room is a table of four seats. Fields are guarded by mu.
type Room struct {
	mu     sync.Mutex
	id     int
	seats  [Seats]string
	phase  Phase
	turn   *TurnState
	logger *log.Logger
}

// RoomInfo is an immutable snapshot of a Room.
type RoomInfo struct {
	ID       int
	Seats    [Seats]string
	Phase    Phase
	Occupied int
	Current  int
	First    int
	Last     *Play
	Over     bool
}

func newRoom(id int, logger *log.Logger) *Room {
	return &Room{
		id:     id,
		phase:  Forming,
		logger: logger.WithPrefix("room").With("room", id),
	}
}

func (r *Room) occupiedLocked() int {
	n := 0
	for _, s := range r.seats {
		if s != "" {
			n++
		}
	}
	return n
}

func (r *Room) seatOfLocked(name string) int {
	return slices.Index(r.seats[:], name)
}

// vacateLocked removes name from the room. Forming rooms compact their
// seats; dealt rooms keep seat numbers fixed and leave a hole.
func (r *Room) vacateLocked(name string) {
	i := r.seatOfLocked(name)
	if i < 0 {
		return
	}
	if r.phase == Forming {
		copy(r.seats[i:], r.seats[i+1:])
		r.seats[Seats-1] = ""
		return
	}
	r.seats[i] = ""
}

func (r *Room) snapshotLocked() RoomInfo {
	info := RoomInfo{
		ID:       r.id,
		Seats:    r.seats,
		Phase:    r.phase,
		Occupied: r.occupiedLocked(),
		Current:  -1,
		First:    -1,
	}
	if r.turn != nil {
		info.Current = r.turn.Current
		info.First = r.turn.First
		info.Over = r.turn.Over
		if r.turn.Last != nil {
			last := *r.turn.Last
			info.Last = &last
		}
	}
	return info
}
