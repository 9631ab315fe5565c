package game

import (
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// Allocator seats Ready players into rooms of four. The room table is
// guarded by mu, which is held exclusively for every seat change so that
// concurrent requests can never seat a fifth player or create two rooms
// for the same players.
type Allocator struct {
	mu       sync.RWMutex
	rooms    map[int]*Room
	order    []int
	nextID   int
	registry *Registry
	logger   *log.Logger
	roomLog  *log.Logger
}

func NewAllocator(registry *Registry, logger *log.Logger) *Allocator {
	return &Allocator{
		rooms:    make(map[int]*Room),
		nextID:   1,
		registry: registry,
		logger:   logger.WithPrefix("allocator"),
		roomLog:  logger,
	}
}

// AssignSeat seats a Ready, unseated player in the lowest-numbered forming
// room with a free seat, creating a room if none has one.
func (a *Allocator) AssignSeat(name string) (int, error) {
	p := a.registry.get(name)
	if p == nil {
		return 0, ErrNotConnected
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := seatable(p); err != nil {
		return 0, err
	}

	for _, id := range a.order {
		room := a.rooms[id]
		room.mu.Lock()
		if room.phase == Forming && room.occupiedLocked() < Seats {
			err := a.seatLocked(room, p)
			room.mu.Unlock()
			return id, err
		}
		room.mu.Unlock()
	}

	room := newRoom(a.nextID, a.roomLog)
	a.nextID++
	a.rooms[room.id] = room
	a.order = append(a.order, room.id)
	a.logger.Debug("Created room", "room", room.id)

	room.mu.Lock()
	defer room.mu.Unlock()
	if err := a.seatLocked(room, p); err != nil {
		a.closeLocked(room)
		return 0, err
	}
	return room.id, nil
}

func seatable(p *Player) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case !p.state.Connected():
		return ErrNotConnected
	case p.roomID != 0:
		return ErrAlreadySeated
	case p.state != Ready:
		return ErrNotReady
	}
	return nil
}

// seatLocked rechecks p under its lock and seats it. Caller holds a.mu and
// room.mu.
func (a *Allocator) seatLocked(room *Room, p *Player) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.roomID != 0:
		return ErrAlreadySeated
	case p.state != Ready:
		return ErrNotReady
	}
	n := room.occupiedLocked()
	room.seats[n] = p.name
	p.roomID = room.id
	p.state = InGame
	room.logger.Info("Player seated", "player", p.name, "seat", n)
	return nil
}

// Occupancy returns the number of occupied seats in a room, or 0 for an
// unknown or closed room.
func (a *Allocator) Occupancy(roomID int) int {
	room, ok := a.lookup(roomID)
	if !ok {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.phase == Closed {
		return 0
	}
	return room.occupiedLocked()
}

// Release removes the player from their room, if any. The player's presence
// state is left to the caller.
func (a *Allocator) Release(name string) error {
	p := a.registry.get(name)
	if p == nil {
		return ErrNotConnected
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.withSeatLocked(p, func(room *Room) {
		a.releaseLocked(room, p)
	})
	return nil
}

// withSeatLocked runs fn holding the player's room (nil when unseated) and
// the player. Caller holds a.mu, which keeps p.roomID stable.
func (a *Allocator) withSeatLocked(p *Player, fn func(room *Room)) {
	var room *Room
	if id := p.room(); id != 0 {
		room = a.rooms[id]
	}
	if room != nil {
		room.mu.Lock()
		defer room.mu.Unlock()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(room)
}

// releaseLocked vacates p's seat. A room left empty is closed. Caller holds
// a.mu, room.mu and p.mu.
func (a *Allocator) releaseLocked(room *Room, p *Player) {
	p.roomID = 0
	if p.state == InGame {
		p.state = Online
	}
	if room == nil {
		return
	}
	room.vacateLocked(p.name)
	room.logger.Info("Player left room", "player", p.name, "phase", room.phase, "occupied", room.occupiedLocked())
	if room.occupiedLocked() == 0 {
		a.closeLocked(room)
	}
}

// Abandon closes a room and sends every remaining occupant back to the
// lobby as Online. It reports false when the room was already gone.
func (a *Allocator) Abandon(roomID int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	room, ok := a.rooms[roomID]
	if !ok {
		return false
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	for i, name := range room.seats {
		if name == "" {
			continue
		}
		if p := a.registry.get(name); p != nil {
			p.mu.Lock()
			if p.roomID == roomID {
				p.roomID = 0
				if p.state == InGame {
					p.state = Online
				}
			}
			p.mu.Unlock()
		}
		room.seats[i] = ""
	}
	room.logger.Warn("Room abandoned")
	a.closeLocked(room)
	return true
}

// closeLocked discards the room's round state and removes it from the
// table. Caller holds a.mu and room.mu.
func (a *Allocator) closeLocked(room *Room) {
	room.phase = Closed
	room.turn = nil
	delete(a.rooms, room.id)
	if i := slices.Index(a.order, room.id); i >= 0 {
		a.order = slices.Delete(a.order, i, i+1)
	}
	room.logger.Debug("Room closed")
}

func (a *Allocator) lookup(roomID int) (*Room, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	room, ok := a.rooms[roomID]
	return room, ok
}

// roomOf returns the room the named player is seated in.
func (a *Allocator) roomOf(name string) (*Room, error) {
	p := a.registry.get(name)
	if p == nil {
		return nil, ErrNotConnected
	}
	id := p.room()
	if id == 0 {
		return nil, ErrNotSeated
	}
	room, ok := a.lookup(id)
	if !ok {
		return nil, ErrNotSeated
	}
	return room, nil
}

// Room returns a snapshot of a room.
func (a *Allocator) Room(roomID int) (RoomInfo, bool) {
	room, ok := a.lookup(roomID)
	if !ok {
		return RoomInfo{}, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.snapshotLocked(), true
}

// Rooms returns snapshots of every open room in ascending id order.
func (a *Allocator) Rooms() []RoomInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	infos := make([]RoomInfo, 0, len(a.order))
	for _, id := range a.order {
		room := a.rooms[id]
		room.mu.Lock()
		infos = append(infos, room.snapshotLocked())
		room.mu.Unlock()
	}
	return infos
}
