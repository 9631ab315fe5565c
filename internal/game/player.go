package game

import (
	"sync"
	"time"
)

// State is a player's presence state.
type State int

const (
	Offline State = iota
	Online
	Ready
	InGame
)

func (s State) String() string {
	switch s {
	case Offline:
		return "offline"
	case Online:
		return "online"
	case Ready:
		return "ready"
	case InGame:
		return "game"
	default:
		return "unknown"
	}
}

// Connected reports whether the state counts as logged in.
func (s State) Connected() bool {
	return s != Offline
}

// Player is the live presence record for one account. Fields are guarded
// by mu; roomID additionally only changes while the allocator lock is held.
type Player struct {
	mu       sync.Mutex
	name     string
	state    State
	lastSeen time.Time
	loginAt  time.Time
	roomID   int
	score    int

	// scoreMu serialises score read-modify-write without holding mu
	// across store I/O.
	scoreMu sync.Mutex
}

// PlayerInfo is an immutable snapshot of a Player.
type PlayerInfo struct {
	Name     string
	State    State
	LastSeen time.Time
	LoginAt  time.Time
	RoomID   int
	Score    int
}

func (p *Player) snapshot() PlayerInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Player) snapshotLocked() PlayerInfo {
	return PlayerInfo{
		Name:     p.name,
		State:    p.state,
		LastSeen: p.lastSeen,
		LoginAt:  p.loginAt,
		RoomID:   p.roomID,
		Score:    p.score,
	}
}

func (p *Player) room() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roomID
}
