package game

import (
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Registry tracks every known player's presence. The map is guarded by mu;
// each record by its own lock.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player
	clock   quartz.Clock
	logger  *log.Logger
}

func NewRegistry(clock quartz.Clock, logger *log.Logger) *Registry {
	return &Registry{
		players: make(map[string]*Player),
		clock:   clock,
		logger:  logger.WithPrefix("presence"),
	}
}

func (r *Registry) get(name string) *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.players[name]
}

func (r *Registry) getOrCreate(name string) *Player {
	if p := r.get(name); p != nil {
		return p
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[name]; ok {
		return p
	}
	p := &Player{name: name, state: Offline}
	r.players[name] = p
	return p
}

// connect marks a verified player Online. A player who is already connected
// keeps their state and seat and only has their activity refreshed.
func (r *Registry) connect(name string, score int) PlayerInfo {
	p := r.getOrCreate(name)
	now := r.clock.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Offline {
		p.state = Online
		p.loginAt = now
		r.logger.Info("Player logged in", "player", name)
	} else {
		r.logger.Debug("Player refreshed existing session", "player", name, "state", p.state)
	}
	p.lastSeen = now
	p.score = score
	return p.snapshotLocked()
}

// Heartbeat records activity for a connected player.
func (r *Registry) Heartbeat(name string) error {
	p := r.get(name)
	if p == nil {
		return ErrNotConnected
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.Connected() {
		return ErrNotConnected
	}
	p.lastSeen = r.clock.Now()
	return nil
}

// MarkReady moves a lobby player to Ready. Already-ready players stay Ready.
func (r *Registry) MarkReady(name string) error {
	return r.toggle(name, Ready)
}

// MarkNotReady moves a lobby player back to Online.
func (r *Registry) MarkNotReady(name string) error {
	return r.toggle(name, Online)
}

func (r *Registry) toggle(name string, to State) error {
	p := r.get(name)
	if p == nil {
		return ErrNotConnected
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case Online, Ready:
	case Offline:
		return ErrNotConnected
	default:
		return ErrNotLobby
	}
	if p.state != to {
		r.logger.Debug("Player toggled ready", "player", name, "from", p.state, "to", to)
	}
	p.state = to
	p.lastSeen = r.clock.Now()
	return nil
}

// Get returns a snapshot of the named player.
func (r *Registry) Get(name string) (PlayerInfo, bool) {
	p := r.get(name)
	if p == nil {
		return PlayerInfo{}, false
	}
	return p.snapshot(), true
}

// Connected returns every connected player ordered by login time, then name.
func (r *Registry) Connected() []PlayerInfo {
	r.mu.RLock()
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	r.mu.RUnlock()

	infos := make([]PlayerInfo, 0, len(players))
	for _, p := range players {
		info := p.snapshot()
		if info.State.Connected() {
			infos = append(infos, info)
		}
	}
	slices.SortFunc(infos, func(a, b PlayerInfo) int {
		if c := a.LoginAt.Compare(b.LoginAt); c != 0 {
			return c
		}
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return infos
}

func (r *Registry) connectedNames() []string {
	infos := r.Connected()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

// idleLocked reports whether p has been idle longer than threshold as of
// now. A lastSeen after now (a heartbeat that landed after the sweep began)
// is never idle. Caller holds p.mu.
func idleLocked(p *Player, now time.Time, threshold time.Duration) bool {
	return p.state.Connected() && now.Sub(p.lastSeen) > threshold
}
