package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/bigtwo/internal/auth"
	"github.com/lox/bigtwo/internal/deck"
	"github.com/lox/bigtwo/internal/randutil"
)

// Accounts is the persistence collaborator: credentials and scores.
// auth.Authenticator implements it.
type Accounts interface {
	VerifyCredentials(ctx context.Context, name, password string) (bool, error)
	CreateAccount(ctx context.Context, name, password string) error
	Score(ctx context.Context, name string) (int, error)
	SetScore(ctx context.Context, name string, score int) error
}

// Options configures a Coordinator. Zero values select production defaults.
type Options struct {
	Clock  quartz.Clock
	Rand   deck.Shuffler
	Logger *log.Logger
}

// Stats is a point-in-time view of coordinator activity.
type Stats struct {
	Connected       int
	OpenRooms       int
	RoundsDealt     int64
	RoundsCompleted int64
	RoundsAbandoned int64
	Plays           int64
	Evictions       int64
}

// Coordinator wires presence, allocation, dealing and turn tracking around
// a single set of locks. One instance is created per process.
type Coordinator struct {
	accounts Accounts
	registry *Registry
	alloc    *Allocator
	rng      deck.Shuffler
	clock    quartz.Clock
	logger   *log.Logger

	roundsDealt     atomic.Int64
	roundsCompleted atomic.Int64
	roundsAbandoned atomic.Int64
	plays           atomic.Int64
	evictions       atomic.Int64
}

func New(accounts Accounts, opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Rand == nil {
		opts.Rand = randutil.NewLocked(nil)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	registry := NewRegistry(opts.Clock, opts.Logger)
	return &Coordinator{
		accounts: accounts,
		registry: registry,
		alloc:    NewAllocator(registry, opts.Logger),
		rng:      opts.Rand,
		clock:    opts.Clock,
		logger:   opts.Logger.WithPrefix("coordinator"),
	}
}

// Login verifies credentials and marks the player Online.
func (c *Coordinator) Login(ctx context.Context, name, password string) (PlayerInfo, error) {
	ok, err := c.accounts.VerifyCredentials(ctx, name, password)
	if err != nil {
		return PlayerInfo{}, fmt.Errorf("verify credentials: %w", err)
	}
	if !ok {
		c.logger.Debug("Login rejected", "player", name)
		return PlayerInfo{}, ErrBadCredentials
	}
	score, err := c.accounts.Score(ctx, name)
	if err != nil {
		return PlayerInfo{}, fmt.Errorf("load score: %w", err)
	}
	return c.registry.connect(name, score), nil
}

// Register creates an account. It does not log the player in.
func (c *Coordinator) Register(ctx context.Context, name, password string) error {
	err := c.accounts.CreateAccount(ctx, name, password)
	switch {
	case err == nil:
		c.logger.Info("Account registered", "player", name)
		return nil
	case errors.Is(err, auth.ErrDuplicate):
		return ErrDuplicateAccount
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fmt.Errorf("%w: %v", ErrBadCredentials, err)
	default:
		return fmt.Errorf("create account: %w", err)
	}
}

// Logout releases the player's seat and marks them Offline.
func (c *Coordinator) Logout(name string) error {
	return c.disconnect(name, func(p *Player) bool { return true }, "logout")
}

// Back returns a connected player to the lobby: any seat is released and
// the player is Online again.
func (c *Coordinator) Back(name string) error {
	p := c.registry.get(name)
	if p == nil {
		return ErrNotConnected
	}
	c.alloc.mu.Lock()
	defer c.alloc.mu.Unlock()

	var err error
	c.alloc.withSeatLocked(p, func(room *Room) {
		if !p.state.Connected() {
			err = ErrNotConnected
			return
		}
		c.alloc.releaseLocked(room, p)
		p.state = Online
		p.lastSeen = c.clock.Now()
	})
	return err
}

// disconnect releases and marks Offline a player for whom evict returns
// true, evaluated under the player's lock.
func (c *Coordinator) disconnect(name string, evict func(p *Player) bool, reason string) error {
	p := c.registry.get(name)
	if p == nil {
		return ErrNotConnected
	}
	c.alloc.mu.Lock()
	defer c.alloc.mu.Unlock()

	var err error
	c.alloc.withSeatLocked(p, func(room *Room) {
		if !p.state.Connected() {
			err = ErrNotConnected
			return
		}
		if !evict(p) {
			err = errKept
			return
		}
		c.alloc.releaseLocked(room, p)
		p.state = Offline
		c.registry.logger.Info("Player disconnected", "player", name, "reason", reason)
	})
	return err
}

var errKept = errors.New("player kept")

// Heartbeat records lobby activity.
func (c *Coordinator) Heartbeat(name string) error {
	return c.registry.Heartbeat(name)
}

// touch records activity from a game request. Seated players poll the game
// category, not the lobby.
func (c *Coordinator) touch(name string) {
	_ = c.registry.Heartbeat(name) // Offline players are rejected by the caller
}

func (c *Coordinator) MarkReady(name string) error {
	return c.registry.MarkReady(name)
}

func (c *Coordinator) MarkNotReady(name string) error {
	return c.registry.MarkNotReady(name)
}

// SweepTimeouts evicts players idle for longer than threshold. With no
// names it considers every connected player. It returns the evicted names.
func (c *Coordinator) SweepTimeouts(threshold time.Duration, names ...string) []string {
	return c.sweepAt(c.clock.Now(), threshold, names)
}

// sweepAt evaluates idleness against now, which the caller captured when
// the sweep started. Each player is rechecked under their own lock, so a
// heartbeat that landed after now keeps the player connected.
func (c *Coordinator) sweepAt(now time.Time, threshold time.Duration, names []string) []string {
	if len(names) == 0 {
		names = c.registry.connectedNames()
	}
	var evicted []string
	for _, name := range names {
		err := c.disconnect(name, func(p *Player) bool {
			return idleLocked(p, now, threshold)
		}, "timeout")
		if err == nil {
			evicted = append(evicted, name)
			c.evictions.Add(1)
		}
	}
	return evicted
}

// RunSweeper evicts idle players every interval until ctx is cancelled.
func (c *Coordinator) RunSweeper(ctx context.Context, interval, threshold time.Duration) error {
	c.logger.Info("Starting presence sweeper", "interval", interval, "threshold", threshold)
	w := c.clock.TickerFunc(ctx, interval, func() error {
		if evicted := c.SweepTimeouts(threshold); len(evicted) > 0 {
			c.logger.Info("Evicted idle players", "players", evicted)
		}
		return nil
	}, "sweeper")
	err := w.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// AssignSeat seats a Ready player; see Allocator.AssignSeat.
func (c *Coordinator) AssignSeat(name string) (int, error) {
	return c.alloc.AssignSeat(name)
}

// Release vacates the player's seat without changing their connection.
func (c *Coordinator) Release(name string) error {
	return c.alloc.Release(name)
}

// Abandon closes a room whose round cannot continue.
func (c *Coordinator) Abandon(roomID int) {
	if c.alloc.Abandon(roomID) {
		c.roundsAbandoned.Add(1)
	}
}

// RoomOccupancy returns the number of occupied seats in a room.
func (c *Coordinator) RoomOccupancy(roomID int) int {
	return c.alloc.Occupancy(roomID)
}

// Player returns a snapshot of a known player.
func (c *Coordinator) Player(name string) (PlayerInfo, bool) {
	return c.registry.Get(name)
}

// Lobby returns every connected player ordered by login time.
func (c *Coordinator) Lobby() []PlayerInfo {
	return c.registry.Connected()
}

// Room returns a snapshot of an open room.
func (c *Coordinator) Room(roomID int) (RoomInfo, bool) {
	return c.alloc.Room(roomID)
}

// Rooms returns snapshots of all open rooms.
func (c *Coordinator) Rooms() []RoomInfo {
	return c.alloc.Rooms()
}

// Score returns the player's persisted score.
func (c *Coordinator) Score(ctx context.Context, name string) (int, error) {
	if c.registry.get(name) == nil {
		return 0, ErrNotConnected
	}
	c.touch(name)
	score, err := c.accounts.Score(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("load score: %w", err)
	}
	return score, nil
}

// GainScore adds delta to the player's persisted score and returns the new
// total. Store failures are returned unchanged in kind.
func (c *Coordinator) GainScore(ctx context.Context, name string, delta int) (int, error) {
	p := c.registry.get(name)
	if p == nil {
		return 0, ErrNotConnected
	}
	c.touch(name)
	p.scoreMu.Lock()
	defer p.scoreMu.Unlock()

	score, err := c.accounts.Score(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("load score: %w", err)
	}
	score += delta
	if err := c.accounts.SetScore(ctx, name, score); err != nil {
		return 0, fmt.Errorf("save score: %w", err)
	}

	p.mu.Lock()
	p.score = score
	p.mu.Unlock()

	c.logger.Info("Score updated", "player", name, "delta", delta, "score", score)
	return score, nil
}

// Stats returns counters for the status endpoint.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Connected:       len(c.registry.Connected()),
		OpenRooms:       len(c.alloc.Rooms()),
		RoundsDealt:     c.roundsDealt.Load(),
		RoundsCompleted: c.roundsCompleted.Load(),
		RoundsAbandoned: c.roundsAbandoned.Load(),
		Plays:           c.plays.Load(),
		Evictions:       c.evictions.Load(),
	}
}
