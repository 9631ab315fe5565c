// Package game implements the in-memory session coordinator for four-seat
// Big Two rounds.
//
// The Coordinator owns three kinds of state:
//
//   - presence: every known player's connectivity state and last activity
//     (Registry)
//   - rooms: seat assignment into rooms of exactly four (Allocator)
//   - rounds: the dealt hands and turn rotation of each room (TurnState)
//
// # Basic Usage
//
//	c := game.New(accounts, game.Options{Logger: logger})
//	_ = c.Login(ctx, "alice", "secret")
//	_ = c.MarkReady("alice")
//	roomID, _ := c.AssignSeat("alice")
//	// ...three more players...
//	dealt, _ := c.DealIfReady(roomID)
//
// # Locking
//
// Locks are always taken in the order allocator, room, player. Seat changes
// hold the allocator lock; plays and deals take only their room's lock;
// heartbeats and ready toggles take only the player's lock.
//
// # Deterministic Testing
//
// Options.Rand accepts any deck.Shuffler, so tests can pass
// randutil.New(seed) for reproducible deals and quartz.NewMock(t) for time.
package game
