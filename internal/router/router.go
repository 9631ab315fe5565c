// Package router maps decoded requests onto the game coordinator and renders
// their replies.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/bigtwo/internal/game"
	"github.com/lox/bigtwo/internal/protocol"
)

// Options tunes the presence sweeps the router runs inline.
type Options struct {
	// LoginSweep evicts a stale earlier session of the same player before a
	// login is processed.
	LoginSweep time.Duration
	// IdleTimeout is the threshold for the sweep run on each lobby request.
	// Zero disables the inline lobby sweep.
	IdleTimeout time.Duration
}

// DefaultOptions returns the thresholds used by the original deployment.
func DefaultOptions() Options {
	return Options{
		LoginSweep:  5 * time.Second,
		IdleTimeout: 30 * time.Second,
	}
}

// Router handles one request at a time; it holds no per-connection state
// and is safe for concurrent use.
type Router struct {
	coord  *game.Coordinator
	opts   Options
	logger *log.Logger
}

func New(coord *game.Coordinator, opts Options, logger *log.Logger) *Router {
	return &Router{
		coord:  coord,
		opts:   opts,
		logger: logger.WithPrefix("router"),
	}
}

// Handle executes req and returns the reply. A non-nil error is returned
// only when the account store is unavailable; the reply is then
// protocol.Unavailable and logging the error is left to the caller.
func (r *Router) Handle(ctx context.Context, req protocol.Request) (string, error) {
	var (
		reply string
		err   error
	)
	switch req := req.(type) {
	case protocol.Login:
		reply, err = r.login(ctx, req)
	case protocol.Register:
		reply, err = r.register(ctx, req)
	case protocol.LobbyOnline, protocol.LobbyOffline, protocol.LobbyReady,
		protocol.LobbyNotReady, protocol.LobbyBack:
		reply, err = r.lobby(req)
	default:
		reply, err = r.game(ctx, req)
	}

	if err != nil {
		return protocol.Unavailable, err
	}
	r.logger.Debug("Handled request", "category", req.Category(), "player", req.Player(), "reply", reply)
	return reply, nil
}

func (r *Router) login(ctx context.Context, req protocol.Login) (string, error) {
	if r.opts.LoginSweep > 0 {
		r.coord.SweepTimeouts(r.opts.LoginSweep, req.Name)
	}
	_, err := r.coord.Login(ctx, req.Name, req.Password)
	switch {
	case err == nil:
		return protocol.LoginOK, nil
	case game.KindOf(err) == game.KindUnavailable:
		return "", err
	default:
		return protocol.LoginFailed, nil
	}
}

// register creates the account and logs the player straight in.
func (r *Router) register(ctx context.Context, req protocol.Register) (string, error) {
	err := r.coord.Register(ctx, req.Name, req.Password)
	if game.KindOf(err) == game.KindUnavailable {
		return "", err
	}
	if err != nil {
		return protocol.RegisterFailed, nil
	}
	if _, err := r.coord.Login(ctx, req.Name, req.Password); err != nil {
		if game.KindOf(err) == game.KindUnavailable {
			return "", err
		}
		return protocol.RegisterFailed, nil
	}
	return protocol.RegisterOK, nil
}

func (r *Router) lobby(req protocol.Request) (string, error) {
	if r.opts.IdleTimeout > 0 {
		if evicted := r.coord.SweepTimeouts(r.opts.IdleTimeout); len(evicted) > 0 {
			r.logger.Info("Evicted idle players", "players", evicted)
		}
	}

	name := req.Player()
	switch req.(type) {
	case protocol.LobbyOnline:
		return r.online(name)
	case protocol.LobbyOffline:
		if err := r.coord.Logout(name); err != nil {
			return r.fail(err)
		}
		return protocol.Ack(protocol.TokenOffline, name), nil
	case protocol.LobbyReady:
		if err := r.coord.MarkReady(name); err != nil {
			return r.fail(err)
		}
		return protocol.Ack(protocol.TokenReady, "1"), nil
	case protocol.LobbyNotReady:
		if err := r.coord.MarkNotReady(name); err != nil {
			return r.fail(err)
		}
		return protocol.Ack(protocol.TokenOnline, "1"), nil
	case protocol.LobbyBack:
		if err := r.coord.Back(name); err != nil {
			return r.fail(err)
		}
		return protocol.Back(protocol.BackLobby), nil
	}
	return r.fail(fmt.Errorf("unhandled lobby request %T", req))
}

// online is the lobby poll. It records activity, seats a ready player and,
// once the player's room is full, deals it and returns the roster. A player
// whose dealt room lost a seat is returned to the lobby.
func (r *Router) online(name string) (string, error) {
	if err := r.coord.Heartbeat(name); err != nil {
		return r.fail(err)
	}

	p, _ := r.coord.Player(name)
	if p.RoomID != 0 && r.abandonBelowQuorum(p.RoomID, r.coord.RoomOccupancy(p.RoomID)) {
		p, _ = r.coord.Player(name)
	}
	if p.State == game.Ready && p.RoomID == 0 {
		if _, err := r.coord.AssignSeat(name); err != nil && game.KindOf(err) != game.KindConflict {
			return r.fail(err)
		}
		p, _ = r.coord.Player(name)
	}

	if p.RoomID != 0 && r.coord.RoomOccupancy(p.RoomID) == game.Seats {
		_, err := r.coord.DealIfReady(p.RoomID)
		if err == nil {
			if roster, err := r.coord.Roster(p.RoomID); err == nil {
				return protocol.Roster(roster), nil
			}
		} else if !errors.Is(err, game.ErrQuorum) {
			return r.fail(err)
		}
	}

	lobby := r.coord.Lobby()
	entries := make([]protocol.LobbyEntry, len(lobby))
	for i, info := range lobby {
		entries[i] = protocol.LobbyEntry{Name: info.Name, State: info.State.String()}
	}
	return protocol.LobbyList(entries), nil
}

func (r *Router) game(ctx context.Context, req protocol.Request) (string, error) {
	name := req.Player()
	switch req := req.(type) {
	case protocol.GameScore:
		score, err := r.coord.Score(ctx, name)
		if err != nil {
			return r.fail(err)
		}
		return protocol.Score(score), nil

	case protocol.GameOpponents:
		others, err := r.coord.Opponents(name)
		if err != nil {
			return r.fail(err)
		}
		entries := make([]protocol.OpponentEntry, len(others))
		for i, o := range others {
			entries[i] = protocol.OpponentEntry{Name: o.Name, Remaining: o.Remaining}
		}
		return protocol.Opponents(entries), nil

	case protocol.GameFirst:
		if lost, err := r.quorumLost(name); err != nil {
			return r.fail(err)
		} else if lost {
			return protocol.Back(protocol.BackNotStarted), nil
		}
		first, err := r.coord.FirstPlayer(name)
		if err != nil {
			return r.fail(err)
		}
		return protocol.First(first), nil

	case protocol.GameCards:
		cards, err := r.coord.Hand(name)
		if err != nil {
			return r.fail(err)
		}
		return protocol.Cards(cards), nil

	case protocol.GamePlay:
		if lost, err := r.quorumLost(name); err != nil {
			return r.fail(err)
		} else if lost {
			return protocol.Back(protocol.BackAbandoned), nil
		}
		var err error
		if req.IsPass() {
			_, err = r.coord.Pass(name)
		} else {
			_, err = r.coord.RecordPlay(name, req.Description, req.Count, req.Cards)
		}
		if err != nil {
			return r.fail(err)
		}
		return protocol.Play(req.Description), nil

	case protocol.GameLastPlay:
		if lost, err := r.quorumLost(name); err != nil {
			return r.fail(err)
		} else if lost {
			return protocol.Back(protocol.BackAbandoned), nil
		}
		play, ok, err := r.coord.LastPlay(name)
		if err != nil {
			return r.fail(err)
		}
		if !ok {
			return protocol.OtherPlay(""), nil
		}
		return protocol.OtherPlay(play.Description), nil

	case protocol.GameGainScore:
		total, err := r.coord.GainScore(ctx, name, req.Delta)
		if err != nil {
			return r.fail(err)
		}
		return protocol.GainScore(total), nil
	}
	return r.fail(fmt.Errorf("unhandled game request %T", req))
}

// quorumLost reports whether the player's room has dropped below four
// seats. A dealt room in that state is abandoned; a player in a room that
// never filled is sent back to the lobby alone.
func (r *Router) quorumLost(name string) (bool, error) {
	roomID, occupied, err := r.coord.OccupiedSeatCount(name)
	if err != nil {
		return false, err
	}
	if occupied == game.Seats {
		return false, nil
	}
	if r.abandonBelowQuorum(roomID, occupied) {
		return true, nil
	}
	return true, r.coord.Back(name)
}

// abandonBelowQuorum abandons a dealt room with fewer than four occupied
// seats and reports whether it did.
func (r *Router) abandonBelowQuorum(roomID, occupied int) bool {
	if occupied == game.Seats {
		return false
	}
	room, ok := r.coord.Room(roomID)
	if !ok || room.Phase == game.Forming {
		return false
	}
	r.logger.Warn("Abandoning room below quorum", "room", roomID, "occupied", occupied)
	r.coord.Abandon(roomID)
	return true
}

// fail converts a coordinator error into a reply. Store failures are
// passed up as errors.
func (r *Router) fail(err error) (string, error) {
	switch game.KindOf(err) {
	case game.KindUnavailable:
		return "", err
	case game.KindInvariant:
		r.logger.Error("Room closed after invariant violation", "err", err)
	}
	return protocol.Fail(game.Reason(err)), nil
}
