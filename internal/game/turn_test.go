package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lox/bigtwo/internal/deck"
	"github.com/lox/bigtwo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var table = []string{"alice", "bob", "carol", "dave"}

func TestRecordPlayScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})
	roomID := f.dealt(t, table...)

	res, err := f.c.RecordPlay("alice", "alice$3$0$1$2", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Remaining)
	assert.Equal(t, 1, res.Next)
	assert.False(t, res.RoundOver)

	room, _ := f.c.Room(roomID)
	assert.Equal(t, 1, room.Current)
	require.NotNil(t, room.Last)
	assert.Equal(t, "alice", room.Last.User)
	assert.Equal(t, "alice$3$0$1$2", room.Last.Description)
	assert.Equal(t, 3, room.Last.Count)

	others, err := f.c.Opponents("bob")
	require.NoError(t, err)
	assert.Equal(t, []SeatCount{
		{Seat: 2, Name: "carol", Remaining: 13},
		{Seat: 3, Name: "dave", Remaining: 13},
		{Seat: 0, Name: "alice", Remaining: 10},
	}, others)

	current, err := f.c.CurrentPlayer("dave")
	require.NoError(t, err)
	assert.Equal(t, "bob", current)
}

func TestRecordPlayRemovesNamedCards(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})
	f.dealt(t, table...)

	_, err := f.c.RecordPlay("alice", "pair", 2, []deck.Card{0, 1})
	require.NoError(t, err)
	hand, err := f.c.Hand("alice")
	require.NoError(t, err)
	assert.NotContains(t, hand, deck.Card(0))
	assert.Len(t, hand, 11)

	// bob holds 13..25, not 0.
	_, err = f.c.RecordPlay("bob", "single", 1, []deck.Card{0})
	assert.ErrorIs(t, err, ErrCardsNotHeld)
	_, err = f.c.RecordPlay("bob", "single", 2, []deck.Card{13})
	assert.ErrorIs(t, err, ErrCardsNotHeld)
}

func TestRecordPlayAdvancesModFour(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	roomID := f.dealt(t, table...)

	room, _ := f.c.Room(roomID)
	total := 4 * HandSize
	for range 9 {
		prev := room.Current
		res, err := f.c.RecordPlay(room.Seats[prev], "single", 1, nil)
		require.NoError(t, err)
		total--

		room, _ = f.c.Room(roomID)
		assert.Equal(t, (prev+1)%Seats, room.Current)
		assert.Equal(t, room.Current, res.Next)
	}
	assert.EqualValues(t, 9, f.c.Stats().Plays)

	r, ok := f.c.alloc.lookup(roomID)
	require.True(t, ok)
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, total, r.turn.TotalRemaining())
}

func TestRecordPlayRejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})

	f.login(t, "eve")
	_, err := f.c.RecordPlay("eve", "x", 1, nil)
	assert.ErrorIs(t, err, ErrNotSeated)

	f.seat(t, table...)
	_, err = f.c.RecordPlay("alice", "x", 1, nil)
	assert.ErrorIs(t, err, ErrNotDealt)

	ok, err := f.c.DealIfReady(1)
	require.NoError(t, err)
	require.True(t, ok)

	tests := []struct {
		name  string
		user  string
		count int
		want  error
	}{
		{"out of turn", "bob", 1, ErrNotYourTurn},
		{"zero cards", "alice", 0, ErrBadCount},
		{"more than held", "alice", 14, ErrBadCount},
		{"unknown player", "ghost", 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.c.RecordPlay(tt.user, "x", tt.count, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}

	room, _ := f.c.Room(1)
	assert.Equal(t, 0, room.Current)
	assert.Nil(t, room.Last)
}

func TestConcurrentPlaysAdvanceOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})
	roomID := f.dealt(t, table...)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.c.RecordPlay("alice", "single", 1, nil)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrNotYourTurn)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	room, _ := f.c.Room(roomID)
	assert.Equal(t, 1, room.Current)
}

func TestLastPlayViews(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})
	f.dealt(t, table...)

	_, ok, err := f.c.LastPlay("carol")
	require.NoError(t, err)
	assert.False(t, ok, "nothing played yet")

	_, err = f.c.RecordPlay("alice", "three", 1, nil)
	require.NoError(t, err)

	for _, name := range []string{"alice", "carol", "dave"} {
		play, ok, err := f.c.LastPlay(name)
		require.NoError(t, err)
		require.True(t, ok, name)
		assert.Equal(t, "three", play.Description)
	}
	_, ok, err = f.c.LastPlay("bob")
	require.NoError(t, err)
	assert.False(t, ok, "the successor's view is cleared")

	_, err = f.c.RecordPlay("bob", "four", 1, nil)
	require.NoError(t, err)
	play, ok, err := f.c.LastPlay("bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "four", play.Description)
	_, ok, _ = f.c.LastPlay("carol")
	assert.False(t, ok)
}

func TestPass(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})
	roomID := f.dealt(t, table...)

	_, err := f.c.Pass("alice")
	assert.ErrorIs(t, err, ErrMustLead)

	_, err = f.c.RecordPlay("alice", "single", 1, nil)
	require.NoError(t, err)
	res, err := f.c.Pass("bob")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Next)
	assert.Equal(t, 13, res.Remaining)

	room, _ := f.c.Room(roomID)
	assert.Equal(t, 2, room.Current)
	assert.Equal(t, "alice", room.Last.User)
}

func TestRoundOver(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})
	roomID := f.dealt(t, table...)

	_, err := f.c.RecordPlay("alice", "a", 12, nil)
	require.NoError(t, err)
	for _, name := range []string{"bob", "carol", "dave"} {
		_, err := f.c.Pass(name)
		require.NoError(t, err)
	}
	res, err := f.c.RecordPlay("alice", "b", 1, nil)
	require.NoError(t, err)
	assert.True(t, res.RoundOver)
	assert.Zero(t, res.Remaining)

	_, err = f.c.RecordPlay("bob", "c", 1, nil)
	assert.ErrorIs(t, err, ErrRoundOver)

	room, _ := f.c.Room(roomID)
	assert.True(t, room.Over)
	assert.EqualValues(t, 1, f.c.Stats().RoundsCompleted)

	// The room closes once everyone has gone back to the lobby.
	for _, name := range table {
		require.NoError(t, f.c.Back(name))
	}
	_, ok := f.c.Room(roomID)
	assert.False(t, ok)
}

func TestVacatedCurrentSeatStallsRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})
	roomID := f.dealt(t, table...)

	require.NoError(t, f.c.Back("alice"))
	_, err := f.c.RecordPlay("bob", "x", 1, nil)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	room, ok := f.c.Room(roomID)
	require.True(t, ok, "a vacated turn is not an invariant violation")
	assert.Equal(t, InPlay, room.Phase)
	assert.Equal(t, 0, room.Current)
	assert.Zero(t, f.c.Stats().RoundsAbandoned)
}

func TestCorruptTurnStateClosesRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})
	roomID := f.dealt(t, table...)

	room, ok := f.c.alloc.lookup(roomID)
	require.True(t, ok)
	room.mu.Lock()
	room.turn.Current = 7
	room.mu.Unlock()

	_, err := f.c.RecordPlay("alice", "x", 1, nil)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Equal(t, KindInvariant, KindOf(err))

	_, ok = f.c.Room(roomID)
	assert.False(t, ok)
	for _, name := range table {
		p, _ := f.c.Player(name)
		assert.Equal(t, Online, p.State)
		assert.Zero(t, p.RoomID)
	}
}

func TestGainScore(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()
	f.login(t, "alice")

	score, err := f.c.GainScore(ctx, "alice", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, score)

	score, err = f.c.GainScore(ctx, "alice", -2)
	require.NoError(t, err)
	assert.Equal(t, 3, score)

	acct, err := f.mem.Account(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, acct.Score)
	p, _ := f.c.Player("alice")
	assert.Equal(t, 3, p.Score)

	_, err = f.c.GainScore(ctx, "ghost", 1)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestGainScoreConcurrent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()
	f.login(t, "alice")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.c.GainScore(ctx, "alice", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acct, err := f.mem.Account(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 20, acct.Score)
}

func TestGainScoreUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.login(t, "alice")
	f.mem.SetFailure(errors.New("timeout"))

	_, err := f.c.GainScore(context.Background(), "alice", 1)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Equal(t, KindUnavailable, KindOf(err))
}
