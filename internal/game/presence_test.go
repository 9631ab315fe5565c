package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/bigtwo/internal/auth"
	"github.com/lox/bigtwo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.c.Register(ctx, "alice", "secret"))
	require.NoError(t, f.mem.SetScore(ctx, "alice", 12))

	_, err := f.c.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, known := f.c.Player("alice")
	assert.False(t, known, "failed login must not create presence")

	info, err := f.c.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, Online, info.State)
	assert.Equal(t, 12, info.Score)
	assert.Equal(t, f.clock.Now(), info.LoginAt)

	_, err = f.c.Login(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestLoginStoreUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.login(t, "alice")
	f.mem.SetFailure(errors.New("connection reset"))

	_, err := f.c.Login(context.Background(), "alice", "pw-alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestRegister(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.c.Register(ctx, "bob", "pw"))
	assert.ErrorIs(t, f.c.Register(ctx, "bob", "pw"), ErrDuplicateAccount)
	assert.ErrorIs(t, f.c.Register(ctx, "bad$name", "pw"), ErrBadCredentials)
}

func TestReloginKeepsSeat(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	roomID := f.seat(t, "alice")

	info, err := f.c.Login(context.Background(), "alice", "pw-alice")
	require.NoError(t, err)
	assert.Equal(t, InGame, info.State)
	assert.Equal(t, roomID, info.RoomID)
}

func TestReadyToggle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	assert.ErrorIs(t, f.c.MarkReady("ghost"), ErrNotConnected)

	f.login(t, "alice")
	require.NoError(t, f.c.MarkReady("alice"))
	p, _ := f.c.Player("alice")
	assert.Equal(t, Ready, p.State)

	require.NoError(t, f.c.MarkReady("alice"), "ready is idempotent")
	require.NoError(t, f.c.MarkNotReady("alice"))
	p, _ = f.c.Player("alice")
	assert.Equal(t, Online, p.State)

	require.NoError(t, f.c.MarkReady("alice"))
	_, err := f.c.AssignSeat("alice")
	require.NoError(t, err)
	assert.ErrorIs(t, f.c.MarkNotReady("alice"), ErrNotLobby)

	require.NoError(t, f.c.Logout("alice"))
	assert.ErrorIs(t, f.c.MarkReady("alice"), ErrNotConnected)
}

func TestSweepEvictsIdlePlayer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()
	f.login(t, "alice", "bob")

	f.clock.Advance(20 * time.Second).MustWait(ctx)
	require.NoError(t, f.c.Heartbeat("bob"))
	f.clock.Advance(11 * time.Second).MustWait(ctx)

	evicted := f.c.SweepTimeouts(30 * time.Second)
	assert.Equal(t, []string{"alice"}, evicted)

	p, _ := f.c.Player("alice")
	assert.Equal(t, Offline, p.State)
	p, _ = f.c.Player("bob")
	assert.Equal(t, Online, p.State)

	assert.ErrorIs(t, f.c.Heartbeat("alice"), ErrNotConnected)
}

func TestSweepNamedPlayerOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.login(t, "alice", "bob")
	f.clock.Advance(10 * time.Second).MustWait(context.Background())

	evicted := f.c.SweepTimeouts(5*time.Second, "alice")
	assert.Equal(t, []string{"alice"}, evicted)
	p, _ := f.c.Player("bob")
	assert.Equal(t, Online, p.State)
}

func TestHeartbeatBeforeSweepKeepsPlayer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()
	f.login(t, "alice")

	f.clock.Advance(31 * time.Second).MustWait(ctx)
	require.NoError(t, f.c.Heartbeat("alice"))

	assert.Empty(t, f.c.SweepTimeouts(30*time.Second))
	p, _ := f.c.Player("alice")
	assert.Equal(t, Online, p.State)
}

func TestGameRequestsKeepSeatedPlayers(t *testing.T) {
	t.Parallel()
	f := newFixture(t, identityShuffle{})
	ctx := context.Background()
	roomID := f.dealt(t, table...)

	for i := range 8 {
		f.clock.Advance(5 * time.Second).MustWait(ctx)
		_, err := f.c.RecordPlay(table[i%Seats], "x", 1, nil)
		require.NoError(t, err)
	}
	assert.Empty(t, f.c.SweepTimeouts(30*time.Second))
	assert.Equal(t, Seats, f.c.RoomOccupancy(roomID))

	// Reading the table counts as activity too.
	f.clock.Advance(25 * time.Second).MustWait(ctx)
	for _, name := range table {
		_, _, err := f.c.LastPlay(name)
		require.NoError(t, err)
	}
	f.clock.Advance(25 * time.Second).MustWait(ctx)
	assert.Empty(t, f.c.SweepTimeouts(30*time.Second))

	f.clock.Advance(10 * time.Second).MustWait(ctx)
	assert.Len(t, f.c.SweepTimeouts(30*time.Second), Seats)
}

func TestHeartbeatDuringSweepKeepsPlayer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()
	f.login(t, "alice")

	f.clock.Advance(31 * time.Second).MustWait(ctx)
	started := f.clock.Now()

	// The heartbeat lands after the sweep captured its start time but
	// before it reached alice.
	f.clock.Advance(time.Second).MustWait(ctx)
	require.NoError(t, f.c.Heartbeat("alice"))

	assert.Empty(t, f.c.sweepAt(started, 30*time.Second, nil))
	p, _ := f.c.Player("alice")
	assert.Equal(t, Online, p.State)
}

func TestSweepReleasesSeat(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	roomID := f.seat(t, "alice", "bob")

	f.clock.Advance(time.Minute).MustWait(context.Background())
	require.NoError(t, f.c.Heartbeat("bob"))
	f.c.SweepTimeouts(30 * time.Second)

	assert.Equal(t, 1, f.c.RoomOccupancy(roomID))
	room, ok := f.c.Room(roomID)
	require.True(t, ok)
	assert.Equal(t, "bob", room.Seats[0], "forming rooms compact")
	assertSeatConsistency(t, f.c)
}

func TestRunSweeper(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	c := New(auth.New(mem).WithCost(bcrypt.MinCost), Options{
		Clock:  quartz.NewReal(),
		Logger: testLogger(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Register(ctx, "alice", "pw"))
	_, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.RunSweeper(ctx, 5*time.Millisecond, time.Millisecond) }()

	require.Eventually(t, func() bool {
		p, _ := c.Player("alice")
		return p.State == Offline
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestLobbyOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	f.login(t, "carol")
	f.clock.Advance(time.Second).MustWait(ctx)
	f.login(t, "alice", "bob")
	require.NoError(t, f.c.MarkReady("bob"))

	lobby := f.c.Lobby()
	require.Len(t, lobby, 3)
	assert.Equal(t, "carol", lobby[0].Name)
	assert.Equal(t, "alice", lobby[1].Name)
	assert.Equal(t, "bob", lobby[2].Name)
	assert.Equal(t, Ready, lobby[2].State)

	require.NoError(t, f.c.Logout("carol"))
	assert.Len(t, f.c.Lobby(), 2)
	assert.ErrorIs(t, f.c.Logout("carol"), ErrNotConnected)
}
