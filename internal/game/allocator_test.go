package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignSeatFourPlayersShareRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	roomID := f.seat(t, "alice", "bob", "carol", "dave")

	assert.Equal(t, 1, roomID)
	assert.Equal(t, 4, f.c.RoomOccupancy(1))

	roster, err := f.c.Roster(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, roster)

	for _, name := range roster {
		p, _ := f.c.Player(name)
		assert.Equal(t, InGame, p.State)
		assert.Equal(t, 1, p.RoomID)
	}
	assertSeatConsistency(t, f.c)
}

func TestAssignSeatPreconditions(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	_, err := f.c.AssignSeat("ghost")
	assert.ErrorIs(t, err, ErrNotConnected)

	f.login(t, "alice")
	_, err = f.c.AssignSeat("alice")
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, f.c.MarkReady("alice"))
	_, err = f.c.AssignSeat("alice")
	require.NoError(t, err)

	_, err = f.c.AssignSeat("alice")
	assert.ErrorIs(t, err, ErrAlreadySeated)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Len(t, f.c.Rooms(), 1, "failed assignment must not create a room")
}

func TestAssignSeatConcurrentFive(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	names := []string{"p1", "p2", "p3", "p4", "p5"}
	f.login(t, names...)
	for _, name := range names {
		require.NoError(t, f.c.MarkReady(name))
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		mu    sync.Mutex
		rooms = make(map[int]int)
	)
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			id, err := f.c.AssignSeat(name)
			assert.NoError(t, err)
			mu.Lock()
			rooms[id]++
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, map[int]int{1: 4, 2: 1}, rooms)
	assert.Equal(t, 4, f.c.RoomOccupancy(1))
	assert.Equal(t, 1, f.c.RoomOccupancy(2))
	assertSeatConsistency(t, f.c)
}

func TestAssignSeatManyConcurrent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	const players = 37
	names := make([]string, players)
	for i := range names {
		names[i] = fmt.Sprintf("player%02d", i)
	}
	f.login(t, names...)
	for _, name := range names {
		require.NoError(t, f.c.MarkReady(name))
	}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.c.AssignSeat(name)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rooms := f.c.Rooms()
	require.Len(t, rooms, 10)
	for i, room := range rooms {
		assert.Equal(t, i+1, room.ID)
		if i < 9 {
			assert.Equal(t, 4, room.Occupied)
		}
	}
	assert.Equal(t, 1, rooms[9].Occupied)
	assertSeatConsistency(t, f.c)
}

func TestReleaseFormingRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.seat(t, "alice", "bob", "carol")

	require.NoError(t, f.c.Release("bob"))
	roster, err := f.c.Roster(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol", "", ""}, roster)

	p, _ := f.c.Player("bob")
	assert.Equal(t, Online, p.State)
	assert.Zero(t, p.RoomID)

	// The freed seat is filled before a new room is created.
	require.NoError(t, f.c.MarkReady("bob"))
	id, err := f.c.AssignSeat("bob")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assertSeatConsistency(t, f.c)
}

func TestEmptyRoomIsClosedAndNotReused(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.seat(t, "alice")

	require.NoError(t, f.c.Logout("alice"))
	_, ok := f.c.Room(1)
	assert.False(t, ok)
	assert.Zero(t, f.c.RoomOccupancy(1))

	f.login(t, "bob")
	require.NoError(t, f.c.MarkReady("bob"))
	id, err := f.c.AssignSeat("bob")
	require.NoError(t, err)
	assert.Equal(t, 2, id, "room ids are never reused")
}

func TestDealtRoomIsSkippedByAllocator(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.dealt(t, "alice", "bob", "carol", "dave")

	// A player leaving a dealt room leaves a hole that is never refilled.
	require.NoError(t, f.c.Back("bob"))
	room, ok := f.c.Room(1)
	require.True(t, ok)
	assert.Equal(t, [Seats]string{"alice", "", "carol", "dave"}, room.Seats)
	assert.Equal(t, InPlay, room.Phase)

	require.NoError(t, f.c.MarkReady("bob"))
	id, err := f.c.AssignSeat("bob")
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assertSeatConsistency(t, f.c)
}

func TestAbandonReturnsPlayersToLobby(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.dealt(t, "alice", "bob", "carol", "dave")

	require.NoError(t, f.c.Logout("dave"))
	assert.Equal(t, 3, f.c.SeatCountInRoom(1))

	f.c.Abandon(1)
	_, ok := f.c.Room(1)
	assert.False(t, ok)
	for _, name := range []string{"alice", "bob", "carol"} {
		p, _ := f.c.Player(name)
		assert.Equal(t, Online, p.State)
		assert.Zero(t, p.RoomID)
	}
	assert.EqualValues(t, 1, f.c.Stats().RoundsAbandoned)

	f.c.Abandon(1)
	assert.EqualValues(t, 1, f.c.Stats().RoundsAbandoned, "abandoning twice is a no-op")
	assertSeatConsistency(t, f.c)
}

func TestConcurrentAbandonCountsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.dealt(t, "alice", "bob", "carol", "dave")
	require.NoError(t, f.c.Logout("dave"))

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			f.c.Abandon(1)
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, f.c.Stats().RoundsAbandoned)
	assertSeatConsistency(t, f.c)
}

func TestBackRequiresConnection(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	assert.ErrorIs(t, f.c.Back("ghost"), ErrNotConnected)
	f.login(t, "alice")
	require.NoError(t, f.c.MarkReady("alice"))
	require.NoError(t, f.c.Back("alice"))
	p, _ := f.c.Player("alice")
	assert.Equal(t, Online, p.State)

	require.NoError(t, f.c.Logout("alice"))
	assert.ErrorIs(t, f.c.Back("alice"), ErrNotConnected)
}
