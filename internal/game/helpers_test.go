package game

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/bigtwo/internal/auth"
	"github.com/lox/bigtwo/internal/deck"
	"github.com/lox/bigtwo/internal/randutil"
	"github.com/lox/bigtwo/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testLogger creates a logger that discards output for tests
func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// identityShuffle leaves the deck in id order, so seat 0 holds cards 0..12
// and always opens.
type identityShuffle struct{}

func (identityShuffle) Shuffle(int, func(i, j int)) {}

type fixture struct {
	c     *Coordinator
	mem   *store.Memory
	clock *quartz.Mock
}

func newFixture(t *testing.T, rng deck.Shuffler) *fixture {
	t.Helper()
	mem := store.NewMemory()
	clock := quartz.NewMock(t)
	if rng == nil {
		rng = randutil.NewLocked(randutil.New(1))
	}
	c := New(auth.New(mem).WithCost(bcrypt.MinCost), Options{
		Clock:  clock,
		Rand:   rng,
		Logger: testLogger(),
	})
	return &fixture{c: c, mem: mem, clock: clock}
}

// login registers and logs in each name.
func (f *fixture) login(t *testing.T, names ...string) {
	t.Helper()
	ctx := context.Background()
	for _, name := range names {
		require.NoError(t, f.c.Register(ctx, name, "pw-"+name))
		_, err := f.c.Login(ctx, name, "pw-"+name)
		require.NoError(t, err)
	}
}

// ready logs in, readies and seats each name in order.
func (f *fixture) seat(t *testing.T, names ...string) int {
	t.Helper()
	f.login(t, names...)
	roomID := 0
	for _, name := range names {
		require.NoError(t, f.c.MarkReady(name))
		id, err := f.c.AssignSeat(name)
		require.NoError(t, err)
		roomID = id
	}
	return roomID
}

// dealt seats four players and deals their room.
func (f *fixture) dealt(t *testing.T, names ...string) int {
	t.Helper()
	require.Len(t, names, Seats)
	roomID := f.seat(t, names...)
	ok, err := f.c.DealIfReady(roomID)
	require.NoError(t, err)
	require.True(t, ok)
	return roomID
}

// assertSeatConsistency checks that every player's room id is set exactly
// when the player appears in that room's seats, and no room exceeds four.
func assertSeatConsistency(t *testing.T, c *Coordinator) {
	t.Helper()
	seatedIn := make(map[string]int)
	for _, room := range c.Rooms() {
		require.LessOrEqual(t, room.Occupied, Seats)
		for _, name := range room.Seats {
			if name == "" {
				continue
			}
			_, dup := seatedIn[name]
			require.False(t, dup, "%s seated twice", name)
			seatedIn[name] = room.ID
		}
	}
	for _, p := range c.Lobby() {
		require.Equal(t, seatedIn[p.Name], p.RoomID, "room id for %s", p.Name)
	}
}
