package display

import (
	"strings"
	"testing"

	"github.com/lox/bigtwo/internal/deck"
	"github.com/stretchr/testify/assert"
)

func TestReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		contains []string
	}{
		{"login-ok", []string{"login-ok"}},
		{"fail$turn", []string{"rejected", "turn"}},
		{"error$unavailable", []string{"server error", "unavailable"}},
		{"2$alice:online$bob:game", []string{"Lobby (2)", "alice", "online", "bob", "game"}},
		{"0", []string{"Lobby (0)", "nobody"}},
		{"game$alice$bob$carol$dave", []string{"Room dealt", "seat 0", "alice", "seat 3", "dave"}},
		{"card$51$0", []string{"Hand (2)", "3♦(0)", "2♠(51)"}},
		{"card", []string{"no cards"}},
		{"other$bob:13$carol:9", []string{"Opponents", "bob", "13 cards", "9 cards"}},
		{"play$alice$2$0$1", []string{"alice played", "3♦", "3♣"}},
		{"otherplay$bob$0", []string{"bob passed"}},
		{"otherplay$", []string{"no play yet"}},
		{"first$carol", []string{"first to play", "carol"}},
		{"back$-1", []string{"abandoned"}},
		{"back$1", []string{"not full"}},
		{"gainscore$12", []string{"score", "12"}},
		{"ready$1", []string{"ready"}},
		{"mystery$thing", []string{"mystery$thing"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			out := Reply(tt.raw)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestHandSortsCards(t *testing.T) {
	t.Parallel()
	out := Hand([]deck.Card{51, 4, 0})
	assert.Less(t, strings.Index(out, "3♦"), strings.Index(out, "2♠"))
}
