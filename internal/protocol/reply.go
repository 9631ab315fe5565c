package protocol

import (
	"strconv"
	"strings"

	"github.com/lox/bigtwo/internal/deck"
)

// Fixed reply strings.
const (
	LoginOK        = "login-ok"
	LoginFailed    = "login-failed"
	RegisterOK     = "register-ok"
	RegisterFailed = "register-failed"
	Unavailable    = "error" + Separator + "unavailable"
)

// Reply tokens: the first field of a structured reply.
const (
	TokenGame      = "game"
	TokenOffline   = "offline"
	TokenReady     = "ready"
	TokenOnline    = "online"
	TokenBack      = "back"
	TokenFail      = "fail"
	TokenError     = "error"
	TokenScore     = "score"
	TokenOther     = "other"
	TokenFirst     = "first"
	TokenCard      = "card"
	TokenPlay      = "play"
	TokenOtherPlay = "otherplay"
	TokenGainScore = "gainscore"
)

// ReasonMalformed is the failure reason for frames that do not decode.
const ReasonMalformed = "malformed"

// Back codes carried by a back reply.
const (
	BackLobby      = 0  // acknowledged a lobby back request
	BackNotStarted = 1  // first requested before the room filled
	BackAbandoned  = -1 // the round lost a player and was abandoned
)

// LobbyEntry is one player in a lobby listing.
type LobbyEntry struct {
	Name  string
	State string
}

// OpponentEntry is one other seat's card count.
type OpponentEntry struct {
	Name      string
	Remaining int
}

func join(fields ...string) string {
	return strings.Join(fields, Separator)
}

// LobbyList renders the count of connected players then name:state pairs.
func LobbyList(entries []LobbyEntry) string {
	fields := make([]string, 0, len(entries)+1)
	fields = append(fields, strconv.Itoa(len(entries)))
	for _, e := range entries {
		fields = append(fields, e.Name+":"+e.State)
	}
	return join(fields...)
}

// Roster renders the names of a full room in seat order.
func Roster(names []string) string {
	return join(append([]string{TokenGame}, names...)...)
}

// Ack renders a lobby acknowledgement such as "ready$1".
func Ack(token, value string) string {
	return join(token, value)
}

func Back(code int) string {
	return join(TokenBack, strconv.Itoa(code))
}

// Fail renders a rejected request with its reason code.
func Fail(reason string) string {
	return join(TokenFail, reason)
}

func Score(n int) string {
	return join(TokenScore, strconv.Itoa(n))
}

func Opponents(entries []OpponentEntry) string {
	fields := make([]string, 0, len(entries)+1)
	fields = append(fields, TokenOther)
	for _, e := range entries {
		fields = append(fields, e.Name+":"+strconv.Itoa(e.Remaining))
	}
	return join(fields...)
}

func First(name string) string {
	return join(TokenFirst, name)
}

func Cards(cards []deck.Card) string {
	return join(append([]string{TokenCard}, deck.FormatIDs(cards)...)...)
}

// Play echoes the description of the play just recorded.
func Play(description string) string {
	return join(TokenPlay, description)
}

// OtherPlay renders the last play a seat should see; empty when none.
func OtherPlay(description string) string {
	return join(TokenOtherPlay, description)
}

func GainScore(total int) string {
	return join(TokenGainScore, strconv.Itoa(total))
}

// Reply is a parsed reply, used by clients.
type Reply struct {
	Token  string
	Fields []string
}

// ParseReply splits a reply into its token and remaining fields. Lobby
// listings have a numeric token (the player count).
func ParseReply(s string) Reply {
	s = trimFrame(s)
	parts := strings.Split(s, Separator)
	return Reply{Token: parts[0], Fields: parts[1:]}
}

// Failed reports whether the reply is a failure or error.
func (r Reply) Failed() bool {
	switch r.Token {
	case TokenFail, TokenError, LoginFailed, RegisterFailed:
		return true
	}
	return false
}
