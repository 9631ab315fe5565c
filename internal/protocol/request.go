package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/bigtwo/internal/deck"
)

// ErrMalformed is returned for frames that cannot be decoded.
var ErrMalformed = errors.New("protocol: malformed request")

// Request is one decoded inbound request. The set of implementations is
// closed; the router switches on the concrete type.
type Request interface {
	Category() Category
	// Player is the acting player's name.
	Player() string
	// fields renders the payload without the category.
	fields() []string
}

type (
	Login struct {
		Name     string
		Password string
	}
	Register struct {
		Name     string
		Password string
	}

	LobbyOnline   struct{ Name string }
	LobbyOffline  struct{ Name string }
	LobbyReady    struct{ Name string }
	LobbyNotReady struct{ Name string }
	LobbyBack     struct{ Name string }

	GameScore     struct{ Name string }
	GameOpponents struct{ Name string }
	GameFirst     struct{ Name string }
	GameCards     struct{ Name string }
	GameLastPlay  struct{ Name string }

	// GamePlay records a play. Count 0 is a pass. Description is the raw
	// payload after the action, as shown to other players.
	GamePlay struct {
		Name        string
		Count       int
		Cards       []deck.Card
		Description string
	}
	GameGainScore struct {
		Name  string
		Delta int
	}
)

func (Login) Category() Category         { return CategoryLogin }
func (Register) Category() Category      { return CategoryRegister }
func (LobbyOnline) Category() Category   { return CategoryLobby }
func (LobbyOffline) Category() Category  { return CategoryLobby }
func (LobbyReady) Category() Category    { return CategoryLobby }
func (LobbyNotReady) Category() Category { return CategoryLobby }
func (LobbyBack) Category() Category     { return CategoryLobby }
func (GameScore) Category() Category     { return CategoryGame }
func (GameOpponents) Category() Category { return CategoryGame }
func (GameFirst) Category() Category     { return CategoryGame }
func (GameCards) Category() Category     { return CategoryGame }
func (GameLastPlay) Category() Category  { return CategoryGame }
func (GamePlay) Category() Category      { return CategoryGame }
func (GameGainScore) Category() Category { return CategoryGame }

func (r Login) Player() string         { return r.Name }
func (r Register) Player() string      { return r.Name }
func (r LobbyOnline) Player() string   { return r.Name }
func (r LobbyOffline) Player() string  { return r.Name }
func (r LobbyReady) Player() string    { return r.Name }
func (r LobbyNotReady) Player() string { return r.Name }
func (r LobbyBack) Player() string     { return r.Name }
func (r GameScore) Player() string     { return r.Name }
func (r GameOpponents) Player() string { return r.Name }
func (r GameFirst) Player() string     { return r.Name }
func (r GameCards) Player() string     { return r.Name }
func (r GameLastPlay) Player() string  { return r.Name }
func (r GamePlay) Player() string      { return r.Name }
func (r GameGainScore) Player() string { return r.Name }

func (r Login) fields() []string         { return []string{r.Name, r.Password} }
func (r Register) fields() []string      { return []string{r.Name, r.Password} }
func (r LobbyOnline) fields() []string   { return []string{string(ActionOnline), r.Name} }
func (r LobbyOffline) fields() []string  { return []string{string(ActionOffline), r.Name} }
func (r LobbyReady) fields() []string    { return []string{string(ActionReady), r.Name} }
func (r LobbyNotReady) fields() []string { return []string{string(ActionNoReady), r.Name} }
func (r LobbyBack) fields() []string     { return []string{string(ActionBack), r.Name} }
func (r GameScore) fields() []string     { return []string{string(ActionScore), r.Name} }
func (r GameOpponents) fields() []string { return []string{string(ActionOther), r.Name} }
func (r GameFirst) fields() []string     { return []string{string(ActionFirst), r.Name} }
func (r GameCards) fields() []string     { return []string{string(ActionCard), r.Name} }
func (r GameLastPlay) fields() []string  { return []string{string(ActionOtherPlay), r.Name} }
func (r GameGainScore) fields() []string {
	return []string{string(ActionGainScore), r.Name, strconv.Itoa(r.Delta)}
}
func (r GamePlay) fields() []string {
	f := []string{string(ActionPlay), r.Name, strconv.Itoa(r.Count)}
	return append(f, deck.FormatIDs(r.Cards)...)
}

// IsPass reports whether the play hands over the turn without cards.
func (r GamePlay) IsPass() bool {
	return r.Count == 0
}

// NewPlay builds a play request with the Description Decode would give it.
// No cards means a pass.
func NewPlay(name string, cards []deck.Card) GamePlay {
	p := GamePlay{Name: name, Count: len(cards), Cards: cards}
	p.Description = strings.Join(p.fields()[1:], Separator)
	return p
}

// Decode parses a mux frame whose first field is the category.
func Decode(frame string) (Request, error) {
	frame = trimFrame(frame)
	cat, payload, _ := strings.Cut(frame, Separator)
	return DecodeCategory(Category(cat), payload)
}

// DecodeCategory parses a payload for a known category.
func DecodeCategory(cat Category, payload string) (Request, error) {
	payload = trimFrame(payload)
	f := splitFields(payload)

	switch cat {
	case CategoryLogin, CategoryRegister:
		if len(f) < 2 || f[0] == "" {
			return nil, fmt.Errorf("%w: %s wants name and password", ErrMalformed, cat)
		}
		if cat == CategoryLogin {
			return Login{Name: f[0], Password: f[1]}, nil
		}
		return Register{Name: f[0], Password: f[1]}, nil
	case CategoryLobby:
		return decodeLobby(f)
	case CategoryGame:
		return decodeGame(f, payload)
	default:
		return nil, fmt.Errorf("%w: unknown category %q", ErrMalformed, cat)
	}
}

func decodeLobby(f []string) (Request, error) {
	if len(f) < 2 || f[1] == "" {
		return nil, fmt.Errorf("%w: lobby wants action and name", ErrMalformed)
	}
	name := f[1]
	switch Action(f[0]) {
	case ActionOnline:
		return LobbyOnline{Name: name}, nil
	case ActionOffline:
		return LobbyOffline{Name: name}, nil
	case ActionReady:
		return LobbyReady{Name: name}, nil
	case ActionNoReady:
		return LobbyNotReady{Name: name}, nil
	case ActionBack:
		return LobbyBack{Name: name}, nil
	default:
		return nil, fmt.Errorf("%w: unknown lobby action %q", ErrMalformed, f[0])
	}
}

func decodeGame(f []string, payload string) (Request, error) {
	if len(f) < 2 || f[1] == "" {
		return nil, fmt.Errorf("%w: game wants action and name", ErrMalformed)
	}
	name := f[1]
	switch Action(f[0]) {
	case ActionScore:
		return GameScore{Name: name}, nil
	case ActionOther:
		return GameOpponents{Name: name}, nil
	case ActionFirst:
		return GameFirst{Name: name}, nil
	case ActionCard:
		return GameCards{Name: name}, nil
	case ActionOtherPlay:
		return GameLastPlay{Name: name}, nil
	case ActionPlay:
		if len(f) < 3 {
			return nil, fmt.Errorf("%w: play wants a card count", ErrMalformed)
		}
		count, err := strconv.Atoi(f[2])
		if err != nil || count < 0 {
			return nil, fmt.Errorf("%w: bad card count %q", ErrMalformed, f[2])
		}
		cards, err := deck.ParseAll(f[3:])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		_, desc, _ := strings.Cut(payload, Separator)
		return GamePlay{Name: name, Count: count, Cards: cards, Description: desc}, nil
	case ActionGainScore:
		if len(f) < 3 {
			return nil, fmt.Errorf("%w: gainscore wants a delta", ErrMalformed)
		}
		delta, err := strconv.Atoi(f[2])
		if err != nil {
			return nil, fmt.Errorf("%w: bad delta %q", ErrMalformed, f[2])
		}
		return GameGainScore{Name: name, Delta: delta}, nil
	default:
		return nil, fmt.Errorf("%w: unknown game action %q", ErrMalformed, f[0])
	}
}

// Encode renders req as a mux frame.
func Encode(req Request) string {
	return string(req.Category()) + Separator + EncodePayload(req)
}

// EncodePayload renders req without its category, for category-bound
// listeners.
func EncodePayload(req Request) string {
	return strings.Join(req.fields(), Separator)
}

// trimFrame strips line endings and the trailing separator clients append.
func trimFrame(s string) string {
	s = strings.TrimRight(s, "\r\n\x00 ")
	return strings.TrimSuffix(s, Separator)
}

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, Separator)
}
