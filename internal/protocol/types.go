// Package protocol defines the '$'-separated request/reply wire format.
//
// A frame is one line. On a mux listener the first field names the
// category; on a category-bound listener the category is implied and the
// frame carries only the payload.
//
//	login$alice$secret
//	lobby$online$alice
//	game$play$alice$2$4$5
package protocol

// Separator delimits fields in requests and replies.
const Separator = "$"

// MaxFrameSize bounds a single request frame. A frame is one line and its
// trailing newline is optional.
const MaxFrameSize = 1024

// Category selects which family of operations a request belongs to.
type Category string

const (
	CategoryLogin    Category = "login"
	CategoryRegister Category = "register"
	CategoryLobby    Category = "lobby"
	CategoryGame     Category = "game"
)

// Categories lists every category in listener order.
var Categories = []Category{CategoryLogin, CategoryRegister, CategoryLobby, CategoryGame}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryLogin, CategoryRegister, CategoryLobby, CategoryGame:
		return true
	}
	return false
}

// Action names a lobby or game operation.
type Action string

const (
	// Lobby actions
	ActionOnline  Action = "online"
	ActionOffline Action = "offline"
	ActionReady   Action = "ready"
	ActionNoReady Action = "noready"
	ActionBack    Action = "back"

	// Game actions
	ActionScore     Action = "score"
	ActionOther     Action = "other"
	ActionFirst     Action = "first"
	ActionCard      Action = "card"
	ActionPlay      Action = "play"
	ActionOtherPlay Action = "otherplay"
	ActionGainScore Action = "gainscore"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
