package game

import (
	"errors"

	"github.com/lox/bigtwo/internal/store"
)

var (
	ErrBadCredentials   = errors.New("bad credentials")
	ErrDuplicateAccount = errors.New("account already exists")
	ErrNotConnected     = errors.New("player not connected")
	ErrNotLobby         = errors.New("player not in lobby")
	ErrNotReady         = errors.New("player not ready")
	ErrAlreadySeated    = errors.New("player already seated")
	ErrNotSeated        = errors.New("player not seated")
	ErrUnknownRoom      = errors.New("unknown room")
	ErrQuorum           = errors.New("room does not have four players")
	ErrNotDealt         = errors.New("round not dealt")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrBadCount         = errors.New("invalid card count")
	ErrCardsNotHeld     = errors.New("cards not held")
	ErrMustLead         = errors.New("opening seat must play")
	ErrRoundOver        = errors.New("round is over")

	// ErrInvariant reports corrupted room state. The room has already been
	// closed by the time a caller sees it.
	ErrInvariant = errors.New("room state invariant violated")
)

// Kind classifies coordinator errors for the request boundary.
type Kind int

const (
	KindNone Kind = iota
	// KindValidation is a rejected request: bad credentials, acting out of
	// turn, preconditions unmet.
	KindValidation
	// KindConflict is a lost race; the caller should poll again.
	KindConflict
	// KindUnavailable is a persistence failure, propagated unmasked.
	KindUnavailable
	// KindInvariant is a defect; the affected room was force-closed.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Unrecognised errors are treated as unavailable so
// they are never reported to a player as their own fault.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, store.ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrInvariant):
		return KindInvariant
	case errors.Is(err, ErrQuorum), errors.Is(err, ErrAlreadySeated):
		return KindConflict
	case errors.Is(err, ErrBadCredentials), errors.Is(err, ErrDuplicateAccount),
		errors.Is(err, ErrNotConnected), errors.Is(err, ErrNotLobby),
		errors.Is(err, ErrNotReady), errors.Is(err, ErrNotSeated),
		errors.Is(err, ErrUnknownRoom), errors.Is(err, ErrNotDealt),
		errors.Is(err, ErrNotYourTurn), errors.Is(err, ErrBadCount),
		errors.Is(err, ErrCardsNotHeld), errors.Is(err, ErrMustLead),
		errors.Is(err, ErrRoundOver):
		return KindValidation
	default:
		return KindUnavailable
	}
}

// Reason returns a short machine-readable reason code for a validation or
// conflict error.
func Reason(err error) string {
	reasons := []struct {
		err    error
		reason string
	}{
		{ErrBadCredentials, "credentials"},
		{ErrDuplicateAccount, "duplicate"},
		{ErrNotConnected, "not-connected"},
		{ErrNotLobby, "not-in-lobby"},
		{ErrNotReady, "not-ready"},
		{ErrAlreadySeated, "seated"},
		{ErrNotSeated, "not-seated"},
		{ErrUnknownRoom, "unknown-room"},
		{ErrQuorum, "quorum"},
		{ErrNotDealt, "not-dealt"},
		{ErrNotYourTurn, "turn"},
		{ErrBadCount, "count"},
		{ErrCardsNotHeld, "cards"},
		{ErrMustLead, "must-lead"},
		{ErrRoundOver, "round-over"},
		{ErrInvariant, "internal"},
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal"
}
