package game

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lox/bigtwo/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestKindOfAndReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		kind   Kind
		reason string
	}{
		{nil, KindNone, "internal"},
		{ErrBadCredentials, KindValidation, "credentials"},
		{fmt.Errorf("wrapped: %w", ErrNotYourTurn), KindValidation, "turn"},
		{ErrQuorum, KindConflict, "quorum"},
		{ErrAlreadySeated, KindConflict, "seated"},
		{fmt.Errorf("%w: disk", store.ErrUnavailable), KindUnavailable, "internal"},
		{fmt.Errorf("%w: seat 9", ErrInvariant), KindInvariant, "internal"},
		{errors.New("surprise"), KindUnavailable, "internal"},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.reason, Reason(tt.err))
		})
	}
}

func TestStateStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "offline", Offline.String())
	assert.Equal(t, "online", Online.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "game", InGame.String())
	assert.Equal(t, "in-play", InPlay.String())
	assert.Equal(t, "validation", KindValidation.String())
}
