// Package store persists the entities that outlive a round: accounts and scores.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("store: account not found")

	// ErrDuplicate indicates an account with the same name already exists.
	ErrDuplicate = errors.New("store: duplicate account")

	// ErrUnavailable indicates the backing engine failed or is unreachable.
	// Callers receive it wrapped with the underlying cause.
	ErrUnavailable = errors.New("store: unavailable")
)

// Account is the persisted record for a player.
type Account struct {
	Name         string
	PasswordHash string
	Score        int
	CreatedAt    time.Time
}

// Store is the persistence collaborator used by the coordinator.
type Store interface {
	// CreateAccount inserts a new account. Returns ErrDuplicate if the
	// name is taken.
	CreateAccount(ctx context.Context, name, passwordHash string) error
	// Account loads an account by name. Returns ErrNotFound if missing.
	Account(ctx context.Context, name string) (Account, error)
	// SetScore overwrites the account's score. Returns ErrNotFound if missing.
	SetScore(ctx context.Context, name string, score int) error
	Close() error
}

// Open returns a Store for the named driver ("sqlite" or "memory").
func Open(driver, path string) (Store, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return NewSQLite(path)
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
