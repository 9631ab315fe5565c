// Package auth verifies player credentials against the account store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lox/bigtwo/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates the name/password pair was rejected
	// or could not be registered.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrDuplicate indicates registration of a name that already exists.
	ErrDuplicate = errors.New("auth: account exists")

	// ErrUnavailable indicates the account store is unreachable or failing.
	ErrUnavailable = store.ErrUnavailable
)

// MaxNameLength bounds account names. Names travel inside '$'-separated
// frames so they may not contain the separator.
const MaxNameLength = 32

// Authenticator hashes and verifies passwords stored in a store.Store and
// exposes the score accessors the coordinator needs.
type Authenticator struct {
	store store.Store
	cost  int
}

// New creates an Authenticator using bcrypt's default cost.
func New(s store.Store) *Authenticator {
	return &Authenticator{store: s, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (a *Authenticator) WithCost(cost int) *Authenticator {
	a.cost = cost
	return a
}

func (a *Authenticator) VerifyCredentials(ctx context.Context, name, password string) (bool, error) {
	acct, err := a.store.Account(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// CreateAccount registers a new account with a bcrypt-hashed password.
func (a *Authenticator) CreateAccount(ctx context.Context, name, password string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	err = a.store.CreateAccount(ctx, name, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return ErrDuplicate
	}
	return err
}

// Score returns the persisted score for name.
func (a *Authenticator) Score(ctx context.Context, name string) (int, error) {
	acct, err := a.store.Account(ctx, name)
	if err != nil {
		return 0, err
	}
	return acct.Score, nil
}

// SetScore overwrites the persisted score for name.
func (a *Authenticator) SetScore(ctx context.Context, name string, score int) error {
	return a.store.SetScore(ctx, name, score)
}

// ValidateName rejects names that cannot be carried on the wire.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidCredentials)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: name longer than %d", ErrInvalidCredentials, MaxNameLength)
	case strings.ContainsAny(name, "$: \t\r\n"):
		return fmt.Errorf("%w: name contains reserved characters", ErrInvalidCredentials)
	}
	return nil
}
