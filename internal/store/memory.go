package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. It is used by tests and by servers
// configured with driver "memory".
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	failure  error
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]Account)}
}

// SetFailure makes every subsequent call fail as unavailable with err.
// Passing nil restores normal operation.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

func (m *Memory) CreateAccount(_ context.Context, name, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return unavailable("create account", m.failure)
	}
	if _, ok := m.accounts[name]; ok {
		return ErrDuplicate
	}
	m.accounts[name] = Account{Name: name, PasswordHash: passwordHash, CreatedAt: time.Now()}
	return nil
}

func (m *Memory) Account(_ context.Context, name string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return Account{}, unavailable("load account", m.failure)
	}
	a, ok := m.accounts[name]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) SetScore(_ context.Context, name string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return unavailable("set score", m.failure)
	}
	a, ok := m.accounts[name]
	if !ok {
		return ErrNotFound
	}
	a.Score = score
	m.accounts[name] = a
	return nil
}

func (m *Memory) Close() error { return nil }
