package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS accounts (
	name TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	score INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// SQLite is a Store backed by a sqlite3 database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and bootstraps the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) CreateAccount(ctx context.Context, name, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (name, password_hash) VALUES (?, ?)", name, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicate
		}
		return unavailable("create account", err)
	}
	return nil
}

func (s *SQLite) Account(ctx context.Context, name string) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		"SELECT name, password_hash, score, created_at FROM accounts WHERE name = ?", name).
		Scan(&a.Name, &a.PasswordHash, &a.Score, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, unavailable("load account", err)
	}
	return a, nil
}

func (s *SQLite) SetScore(ctx context.Context, name string, score int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE accounts SET score = ? WHERE name = ?", score, name)
	if err != nil {
		return unavailable("set score", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("set score", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
