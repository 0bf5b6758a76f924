// Package store is the Postgres persistence layer for users, travel profiles,
// dismissals and companion requests.
//
// Callers open one pool with Open at startup, hand it to New, and close it on
// shutdown. Nothing in this package keeps a connection at package scope.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Open connects to Postgres and verifies the connection. The caller owns
// the returned pool and closes it on shutdown.
func Open(ctx context.Context, url string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("reaching database: %w", err)
	}
	return db, nil
}

// schema is idempotent; it runs on every start.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            SERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_online   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS travel_profiles (
	user_id          INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	gender           TEXT NOT NULL,
	preferred_gender TEXT NOT NULL DEFAULT 'any',
	group_preference TEXT NOT NULL,
	travel_style     TEXT NOT NULL,
	interests        TEXT[] NOT NULL DEFAULT '{}',
	destinations     TEXT[] NOT NULL DEFAULT '{}',
	languages        TEXT[] NOT NULL DEFAULT '{}',
	available_from   DATE,
	available_until  DATE,
	bio              TEXT NOT NULL DEFAULT '',
	is_active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS travel_profiles_active_created_idx
	ON travel_profiles (created_at DESC) WHERE is_active;

CREATE TABLE IF NOT EXISTS dismissed_matches (
	user_id           INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	dismissed_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, dismissed_user_id)
);

CREATE TABLE IF NOT EXISTS companion_requests (
	id             SERIAL PRIMARY KEY,
	user_id        INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	target_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	status         TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'declined', 'cancelled', 'removed')),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS companion_requests_pair_idx
	ON companion_requests (LEAST(user_id, target_user_id), GREATEST(user_id, target_user_id));
`

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// WithTx runs fn in a read-committed transaction. It commits when fn
// returns nil and rolls back on error or panic.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Truncate empties every table and restarts the id sequences.
func Truncate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE TABLE companion_requests, dismissed_matches, travel_profiles, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("truncating tables: %w", err)
	}
	return nil
}
