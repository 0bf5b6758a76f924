package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrEmailExists = errors.New("email already registered")
)

// OnlineWindow is how recently a user must have been seen to count as online.
const OnlineWindow = "90 seconds"

// UserSummary is the public face of a user.
type UserSummary struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsOnline bool   `json:"isOnline"`
}

// CreateUser inserts a user and marks them online.
func (p *Postgres) CreateUser(ctx context.Context, email, passwordHash, name string) (int, error) {
	var id int
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name, last_online)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`, email, passwordHash, name).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// Credentials returns the id and password hash registered for email.
func (p *Postgres) Credentials(ctx context.Context, email string) (int, string, error) {
	var (
		id   int
		hash string
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email = $1`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("credentials: %w", err)
	}
	return id, hash, nil
}

// Touch refreshes the user's last_online timestamp.
func (p *Postgres) Touch(ctx context.Context, userID int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE users SET last_online = NOW() WHERE id = $1`, userID)
	return err
}

// UserSummaries loads summaries for ids. Unknown ids are absent from the map.
func (p *Postgres) UserSummaries(ctx context.Context, ids []int) (map[int]UserSummary, error) {
	out := make(map[int]UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id,
		       COALESCE(NULLIF(name, ''), 'Traveller ' || id::text),
		       COALESCE(last_online > NOW() - INTERVAL '`+OnlineWindow+`', FALSE)
		FROM users
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("user summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.IsOnline); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}
