package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CompanionRow is one companion request between two users.
type CompanionRow struct {
	ID           int
	UserID       int // requester
	TargetUserID int // addressee
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// loadPairForUpdate returns the latest request between a and b in either
// direction and locks it until tx ends. It returns (nil, nil) if the two
// have never interacted.
func loadPairForUpdate(ctx context.Context, tx *sql.Tx, a, b int) (*CompanionRow, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, target_user_id, status, created_at, updated_at
		FROM companion_requests
		WHERE (user_id = $1 AND target_user_id = $2)
		   OR (user_id = $2 AND target_user_id = $1)
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`, a, b)

	var c CompanionRow
	err := row.Scan(&c.ID, &c.UserID, &c.TargetUserID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load companion pair: %w", err)
	}
	return &c, nil
}

// lockPair serialises transactions on the unordered pair {a, b} until tx
// ends. Row locks alone miss pairs that have no row yet.
func lockPair(ctx context.Context, tx *sql.Tx, a, b int) error {
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(LEAST($1::int, $2::int), GREATEST($1::int, $2::int))`, a, b); err != nil {
		return fmt.Errorf("lock companion pair: %w", err)
	}
	return nil
}

// insertRequest creates a pending request from userID to targetID.
func insertRequest(ctx context.Context, tx *sql.Tx, userID, targetID int) (int, error) {
	var id int
	err := tx.QueryRowContext(ctx, `
		INSERT INTO companion_requests (user_id, target_user_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id
	`, userID, targetID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert companion request: %w", err)
	}
	return id, nil
}

// setStatus moves request id to status.
func setStatus(ctx context.Context, tx *sql.Tx, id int, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE companion_requests SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set companion status: %w", err)
	}
	return nil
}

// PairChange is what UpdatePair writes after inspecting the locked row.
// The zero value writes nothing.
type PairChange struct {
	Insert bool   // new pending request from a to b
	Status string // new status for the locked row
}

// UpdatePair locks the pair and its latest request, asks decide what to
// do with it and applies the answer in the same transaction. It returns the
// id of the row that now describes the pair, or 0 when there is none.
func (p *Postgres) UpdatePair(ctx context.Context, a, b int, decide func(row *CompanionRow) (PairChange, error)) (int, error) {
	var id int
	err := WithTx(ctx, p.db, func(tx *sql.Tx) error {
		if err := lockPair(ctx, tx, a, b); err != nil {
			return err
		}
		row, err := loadPairForUpdate(ctx, tx, a, b)
		if err != nil {
			return err
		}
		change, err := decide(row)
		if err != nil {
			return err
		}
		switch {
		case change.Insert:
			id, err = insertRequest(ctx, tx, a, b)
			return err
		case row == nil:
			return nil
		case change.Status != "":
			id = row.ID
			return setStatus(ctx, tx, row.ID, change.Status)
		default:
			id = row.ID
			return nil
		}
	})
	return id, err
}

// Companions lists the users userID is currently travelling with.
func (p *Postgres) Companions(ctx context.Context, userID int) ([]int, error) {
	return p.ids(ctx, `
		SELECT CASE WHEN user_id = $1 THEN target_user_id ELSE user_id END
		FROM companion_requests
		WHERE (user_id = $1 OR target_user_id = $1) AND status = 'accepted'
		ORDER BY updated_at DESC, id DESC
	`, userID)
}

// IncomingRequests lists users with a pending request addressed to userID.
func (p *Postgres) IncomingRequests(ctx context.Context, userID int) ([]int, error) {
	return p.ids(ctx, `
		SELECT user_id
		FROM companion_requests
		WHERE target_user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC, id DESC
	`, userID)
}

func (p *Postgres) ids(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
