package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/matching"
)

// Postgres implements the profile, user and companion queries on one pool.
type Postgres struct {
	db *sql.DB
}

// New wraps an open pool. The pool stays owned by the caller.
func New(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const profileColumns = `user_id, gender, preferred_gender, group_preference, travel_style,
	interests, destinations, languages, available_from, available_until, bio,
	is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*matching.TravelProfile, error) {
	var (
		tp          matching.TravelProfile
		from, until sql.NullTime
	)
	err := row.Scan(
		&tp.UserID, &tp.Gender, &tp.PreferredGender, &tp.GroupPreference, &tp.TravelStyle,
		pq.Array(&tp.Interests), pq.Array(&tp.Destinations), pq.Array(&tp.Languages),
		&from, &until, &tp.Bio,
		&tp.IsActive, &tp.CreatedAt, &tp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if from.Valid {
		tp.AvailableFrom = &from.Time
	}
	if until.Valid {
		tp.AvailableUntil = &until.Time
	}
	if tp.Interests == nil {
		tp.Interests = []string{}
	}
	if tp.Destinations == nil {
		tp.Destinations = []string{}
	}
	if tp.Languages == nil {
		tp.Languages = []string{}
	}
	return &tp, nil
}

// FetchProfile returns the user's travel profile, active or not.
// It returns (nil, nil) when the user has none.
func (p *Postgres) FetchProfile(ctx context.Context, userID int) (*matching.TravelProfile, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM travel_profiles WHERE user_id = $1`, userID)
	tp, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile %d: %w", userID, err)
	}
	return tp, nil
}

// FetchActiveProfiles returns up to limit active profiles other than
// excludeUserID, newest first.
func (p *Postgres) FetchActiveProfiles(ctx context.Context, excludeUserID, limit int) ([]matching.TravelProfile, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM travel_profiles
		WHERE is_active AND user_id <> $1
		ORDER BY created_at DESC, user_id ASC
		LIMIT $2
	`, excludeUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch active profiles: %w", err)
	}
	defer rows.Close()

	out := make([]matching.TravelProfile, 0, limit)
	for rows.Next() {
		tp, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *tp)
	}
	return out, rows.Err()
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// UpsertProfile creates or replaces the owner's profile and reactivates it.
// CreatedAt is kept on update.
func (p *Postgres) UpsertProfile(ctx context.Context, tp *matching.TravelProfile) (*matching.TravelProfile, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO travel_profiles (
			user_id, gender, preferred_gender, group_preference, travel_style,
			interests, destinations, languages, available_from, available_until, bio,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			gender = EXCLUDED.gender,
			preferred_gender = EXCLUDED.preferred_gender,
			group_preference = EXCLUDED.group_preference,
			travel_style = EXCLUDED.travel_style,
			interests = EXCLUDED.interests,
			destinations = EXCLUDED.destinations,
			languages = EXCLUDED.languages,
			available_from = EXCLUDED.available_from,
			available_until = EXCLUDED.available_until,
			bio = EXCLUDED.bio,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING `+profileColumns,
		tp.UserID, tp.Gender, tp.PreferredGender, tp.GroupPreference, tp.TravelStyle,
		pq.Array(tp.Interests), pq.Array(tp.Destinations), pq.Array(tp.Languages),
		nullDate(tp.AvailableFrom), nullDate(tp.AvailableUntil), tp.Bio,
	)
	saved, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("upsert profile %d: %w", tp.UserID, err)
	}
	return saved, nil
}

// DeactivateProfile hides the profile from matching without deleting it.
// It returns ErrNotFound when the user has no profile.
func (p *Postgres) DeactivateProfile(ctx context.Context, userID int) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE travel_profiles SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deactivate profile %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DismissedUserIDs returns the users userID asked not to be shown again.
func (p *Postgres) DismissedUserIDs(ctx context.Context, userID int) (map[int]struct{}, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT dismissed_user_id FROM dismissed_matches WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch dismissals: %w", err)
	}
	defer rows.Close()

	dismissed := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dismissed[id] = struct{}{}
	}
	return dismissed, rows.Err()
}

// Dismiss records that userID does not want to see dismissedID. Repeats are no-ops.
func (p *Postgres) Dismiss(ctx context.Context, userID, dismissedID int) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO dismissed_matches (user_id, dismissed_user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, dismissedID)
	if err != nil {
		return fmt.Errorf("dismiss %d for %d: %w", dismissedID, userID, err)
	}
	return nil
}
