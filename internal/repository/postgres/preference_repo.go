package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stockmart/notifier/internal/domain/notification"
)

var _ notification.PreferenceRepo = (*PreferenceRepo)(nil)

type PreferenceRepo struct{ db *DB }

func NewPreferenceRepo(db *DB) *PreferenceRepo { return &PreferenceRepo{db: db} }

const prefColumns = `id, user_id, channel, enabled, COALESCE(email, ''), COALESCE(phone, ''),
       COALESCE(webhook_url, ''), settings, created_at, updated_at`

const (
	qPrefInsert = `
INSERT INTO notification_preferences (user_id, channel, enabled, email, phone, webhook_url, settings)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
RETURNING id, created_at, updated_at;`

	qPrefByUserChannel = `
SELECT ` + prefColumns + `
FROM notification_preferences
WHERE user_id = $1 AND channel = $2;`

	qPrefByUser = `
SELECT ` + prefColumns + `
FROM notification_preferences
WHERE user_id = $1
ORDER BY channel;`

	qPrefUpdate = `
UPDATE notification_preferences
SET enabled     = $2,
    email       = NULLIF($3, ''),
    phone       = NULLIF($4, ''),
    webhook_url = NULLIF($5, ''),
    settings    = $6,
    updated_at  = now()
WHERE id = $1
RETURNING updated_at;`

	qPrefDelete = `DELETE FROM notification_preferences WHERE id = $1;`
)

func (r *PreferenceRepo) Create(ctx context.Context, p *notification.Preference) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qPrefInsert,
		p.UserID,
		p.Channel,
		p.Enabled,
		p.Email,
		p.Phone,
		p.WebhookURL,
		p.Settings,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert preference: %w", err)
	}
	return nil
}

func (r *PreferenceRepo) GetByUserChannel(ctx context.Context, userID string, ch notification.Channel) (*notification.Preference, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var p notification.Preference
	if err := scanPreference(r.db.Pool.QueryRow(ctx, qPrefByUserChannel, userID, ch), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PreferenceRepo) ListByUser(ctx context.Context, userID string) ([]*notification.Preference, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qPrefByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var out []*notification.Preference
	for rows.Next() {
		var p notification.Preference
		if err := scanPreference(rows, &p); err != nil {
			return nil, err
		}
		pc := p
		out = append(out, &pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *PreferenceRepo) Update(ctx context.Context, p *notification.Preference) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qPrefUpdate,
		p.ID,
		p.Enabled,
		p.Email,
		p.Phone,
		p.WebhookURL,
		p.Settings,
	).Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update preference: %w", err)
	}
	return nil
}

func (r *PreferenceRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qPrefDelete, id)
	if err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPreference(row pgx.Row, p *notification.Preference) error {
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Channel,
		&p.Enabled,
		&p.Email,
		&p.Phone,
		&p.WebhookURL,
		&p.Settings,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan preference: %w", err)
	}
	return nil
}
