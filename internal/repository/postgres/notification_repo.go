package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stockmart/notifier/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notifColumns = `id, COALESCE(user_id, ''), type, channel, COALESCE(subject, ''),
       content, payload, status, COALESCE(error_message, ''),
       created_at, updated_at, sent_at, read_at`

const (
	qNotifInsert = `
INSERT INTO notifications (user_id, type, channel, subject, content, payload, status)
VALUES (NULLIF($1, ''), $2, $3, NULLIF($4, ''), $5, $6, $7)
RETURNING id, created_at, updated_at;`

	qNotifByID = `
SELECT ` + notifColumns + `
FROM notifications
WHERE id = $1;`

	qNotifByStatus = `
SELECT ` + notifColumns + `
FROM notifications
WHERE status = $1
ORDER BY created_at
LIMIT $2;`

	qNotifByUser = `
SELECT ` + notifColumns + `
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2;`

	qNotifUnread = `
SELECT COUNT(*) FROM notifications
WHERE user_id = $1 AND read_at IS NULL;`

	qNotifUpdate = `
UPDATE notifications
SET status        = $2,
    error_message = NULLIF($3, ''),
    sent_at       = $4,
    read_at       = COALESCE(read_at, $5),
    updated_at    = now()
WHERE id = $1
RETURNING updated_at;`

	qNotifMarkRead = `
UPDATE notifications
SET updated_at = CASE WHEN read_at IS NULL THEN now() ELSE updated_at END,
    read_at    = COALESCE(read_at, now())
WHERE id = $1
RETURNING ` + notifColumns + `;`

	qNotifMarkAllRead = `
UPDATE notifications
SET read_at = now(), updated_at = now()
WHERE user_id = $1 AND read_at IS NULL;`
)

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if n.Status == "" {
		n.Status = notification.StatusPending
	}
	if err := r.db.Pool.QueryRow(ctx, qNotifInsert,
		n.UserID,
		n.Type,
		n.Channel,
		n.Subject,
		n.Content,
		n.Payload,
		n.Status,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id int64) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notification.Notification
	if err := scanNotification(r.db.Pool.QueryRow(ctx, qNotifByID, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) ListByStatus(ctx context.Context, st notification.Status, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qNotifByStatus, st, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications by status: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows, limit)
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qNotifByUser, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications by user: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows, limit)
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := r.db.Pool.QueryRow(ctx, qNotifUnread, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// Update persists the mutable fields (status, error detail, timestamps).
// Identity and content are immutable after creation and are not written.
// The read marker only ever moves unset→timestamp: a row-level read_at set
// concurrently (mark-read runs outside the engine) survives an Update from
// a caller holding a stale copy.
func (r *NotificationRepo) Update(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qNotifUpdate,
		n.ID,
		n.Status,
		n.ErrorMessage,
		n.SentAt,
		n.ReadAt,
	).Scan(&n.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id int64) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notification.Notification
	if err := scanNotification(r.db.Pool.QueryRow(ctx, qNotifMarkRead, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qNotifMarkAllRead, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func scanNotification(row pgx.Row, n *notification.Notification) error {
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Channel,
		&n.Subject,
		&n.Content,
		&n.Payload,
		&n.Status,
		&n.ErrorMessage,
		&n.CreatedAt,
		&n.UpdatedAt,
		&n.SentAt,
		&n.ReadAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan notification: %w", err)
	}
	return nil
}

func collectNotifications(rows pgx.Rows, limit int) ([]*notification.Notification, error) {
	out := make([]*notification.Notification, 0, limit)
	for rows.Next() {
		var n notification.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		nc := n
		out = append(out, &nc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
