package notification

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	// ListByStatus returns up to limit records in creation order, oldest first.
	ListByStatus(ctx context.Context, st Status, limit int) ([]*Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, n *Notification) error
	// MarkRead sets the read marker once; repeated calls are no-op successes.
	MarkRead(ctx context.Context, id int64) (*Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type PreferenceRepo interface {
	Create(ctx context.Context, p *Preference) error
	GetByUserChannel(ctx context.Context, userID string, ch Channel) (*Preference, error)
	ListByUser(ctx context.Context, userID string) ([]*Preference, error)
	Update(ctx context.Context, p *Preference) error
	Delete(ctx context.Context, id int64) error
}

// Email is one outbound message for the email channel.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
	CC      []string
	BCC     []string
}

// EmailSender reports delivery as a boolean: missing transport configuration
// and transport errors both come back as false, never as a panic or error.
type EmailSender interface {
	Send(ctx context.Context, msg Email) bool
}

type Clock interface {
	Now() time.Time
}
