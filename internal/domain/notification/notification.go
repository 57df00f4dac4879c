package notification

import "time"

// Status is the delivery state of a notification. Transitions are monotonic:
// pending → processing → sent|failed. Terminal records are never touched again
// by the engine; re-delivery means an operator resets status to pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Channel is a delivery medium. Unknown values survive round-trips through
// the store; the engine treats them as ordinary delivery failures.
type Channel string

const (
	ChannelDatabase Channel = "database"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWebhook  Channel = "webhook"
)

// EventType classifies inbound bus events.
type EventType string

const EventLowStock EventType = "low_stock"

type Notification struct {
	ID      int64   `json:"id"`
	UserID  string  `json:"user_id,omitempty"` // empty for system-level notifications
	Type    string  `json:"type"`
	Channel Channel `json:"channel"`

	Subject string         `json:"subject,omitempty"`
	Content string         `json:"content"`
	Payload map[string]any `json:"payload,omitempty"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// Preference is a per-user, per-channel delivery configuration. At most one
// row exists per (user, channel); the store enforces it with a unique index.
type Preference struct {
	ID      int64   `json:"id"`
	UserID  string  `json:"user_id"`
	Channel Channel `json:"channel"`
	Enabled bool    `json:"enabled"`

	Email      string         `json:"email,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	WebhookURL string         `json:"webhook_url,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
