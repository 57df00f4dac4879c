package postgres

import (
	"errors"

	"github.com/stockmart/notifier/internal/domain/notification"
)

var (
	// ErrNotFound aliases the domain sentinel so callers can match either.
	ErrNotFound = notification.ErrNotFound
	ErrConflict = errors.New("conflict")
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"
