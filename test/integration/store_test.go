//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockmart/notifier/internal/domain/notification"
	pg "github.com/stockmart/notifier/internal/repository/postgres"
)

func openDB(t *testing.T) *pg.DB {
	t.Helper()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN not set")
	}
	db, err := pg.New(context.Background(), pg.Config{URL: dsn, QueryTimeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestNotificationRepo_PendingScanOrder(t *testing.T) {
	db := openDB(t)
	repo := pg.NewNotificationRepo(db)
	ctx := context.Background()

	user := fmt.Sprintf("it-%d", time.Now().UnixNano())
	var ids []int64
	for i := 0; i < 3; i++ {
		n := &notification.Notification{
			UserID:  user,
			Type:    "low_stock",
			Channel: notification.ChannelDatabase,
			Content: fmt.Sprintf("record %d", i),
			Payload: map[string]any{"i": i},
			Status:  notification.StatusPending,
		}
		require.NoError(t, repo.Create(ctx, n))
		ids = append(ids, n.ID)
		time.Sleep(10 * time.Millisecond)
	}

	batch, err := repo.ListByStatus(ctx, notification.StatusPending, 1000)
	require.NoError(t, err)

	var mine []int64
	for _, n := range batch {
		if n.UserID == user {
			mine = append(mine, n.ID)
		}
	}
	assert.Equal(t, ids, mine, "pending scan must be oldest first")
}

func TestNotificationRepo_MarkReadIdempotent(t *testing.T) {
	db := openDB(t)
	repo := pg.NewNotificationRepo(db)
	ctx := context.Background()

	n := &notification.Notification{
		UserID:  fmt.Sprintf("it-%d", time.Now().UnixNano()),
		Type:    "low_stock",
		Channel: notification.ChannelDatabase,
		Content: "read me",
	}
	require.NoError(t, repo.Create(ctx, n))

	first, err := repo.MarkRead(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)

	second, err := repo.MarkRead(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, second.ReadAt)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt))
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))

	// an Update from a stale copy (ReadAt nil) must not reset the marker
	n.Status = notification.StatusSent
	n.ReadAt = nil
	require.NoError(t, repo.Update(ctx, n))

	got, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReadAt)
	assert.True(t, first.ReadAt.Equal(*got.ReadAt))
}

func TestPreferenceRepo_UniquePerUserChannel(t *testing.T) {
	db := openDB(t)
	repo := pg.NewPreferenceRepo(db)
	ctx := context.Background()

	user := fmt.Sprintf("it-%d", time.Now().UnixNano())
	p := &notification.Preference{
		UserID:  user,
		Channel: notification.ChannelEmail,
		Enabled: true,
		Email:   user + "@example.com",
	}
	require.NoError(t, repo.Create(ctx, p))

	dup := &notification.Preference{UserID: user, Channel: notification.ChannelEmail, Email: "other@example.com"}
	err := repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pg.ErrConflict))

	got, err := repo.GetByUserChannel(ctx, user, notification.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, p.Email, got.Email)

	_, err = repo.GetByUserChannel(ctx, user, notification.ChannelSMS)
	assert.True(t, errors.Is(err, notification.ErrNotFound))
}
