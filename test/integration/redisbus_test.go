//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stockmart/notifier/internal/repository/redisbus"
)

func openBus(t *testing.T) (*redisbus.Client, *redis.Client) {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	bus, err := redisbus.New(context.Background(), redisbus.Config{URL: url}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	raw := redis.NewClient(opts)
	t.Cleanup(func() { _ = raw.Close() })
	return bus, raw
}

func TestBusReadStream_OrderedBatch(t *testing.T) {
	bus, raw := openBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream := fmt.Sprintf("it:stream:%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = raw.Del(context.Background(), stream).Err() })

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := raw.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: map[string]any{"seq": i},
		}).Result()
		require.NoError(t, err)
		ids = append(ids, id)
	}

	batch := bus.ReadStream(ctx, stream, 10, "")
	require.Len(t, batch, 3)
	for i, m := range batch {
		assert.Equal(t, ids[i], m.ID)
		assert.Equal(t, fmt.Sprint(i), m.Values["seq"])
	}

	// resume after the first entry
	tail := bus.ReadStream(ctx, stream, 10, ids[0])
	require.Len(t, tail, 2)
	assert.Equal(t, ids[1], tail[0].ID)
}

func TestBusReadStream_WrongTypeKeyYieldsEmptyBatch(t *testing.T) {
	bus, raw := openBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("it:notastream:%d", time.Now().UnixNano())
	require.NoError(t, raw.Set(ctx, key, "plain string", time.Minute).Err())
	t.Cleanup(func() { _ = raw.Del(context.Background(), key).Err() })

	var batch []redisbus.StreamMessage
	assert.NotPanics(t, func() {
		batch = bus.ReadStream(ctx, key, 10, "")
	})
	assert.Empty(t, batch)
}

func TestBusAck_MissingGroupIsSwallowed(t *testing.T) {
	bus, _ := openBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream := fmt.Sprintf("it:ackless:%d", time.Now().UnixNano())
	assert.NotPanics(t, func() {
		bus.Ack(ctx, stream, "no-such-group", "0-1")
	})
}
