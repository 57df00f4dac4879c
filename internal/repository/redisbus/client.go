package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler consumes one decoded pub/sub payload. Handler errors are logged by
// the subscribe loop and never terminate it.
type Handler func(ctx context.Context, payload map[string]any) error

type Config struct {
	URL         string
	PollTimeout time.Duration
}

// Client wraps a Redis connection used as the inbound event bus: pub/sub for
// real-time events plus durable streams with consumer-group acknowledgement.
type Client struct {
	rdb  *redis.Client
	log  *zap.Logger
	poll time.Duration
}

func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 1 * time.Second

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = time.Second
	}

	return &Client{
		rdb:  rdb,
		log:  log.With(zap.String("component", "redisbus")),
		poll: poll,
	}, nil
}

// Subscribe runs a pub/sub loop on channel until ctx is canceled. Each
// iteration polls with a bounded timeout so cancellation is observed promptly.
// Payloads must be JSON objects; anything else is logged and dropped.
func (c *Client) Subscribe(ctx context.Context, channel string, h Handler) error {
	sub := c.rdb.Subscribe(ctx, channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	log := c.log.With(zap.String("channel", channel))
	log.Info("subscribed")

	for {
		select {
		case <-ctx.Done():
			log.Info("subscription stopped")
			return nil
		default:
		}

		raw, err := sub.ReceiveTimeout(ctx, c.poll)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("subscription stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			log.Warn("receive failed", zap.Error(err))
			continue
		}

		msg, ok := raw.(*redis.Message)
		if !ok {
			continue
		}
		payload, err := decodePayload([]byte(msg.Payload))
		if err != nil {
			log.Error("drop undecodable message", zap.Error(err))
			continue
		}
		if err := h(ctx, payload); err != nil {
			log.Error("handler error", zap.Error(err))
		}
	}
}

func decodePayload(data []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

type StreamMessage struct {
	ID     string
	Values map[string]any
}

// ReadStream performs a blocking read of up to count entries after lastID.
// Transport errors are logged and reported as an empty batch.
func (c *Client) ReadStream(ctx context.Context, stream string, count int64, lastID string) []StreamMessage {
	if lastID == "" {
		lastID = "0-0"
	}

	res, err := c.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   count,
		Block:   0,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			c.log.Error("stream read failed", zap.String("stream", stream), zap.Error(err))
		}
		return nil
	}

	var out []StreamMessage
	for _, s := range res {
		for _, m := range s.Messages {
			out = append(out, StreamMessage{ID: m.ID, Values: m.Values})
		}
	}
	return out
}

// Ack marks a stream entry consumed for the group. Failures are logged and
// swallowed; at-least-once delivery is accepted.
func (c *Client) Ack(ctx context.Context, stream, group, id string) {
	if err := c.rdb.XAck(ctx, stream, group, id).Err(); err != nil {
		c.log.Error("ack failed",
			zap.String("stream", stream),
			zap.String("group", group),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

func (c *Client) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		return c.rdb.Ping(ctx).Err()
	}
}

func (c *Client) Close() error { return c.rdb.Close() }
