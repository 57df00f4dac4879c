package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stockmart/notifier/internal/domain/notification"
	"github.com/stockmart/notifier/internal/repository/redisbus"
)

// EventBus is the inbound transport the engine listens on.
type EventBus interface {
	Subscribe(ctx context.Context, channel string, h redisbus.Handler) error
	Close() error
}

type Config struct {
	BatchSize  int
	Interval   time.Duration
	Channel    string
	AdminEmail string
}

// Engine is the notification processing core. It runs two loops: real-time
// event intake off the bus, and a periodic sweep that drains pending records
// and dispatches them to channel senders.
//
// The sweep is single-consumer: pending records are not claimed atomically,
// so running multiple engine instances against one database can double-send.
type Engine struct {
	log   *zap.Logger
	cfg   Config
	bus   EventBus
	repo  notification.Repo
	prefs notification.PreferenceRepo
	mail  notification.EmailSender
	clock notification.Clock

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(
	log *zap.Logger,
	cfg Config,
	bus EventBus,
	repo notification.Repo,
	prefs notification.PreferenceRepo,
	mail notification.EmailSender,
	clock notification.Clock,
) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Engine{
		log:   log.With(zap.String("component", "notifier.engine")),
		cfg:   cfg,
		bus:   bus,
		repo:  repo,
		prefs: prefs,
		mail:  mail,
		clock: clock,
	}
}

// Start launches the intake and sweep loops and returns immediately.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.listen(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.sweep(ctx)
	}()

	e.log.Info("notification engine started",
		zap.String("channel", e.cfg.Channel),
		zap.Int("batch_size", e.cfg.BatchSize),
		zap.Duration("interval", e.cfg.Interval),
	)
}

// Stop cancels both loops, waits for in-flight work to finish and releases
// the bus connection. In-flight sends complete; nothing is aborted mid-batch.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	_ = e.bus.Close()
	e.log.Info("notification engine stopped")
}

func (e *Engine) listen(ctx context.Context) {
	err := e.bus.Subscribe(ctx, e.cfg.Channel, e.HandleEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		e.log.Error("event subscription terminated", zap.Error(err))
	}
}
