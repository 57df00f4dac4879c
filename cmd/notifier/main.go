package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/stockmart/notifier/internal/config/notifier"
	"github.com/stockmart/notifier/internal/obs"
	pg "github.com/stockmart/notifier/internal/repository/postgres"
	"github.com/stockmart/notifier/internal/repository/redisbus"
	"github.com/stockmart/notifier/internal/services/notifier"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/notifier.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}

	l.Info("starting notifier",
		zap.String("redis_channel", cfg.Redis.Channel),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.Int("batch_size", cfg.Engine.BatchSize),
		zap.Duration("interval", cfg.Engine.Interval),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() {
		if otelCloser != nil {
			_ = otelCloser.Shutdown(context.Background())
		}
	}()

	db, err := pg.New(rootCtx, cfg.DB.AsPoolConfig())
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	bus, err := redisbus.New(rootCtx, cfg.Redis.AsBusConfig(), l)
	if err != nil {
		l.Fatal("redis connect", zap.Error(err))
	}
	l.Info("redis connected", zap.String("channel", cfg.Redis.Channel))

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, l,
		func(ctx context.Context) error { return db.Pool.Ping(ctx) },
		bus.Healthcheck(),
	)

	engine := notifier.New(
		l,
		notifier.Config{
			BatchSize:  cfg.Engine.BatchSize,
			Interval:   cfg.Engine.Interval,
			Channel:    cfg.Redis.Channel,
			AdminEmail: cfg.Engine.AdminEmail,
		},
		bus,
		pg.NewNotificationRepo(db),
		pg.NewPreferenceRepo(db),
		notifier.NewMailer(cfg.SMTP, l),
		systemClock{},
	)

	engine.Start(rootCtx)

	<-rootCtx.Done()
	l.Info("shutdown signal")
	engine.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
