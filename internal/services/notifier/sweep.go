package notifier

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/stockmart/notifier/internal/domain/notification"
	"github.com/stockmart/notifier/internal/obs"
)

const failedMessage = "Failed to send notification"

// sweep drains pending notifications in batches until ctx is canceled. The
// loop waits the full interval after every batch, empty or full; backlog does
// not accelerate it. Tune engine.interval for higher throughput.
func (e *Engine) sweep(ctx context.Context) {
	e.log.Info("sweep loop started")

	for {
		select {
		case <-ctx.Done():
			e.log.Info("sweep loop stopped")
			return
		default:
		}

		e.sweepOnce(ctx)

		timer := time.NewTimer(e.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.log.Info("sweep loop stopped")
			return
		case <-timer.C:
		}
	}
}

// sweepOnce processes one batch of pending records, oldest first. A failing
// batch query is logged and skipped; the loop itself never dies.
func (e *Engine) sweepOnce(ctx context.Context) {
	start := time.Now()
	tr := otel.Tracer("notifier.engine")
	ctx, span := tr.Start(ctx, "engine.sweep")
	defer span.End()

	batch, err := e.repo.ListByStatus(ctx, notification.StatusPending, e.cfg.BatchSize)
	if err != nil {
		span.RecordError(err)
		obs.WithTrace(ctx, e.log).Error("query pending notifications", zap.Error(err))
		return
	}
	span.SetAttributes(attribute.Int("batch.size", len(batch)))
	mSweepBatch.Set(float64(len(batch)))

	for _, n := range batch {
		e.sendOne(ctx, n)
	}
	mSweepDur.Observe(time.Since(start).Seconds())
}

// sendOne moves one record through processing to sent or failed. It never
// panics and never returns an error; every failure lands on the record.
func (e *Engine) sendOne(ctx context.Context, n *notification.Notification) {
	log := obs.WithTrace(ctx, e.log)

	// Persist the processing state first so a concurrent observer never sees
	// the record silently stuck at pending mid-send.
	n.Status = notification.StatusProcessing
	if err := e.repo.Update(ctx, n); err != nil {
		e.fail(ctx, n, err.Error())
		return
	}

	ok, err := e.deliver(ctx, n)
	switch {
	case err != nil:
		e.fail(ctx, n, err.Error())
	case ok:
		now := e.clock.Now()
		n.Status = notification.StatusSent
		n.SentAt = &now
		n.ErrorMessage = ""
		if uerr := e.repo.Update(ctx, n); uerr != nil {
			log.Error("persist sent status", zap.Int64("id", n.ID), zap.Error(uerr))
			return
		}
		mSent.WithLabelValues(string(n.Channel)).Inc()
		log.Info("notification sent",
			zap.Int64("id", n.ID),
			zap.String("channel", string(n.Channel)),
		)
	default:
		e.fail(ctx, n, failedMessage)
	}
}

func (e *Engine) fail(ctx context.Context, n *notification.Notification, reason string) {
	n.Status = notification.StatusFailed
	n.ErrorMessage = reason
	if err := e.repo.Update(ctx, n); err != nil {
		obs.WithTrace(ctx, e.log).Error("persist failed status", zap.Int64("id", n.ID), zap.Error(err))
	}
	mFailed.Inc()
	obs.WithTrace(ctx, e.log).Warn("notification failed",
		zap.Int64("id", n.ID),
		zap.String("channel", string(n.Channel)),
		zap.String("reason", reason),
	)
}

// deliver dispatches by channel. The bool result is "delivered"; an error is
// reserved for unexpected failures (store errors) that should surface as the
// record's error detail. Unknown channels are a plain non-delivery.
func (e *Engine) deliver(ctx context.Context, n *notification.Notification) (bool, error) {
	switch n.Channel {
	case notification.ChannelEmail:
		if n.UserID == "" {
			return false, nil
		}
		pref, err := e.prefs.GetByUserChannel(ctx, n.UserID, notification.ChannelEmail)
		if err != nil {
			if errors.Is(err, notification.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if pref.Email == "" {
			return false, nil
		}
		return e.mail.Send(ctx, notification.Email{
			To:      pref.Email,
			Subject: n.Subject,
			HTML:    n.Content,
		}), nil

	case notification.ChannelDatabase:
		// The persisted record is the delivery.
		return true, nil

	default:
		return false, nil
	}
}
