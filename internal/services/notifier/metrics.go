package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mEventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_events_consumed_total", Help: "Bus events received",
	})
	mEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_events_dropped_total", Help: "Events dropped (unknown type or invalid fields)",
	})
	mQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_notifications_queued_total", Help: "Notifications persisted in pending state",
	})
	mSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_notifications_sent_total", Help: "Notifications delivered",
	}, []string{"channel"})
	mFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_notifications_failed_total", Help: "Notifications marked failed",
	})
	mAdminMail = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_admin_alerts_sent_total", Help: "Low-stock alert mails to the admin address",
	})
	mSweepBatch = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notifier_sweep_last_batch_size", Help: "Size of the last pending batch",
	})
	mSweepDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "notifier_sweep_duration_seconds", Help: "Sweep iteration duration",
		Buckets: prometheus.DefBuckets,
	})
)
