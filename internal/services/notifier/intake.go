package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/stockmart/notifier/internal/domain/notification"
	"github.com/stockmart/notifier/internal/obs"
)

// HandleEvent routes one decoded bus event by its "type" field. Unknown types
// are logged and ignored; the intake loop never fails on a single event.
func (e *Engine) HandleEvent(ctx context.Context, payload map[string]any) error {
	tr := otel.Tracer("notifier.engine")
	ctx, span := tr.Start(ctx, "engine.handle_event")
	defer span.End()

	mEventsConsumed.Inc()

	typ, _ := payload["type"].(string)
	span.SetAttributes(attribute.String("event.type", typ))

	switch notification.EventType(typ) {
	case notification.EventLowStock:
		e.handleLowStock(ctx, payload)
	default:
		mEventsDropped.Inc()
		e.log.Warn("unknown event type", zap.String("type", typ))
	}
	return nil
}

// handleLowStock persists a database-channel notification and, independently
// of any stored preference, mails the configured admin address. Low-stock
// alerts are operationally critical and are not gated by per-user opt-in.
func (e *Engine) handleLowStock(ctx context.Context, payload map[string]any) {
	log := obs.WithTrace(ctx, e.log)

	productID, _ := payload["product_id"].(string)
	qty, okQty := numField(payload, "current_quantity")
	threshold, okThr := numField(payload, "threshold")
	if productID == "" || !okQty || !okThr {
		mEventsDropped.Inc()
		log.Error("invalid low_stock event", zap.Any("payload", payload))
		return
	}
	name, _ := payload["product_name"].(string)
	if name == "" {
		name = productID
	}

	n := &notification.Notification{
		Type:    string(notification.EventLowStock),
		Channel: notification.ChannelDatabase,
		Subject: fmt.Sprintf("Low Stock Alert: %s", name),
		Content: fmt.Sprintf(
			"Product '%s' is running low on stock. Current quantity: %s, Threshold: %s",
			name, formatQty(qty), formatQty(threshold),
		),
		Payload: payload,
		Status:  notification.StatusPending,
	}
	if err := e.repo.Create(ctx, n); err != nil {
		log.Error("store low_stock notification", zap.String("product_id", productID), zap.Error(err))
		return
	}
	mQueued.Inc()

	if e.cfg.AdminEmail == "" {
		log.Warn("admin email not configured; skipping low stock alert mail")
		return
	}
	sent := e.mail.Send(ctx, notification.Email{
		To:      e.cfg.AdminEmail,
		Subject: n.Subject,
		HTML:    lowStockHTML(productID, name, qty, threshold),
	})
	if sent {
		mAdminMail.Inc()
		log.Info("low stock alert mailed",
			zap.String("product_id", productID),
			zap.String("to", e.cfg.AdminEmail),
		)
	} else {
		log.Error("low stock alert mail failed", zap.String("product_id", productID))
	}
}

func lowStockHTML(productID, name string, qty, threshold float64) string {
	return fmt.Sprintf(`<h2>Low Stock Alert</h2>
<p>Product <strong>%s</strong> is running low on stock.</p>
<ul>
  <li><strong>Product ID:</strong> %s</li>
  <li><strong>Current Quantity:</strong> %s</li>
  <li><strong>Threshold:</strong> %s</li>
</ul>
<p>Please replenish the inventory as soon as possible.</p>`,
		name, productID, formatQty(qty), formatQty(threshold))
}

// numField reads a numeric event field. JSON decoding yields float64, but
// producers are external: integer widths, json.Number and string-encoded
// numbers all occur in the wild and are accepted.
func numField(payload map[string]any, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f, true
		}
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func formatQty(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
