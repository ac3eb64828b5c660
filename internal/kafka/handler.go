package kafka

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/instasupply/internal/domain/notification"
)

// Deduper remembers processed event ids.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// NotificationHandler persists NotificationRequested events.
type NotificationHandler struct {
	repo  notification.Repository
	dedup Deduper
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(repo notification.Repository, dedup Deduper) *NotificationHandler {
	return &NotificationHandler{repo: repo, dedup: dedup}
}

// Handle implements Handler. Unknown event types and malformed payloads are
// skipped so they do not block the partition.
func (h *NotificationHandler) Handle(ctx context.Context, m kafka.Message) error {
	lg := zctx.From(ctx)

	var n notification.Notification
	env, err := DecodeEnvelope(m.Value, &n)
	if err != nil {
		lg.Warn("Skip malformed event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != EventNotificationRequested {
		return nil
	}
	if n.ID == "" {
		n.ID = env.EventID
	}

	first, err := h.dedup.Claim(ctx, env.EventID)
	if err != nil {
		// Create ignores duplicate ids.
		lg.Warn("Dedup unavailable", zap.String("event_id", env.EventID), zap.Error(err))
		first = true
	}
	if !first {
		return nil
	}

	if err := h.repo.Create(ctx, &n); err != nil {
		if rerr := h.dedup.Release(ctx, env.EventID); rerr != nil {
			lg.Warn("Release event", zap.String("event_id", env.EventID), zap.Error(rerr))
		}
		return errors.Wrapf(err, "store notification %s", n.ID)
	}
	lg.Debug("Notification stored",
		zap.String("id", n.ID),
		zap.String("supplier_id", n.SupplierID),
		zap.String("trace_id", env.TraceID),
	)
	return nil
}
