package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/instasupply/internal/domain/notification"
)

var _ notification.Emitter = (*Publisher)(nil)

// Publisher emits notifications as events for the notification worker.
type Publisher struct {
	p    *Producer
	name string
	now  func() time.Time
}

// NewPublisher creates a Publisher that stamps events with producer name.
func NewPublisher(p *Producer, name string) *Publisher {
	return &Publisher{p: p, name: name, now: time.Now}
}

// Emit queues the notification and returns it as it will be stored. The id
// of the notification doubles as the event id, which keeps redelivery
// idempotent end to end.
func (e *Publisher) Emit(ctx context.Context, n notification.Notice) *notification.Notification {
	rec := n.Build(uuid.New().String(), e.now().UTC())
	if err := e.publish(ctx, rec); err != nil {
		zctx.From(ctx).Warn("Notification dropped",
			zap.String("supplier_id", n.SupplierID),
			zap.String("title", n.Title),
			zap.Error(err),
		)
		return nil
	}
	return rec
}

func (e *Publisher) publish(ctx context.Context, rec *notification.Notification) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	env := Envelope{
		EventID:       rec.ID,
		EventType:     EventNotificationRequested,
		EventVersion:  eventVersion,
		OccurredAt:    rec.CreatedAt,
		Producer:      e.name,
		CorrelationID: rec.RelatedID,
		Payload:       payload,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return e.p.Publish([]byte(rec.SupplierID), b,
		kafka.Header{Key: headerEventType, Value: []byte(EventNotificationRequested)},
		kafka.Header{Key: headerEventVersion, Value: []byte("1")},
	)
}
