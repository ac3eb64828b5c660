// Package kafka carries notification events between the API and the
// notification worker.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
)

const (
	EventNotificationRequested = "NotificationRequested"

	eventVersion = 1

	headerEventType    = "x-event-type"
	headerEventVersion = "x-event-version"
)

// Envelope wraps every event written to the topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// DecodeEnvelope parses b and the payload into out.
func DecodeEnvelope(b []byte, out any) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	if out != nil {
		if err := json.Unmarshal(env.Payload, out); err != nil {
			return &env, errors.Wrapf(err, "decode %s payload", env.EventType)
		}
	}
	return &env, nil
}
