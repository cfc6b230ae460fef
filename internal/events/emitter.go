package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Publisher is the transport events are emitted over.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Envelope wraps every emitted event with versioning and provenance.
type Envelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	RequestID     string `json:"request_id,omitempty"`
	Username      string `json:"username,omitempty"`
	Payload       any    `json:"payload,omitempty"`
}

// Emitter publishes domain lifecycle events (user.registered, user.login,
// message.sent, message.read). A nil emitter or publisher is a no-op.
type Emitter struct {
	publisher Publisher
	service   string
	logger    *logrus.Logger
}

func NewEmitter(publisher Publisher, service string, logger *logrus.Logger) *Emitter {
	return &Emitter{publisher: publisher, service: service, logger: logger}
}

// Emit publishes an enveloped event using the event type as routing key.
// Publish failures are logged, never propagated to the request path.
func (e *Emitter) Emit(ctx context.Context, eventType, requestID, username string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		RequestID:     requestID,
		Username:      username,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, eventType, envelope); err != nil && e.logger != nil {
		e.logger.Warnf("event publish failed type=%s: %v", eventType, err)
	}
}
