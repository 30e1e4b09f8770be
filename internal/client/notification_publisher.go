package client

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NotificationPublisher publishes workflow transition events to NATS for
// consumption by the notifications service.
//
// Subject convention: notifications.wf.<event_type>
// Event types: workflow_submitted, workflow_approved, workflow_reverted,
//              workflow_activated
//
// All publish operations are non-fatal: errors are logged but never
// propagated to the caller, so notification failures never interrupt a
// transition.
type NotificationPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// WorkflowEvent is the JSON schema published to NATS.
type WorkflowEvent struct {
	EventID    string  `json:"event_id"`
	EventType  string  `json:"event_type"`
	EntityType string  `json:"entity_type"`
	DocumentID string  `json:"document_id"`
	Purpose    string  `json:"purpose"`
	Status     *string `json:"status"`
	Level      int     `json:"level"`
	ActorID    string  `json:"actor_id,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// connection. A nil connection yields a publisher that silently drops events.
func NewNotificationPublisher(conn *nats.Conn, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{conn: conn, log: log}
}

// PublishTransition publishes one workflow transition event.
// Subject: notifications.wf.<eventType>
func (p *NotificationPublisher) PublishTransition(eventType string, event *WorkflowEvent) {
	if p.conn == nil {
		return
	}

	event.EventID = uuid.NewString()
	event.EventType = eventType

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.wf.%s", eventType)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("document_id", event.DocumentID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("document_id", event.DocumentID).
		Msg("notification: event published")
}
