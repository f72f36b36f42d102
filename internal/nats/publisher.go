package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/capitalize-ai/assistant-widget/internal/model"
)

// SubjectPrefix is the prefix for all widget subjects.
const SubjectPrefix = "widget"

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends widget events as JSON on core NATS subjects.
type Publisher struct {
	conn Conn
}

// NewPublisher creates a publisher on conn.
func NewPublisher(conn Conn) *Publisher {
	return &Publisher{conn: conn}
}

// EventSubject returns the subject for an event:
// widget.<session>.exchange.<outcome> or widget.<session>.lead.captured.
func EventSubject(event *model.WidgetEvent) string {
	session := event.SessionID
	if session == "" {
		session = "anonymous"
	}
	if event.Type == model.EventTypeExchange && event.Outcome != "" {
		return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, session, event.Type, event.Outcome)
	}
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, session, event.Type)
}

// SessionFilter returns the wildcard subject matching every event of a session.
func SessionFilter(sessionID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, sessionID)
}

// Publish implements widget.EventPublisher. Core NATS publishes are
// fire-and-forget; ctx is only checked before sending.
func (p *Publisher) Publish(ctx context.Context, event *model.WidgetEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(EventSubject(event), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
