package model

import (
	"time"
)

// EventType represents the type of widget event.
type EventType string

const (
	// EventTypeExchange is emitted when a submission finishes, whatever the outcome.
	EventTypeExchange EventType = "exchange"
	// EventTypeLeadCaptured is emitted when a reply carries lead contact fields.
	EventTypeLeadCaptured EventType = "lead.captured"
)

// WidgetEvent is published to the event bus for downstream consumers.
type WidgetEvent struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Type      EventType         `json:"type"`
	Outcome   string            `json:"outcome,omitempty"`
	Intent    string            `json:"intent,omitempty"`
	Entities  map[string]string `json:"entities,omitempty"`
	LatencyMs int64             `json:"latency_ms,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
