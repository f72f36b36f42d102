package model

import (
	"time"
)

// Message is one entry of a widget conversation log. Messages are created
// once and never changed; snapshots copy them out.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	IsBot     bool      `json:"isBot"`
	Timestamp time.Time `json:"timestamp"`

	// Classification metadata returned by the remote service, bot replies only.
	Intent   string            `json:"intent,omitempty"`
	Entities map[string]string `json:"entities,omitempty"`
}

// Clone returns a copy that shares no map with m.
func (m Message) Clone() Message {
	if m.Entities != nil {
		entities := make(map[string]string, len(m.Entities))
		for k, v := range m.Entities {
			entities[k] = v
		}
		m.Entities = entities
	}
	return m
}

// SendMessageRequest is the body accepted by the widget JSON API.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse is returned once a submission has been accepted.
type SendMessageResponse struct {
	Message Message `json:"message"`
}

// ToggleResponse reports the panel visibility after a toggle. FocusAfterMs
// is set when the panel opened and the input should be focused.
type ToggleResponse struct {
	Open         bool  `json:"open"`
	FocusAfterMs int64 `json:"focusAfterMs,omitempty"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
