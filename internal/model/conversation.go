// Package model defines data structures for the chat widget.
package model

// WidgetState is a snapshot of one widget: the panel visibility, the
// pending-request flag and the conversation log in insertion order.
type WidgetState struct {
	SessionID string    `json:"sessionId"`
	Open      bool      `json:"open"`
	Pending   bool      `json:"pending"`
	Messages  []Message `json:"messages"`
}
