package middleware

import (
	"errors"
	"unicode/utf8"
)

// MaxMessageBytes bounds a single user message.
const MaxMessageBytes = 4000

// ValidateMessageText validates user text before it reaches the widget.
// Emptiness is left to the widget, which treats it as a no-op.
func ValidateMessageText(text string) error {
	if len(text) > MaxMessageBytes {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}
