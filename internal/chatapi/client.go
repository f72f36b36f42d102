// Package chatapi is the client for the remote text-understanding endpoint
// the widget forwards user text to.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// StatusSuccess is the status marker of a recognized reply.
const StatusSuccess = "success"

// Request is the body posted to the endpoint. It carries exactly the text.
type Request struct {
	Message string `json:"message"`
}

// Response is the decoded reply. Only Status and Response are required;
// Intent and Entities may be absent.
type Response struct {
	Status   string   `json:"status"`
	Response string   `json:"response"`
	Intent   string   `json:"intent,omitempty"`
	Entities Entities `json:"entities,omitempty"`
}

// Succeeded reports whether the reply carries the success marker.
func (r *Response) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// Entities maps extracted field names to values. Decoding is lenient: null
// values are dropped, scalars are kept in their textual form, and anything
// that is not an object decodes as an empty mapping.
type Entities map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entities) UnmarshalJSON(data []byte) error {
	out := Entities{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*e = out
		return nil
	}
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		if len(v) == 0 || bytes.Equal(v, []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		if v[0] == '{' || v[0] == '[' {
			continue
		}
		out[k] = string(v)
	}
	*e = out
	return nil
}

// Get returns the value for key, treating a nil mapping as empty.
func (e Entities) Get(key string) string {
	if e == nil {
		return ""
	}
	return e[key]
}

// Client sends one user utterance and returns the decoded reply.
type Client interface {
	// Send posts text and returns the reply. A non-2xx answer is a
	// *StatusError, an undecodable body wraps ErrMalformedResponse, and any
	// other error means no response was obtained.
	Send(ctx context.Context, text string) (*Response, error)
}

// ErrMalformedResponse is wrapped when a 2xx body cannot be decoded.
var ErrMalformedResponse = errors.New("chatapi: malformed response body")

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chatapi: unexpected HTTP status %d %s", e.StatusCode, e.Status)
}

// TransportError wraps failures where no response was obtained.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chatapi: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
