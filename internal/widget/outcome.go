package widget

import (
	"errors"

	"github.com/capitalize-ai/assistant-widget/internal/chatapi"
)

// Bot texts used when the remote service gives no usable reply.
const (
	FallbackEmptyReply       = "I'm sorry, I couldn't process your request. Please try again."
	FallbackUnexpectedFormat = "I'm sorry, there was an unexpected response format."
	FallbackRequestFailed    = "I'm sorry, there was an error processing your request. Please try again later."
	FallbackConnection       = "I'm sorry, I'm having trouble connecting to my server. Please check your internet connection and try again."
)

// LeadCaptureIntent is the intent label the remote service gives to
// utterances carrying contact details.
const LeadCaptureIntent = "Lead Capture"

// leadFields are the entity names that count as contact details.
var leadFields = []string{"name", "email", "phone"}

// Outcome is how a submission ended.
type Outcome string

const (
	// OutcomeSuccess means a recognized reply was received.
	OutcomeSuccess Outcome = "success"
	// OutcomeUnexpected means a 2xx reply without the success marker or undecodable.
	OutcomeUnexpected Outcome = "unexpected"
	// OutcomeHTTPError means the endpoint answered with a non-2xx status.
	OutcomeHTTPError Outcome = "http_error"
	// OutcomeTransport means no response was obtained.
	OutcomeTransport Outcome = "transport"
)

// Result is what gets appended to the log for a finished submission.
type Result struct {
	Outcome  Outcome
	Text     string
	Intent   string
	Entities map[string]string
}

// Classify maps the client's answer onto exactly one result branch.
func Classify(resp *chatapi.Response, err error) Result {
	var statusErr *chatapi.StatusError

	switch {
	case err == nil && resp.Succeeded():
		text := resp.Response
		if text == "" {
			text = FallbackEmptyReply
		}
		return Result{
			Outcome:  OutcomeSuccess,
			Text:     text,
			Intent:   resp.Intent,
			Entities: copyEntities(resp.Entities),
		}
	case err == nil, errors.Is(err, chatapi.ErrMalformedResponse):
		return Result{Outcome: OutcomeUnexpected, Text: FallbackUnexpectedFormat}
	case errors.As(err, &statusErr):
		return Result{Outcome: OutcomeHTTPError, Text: FallbackRequestFailed}
	default:
		return transportFailure()
	}
}

func transportFailure() Result {
	return Result{Outcome: OutcomeTransport, Text: FallbackConnection}
}

// IsLeadCapture reports whether a reply carries lead contact details. A nil
// entity mapping counts as empty.
func IsLeadCapture(intent string, entities chatapi.Entities) bool {
	if intent != LeadCaptureIntent {
		return false
	}
	for _, field := range leadFields {
		if entities.Get(field) != "" {
			return true
		}
	}
	return false
}

func copyEntities(in chatapi.Entities) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
