package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/capitalize-ai/assistant-widget/internal/middleware"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
)

// maxBodyBytes bounds request bodies; a message is at most
// middleware.MaxMessageBytes before JSON escaping.
const maxBodyBytes = 64 << 10

// requestLogger scopes log to the request's correlation id and session.
func requestLogger(log *logger.Logger, r *http.Request) *logger.Logger {
	ctx := r.Context()
	return log.WithContext(middleware.GetCorrelationID(ctx), middleware.GetSessionID(ctx))
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
