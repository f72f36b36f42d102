package handler

import (
	"net/http"
	"time"

	"github.com/capitalize-ai/assistant-widget/internal/middleware"
	"github.com/capitalize-ai/assistant-widget/internal/model"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
	"github.com/capitalize-ai/assistant-widget/pkg/metrics"
)

// StreamHandler pushes widget state over SSE.
type StreamHandler struct {
	sessions  Sessions
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(sessions Sessions, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		sessions:  sessions,
		logger:    log,
		heartbeat: 30 * time.Second,
	}
}

// Stream handles GET /api/widget/stream. It sends a "state" event on
// connect and after every change, and a "heartbeat" event periodically.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)
	ctrl := h.sessions.GetOrCreate(sessionID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	changes, stop := ctrl.Watch()
	defer stop()

	if err := sendSSEEvent(w, flusher, "state", ctrl.Snapshot()); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			requestLogger(h.logger, r).Debug("SSE client disconnected")
			return

		case <-changes:
			if err := sendSSEEvent(w, flusher, "state", ctrl.Snapshot()); err != nil {
				return
			}

		case <-heartbeat.C:
			// an open stream counts as activity on the session
			h.sessions.GetOrCreate(sessionID)
			if err := sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			}); err != nil {
				return
			}
		}
	}
}
