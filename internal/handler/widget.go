// Package handler provides HTTP handlers for the widget host.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-widget/internal/middleware"
	"github.com/capitalize-ai/assistant-widget/internal/model"
	"github.com/capitalize-ai/assistant-widget/internal/widget"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
)

// Sessions resolves the widget controller of a session.
type Sessions interface {
	GetOrCreate(sessionID string) *widget.Controller
}

// WidgetHandler serves the widget JSON API.
type WidgetHandler struct {
	sessions Sessions
	logger   *logger.Logger
}

// NewWidgetHandler creates a new widget handler.
func NewWidgetHandler(sessions Sessions, log *logger.Logger) *WidgetHandler {
	return &WidgetHandler{
		sessions: sessions,
		logger:   log,
	}
}

func (h *WidgetHandler) controller(r *http.Request) *widget.Controller {
	return h.sessions.GetOrCreate(middleware.GetSessionID(r.Context()))
}

// State handles GET /api/widget
func (h *WidgetHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller(r).Snapshot())
}

// Toggle handles POST /api/widget/toggle
func (h *WidgetHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	resp := model.ToggleResponse{Open: h.controller(r).ToggleVisibility()}
	if resp.Open {
		resp.FocusAfterMs = widget.FocusDelay.Milliseconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Send handles POST /api/widget/messages
func (h *WidgetHandler) Send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageText(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.controller(r).Submit(r.Context(), req.Message)
	switch {
	case errors.Is(err, widget.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, widget.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		requestLogger(h.logger, r).Error("failed to submit message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to submit message")
		return
	}

	writeJSON(w, http.StatusAccepted, &model.SendMessageResponse{Message: sub.User})
}
