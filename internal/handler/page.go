package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-widget/internal/middleware"
	"github.com/capitalize-ai/assistant-widget/internal/model"
	"github.com/capitalize-ai/assistant-widget/internal/widget"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("index.html").
		Funcs(template.FuncMap{
			"clock": func(t time.Time) string { return t.Format("15:04") },
		}).
		ParseFS(templateFS, "templates/index.html"),
)

// pageData is what the site template renders.
type pageData struct {
	State           model.WidgetState
	RefreshSeconds  int
	MaxMessageBytes int
}

// PageHandler renders the site with the embedded widget and accepts the
// widget's plain HTML form posts.
type PageHandler struct {
	sessions Sessions
	logger   *logger.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(sessions Sessions, log *logger.Logger) *PageHandler {
	return &PageHandler{
		sessions: sessions,
		logger:   log,
	}
}

// Index handles GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctrl := h.sessions.GetOrCreate(middleware.GetSessionID(r.Context()))

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{
		State:           ctrl.Snapshot(),
		RefreshSeconds:  1,
		MaxMessageBytes: middleware.MaxMessageBytes,
	}); err != nil {
		requestLogger(h.logger, r).Error("failed to render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// Toggle handles POST /widget/toggle
func (h *PageHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.sessions.GetOrCreate(middleware.GetSessionID(r.Context())).ToggleVisibility()
	backToPage(w, r)
}

// Send handles POST /widget/messages. Empty text and submissions while a
// reply is pending are silently ignored, as the disabled form would.
func (h *PageHandler) Send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	text := r.PostFormValue("message")
	if err := middleware.ValidateMessageText(text); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctrl := h.sessions.GetOrCreate(middleware.GetSessionID(r.Context()))
	if _, err := ctrl.Submit(r.Context(), text); err != nil &&
		!errors.Is(err, widget.ErrEmptyMessage) && !errors.Is(err, widget.ErrBusy) {
		requestLogger(h.logger, r).Error("failed to submit message", zap.Error(err))
	}

	backToPage(w, r)
}

func backToPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/#chat", http.StatusSeeOther)
}
