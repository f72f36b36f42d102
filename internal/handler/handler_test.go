package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/capitalize-ai/assistant-widget/internal/chatapi"
	"github.com/capitalize-ai/assistant-widget/internal/middleware"
	"github.com/capitalize-ai/assistant-widget/internal/model"
	"github.com/capitalize-ai/assistant-widget/internal/service"
	"github.com/capitalize-ai/assistant-widget/internal/widget"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
)

type clientFunc func(ctx context.Context, text string) (*chatapi.Response, error)

func (f clientFunc) Send(ctx context.Context, text string) (*chatapi.Response, error) {
	return f(ctx, text)
}

func replyWith(text string) clientFunc {
	return func(ctx context.Context, _ string) (*chatapi.Response, error) {
		return &chatapi.Response{Status: chatapi.StatusSuccess, Response: text}, nil
	}
}

type testEnv struct {
	router   http.Handler
	sessions *service.SessionService
}

func newTestEnv(t *testing.T, client chatapi.Client) *testEnv {
	t.Helper()
	log := logger.NewNop()

	sessions := service.NewSessionService(func(sessionID string) *widget.Controller {
		return widget.New(client, widget.Options{
			SessionID: sessionID,
			Greeting:  "Hello!",
			Logger:    log,
		})
	}, service.SessionOptions{}, log)

	return &testEnv{
		router: NewRouter(RouterConfig{
			Sessions:      sessions,
			SessionIssuer: middleware.NewSessionIssuer("test-secret", time.Hour),
			Logger:        log,
		}),
		sessions: sessions,
	}
}

// do serves one request, reusing token when set, and returns the recorder
// and the session token in effect.
func (e *testEnv) do(t *testing.T, method, target, body, contentType, token string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set(middleware.SessionHeader, token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if issued := rec.Header().Get(middleware.SessionHeader); issued != "" {
		token = issued
	}
	return rec, token
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) model.WidgetState {
	t.Helper()
	var state model.WidgetState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	return state
}

func waitIdle(t *testing.T, ctrl *widget.Controller) {
	t.Helper()
	require.Eventually(t, func() bool { return !ctrl.Pending() }, 2*time.Second, 5*time.Millisecond)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, replyWith("ok"))

	rec, _ := env.do(t, http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(middleware.SessionHeader))

	rec, _ = env.do(t, http.MethodGet, "/ready", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubChecker bool

func (s stubChecker) IsConnected() bool { return bool(s) }

func TestReadyReportsDisconnectedEvents(t *testing.T) {
	h := NewHealthHandler(stubChecker(false))
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStateStartsClosedWithGreeting(t *testing.T) {
	env := newTestEnv(t, replyWith("ok"))

	rec, token := env.do(t, http.MethodGet, "/api/widget", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, token)

	state := decodeState(t, rec)
	assert.False(t, state.Open)
	assert.False(t, state.Pending)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "Hello!", state.Messages[0].Text)
	assert.True(t, state.Messages[0].IsBot)
}

func TestToggleReturnsFocusDelayWhenOpening(t *testing.T) {
	env := newTestEnv(t, replyWith("ok"))

	rec, token := env.do(t, http.MethodPost, "/api/widget/toggle", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ToggleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Open)
	assert.Equal(t, widget.FocusDelay.Milliseconds(), resp.FocusAfterMs)

	rec, _ = env.do(t, http.MethodPost, "/api/widget/toggle", "", "", token)
	resp = model.ToggleResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Open)
	assert.Zero(t, resp.FocusAfterMs)
}

func TestSendAcceptsMessage(t *testing.T) {
	env := newTestEnv(t, replyWith("Hi there"))

	rec, token := env.do(t, http.MethodPost, "/api/widget/messages", `{"message":"hello"}`, "application/json", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp model.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp.Message.Text)
	assert.False(t, resp.Message.IsBot)

	ctrl := env.sessions.GetOrCreate(sessionOf(t, token))
	waitIdle(t, ctrl)

	state := ctrl.Snapshot()
	require.Len(t, state.Messages, 3)
	assert.Equal(t, "Hi there", state.Messages[2].Text)
	assert.True(t, state.Messages[2].IsBot)
}

func TestSendRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t, replyWith("ok"))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"empty", `{"message":""}`},
		{"whitespace", `{"message":"   "}`},
		{"too long", `{"message":"` + strings.Repeat("a", middleware.MaxMessageBytes+1) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := env.do(t, http.MethodPost, "/api/widget/messages", tt.body, "application/json", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSendWhilePendingConflicts(t *testing.T) {
	release := make(chan struct{})
	env := newTestEnv(t, clientFunc(func(ctx context.Context, _ string) (*chatapi.Response, error) {
		<-release
		return &chatapi.Response{Status: chatapi.StatusSuccess, Response: "done"}, nil
	}))

	rec, token := env.do(t, http.MethodPost, "/api/widget/messages", `{"message":"one"}`, "application/json", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/widget/messages", `{"message":"two"}`, "application/json", token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	ctrl := env.sessions.GetOrCreate(sessionOf(t, token))
	waitIdle(t, ctrl)
	assert.Len(t, ctrl.Snapshot().Messages, 3)
}

func TestPageRendersWidget(t *testing.T) {
	env := newTestEnv(t, replyWith("ok"))

	rec, token := env.do(t, http.MethodGet, "/", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Welcome to AI ChatBot Assistant")
	assert.NotContains(t, rec.Body.String(), `class="chat-window"`)

	rec, token = env.do(t, http.MethodPost, "/widget/toggle", "", "", token)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/#chat", rec.Header().Get("Location"))

	rec, _ = env.do(t, http.MethodGet, "/", "", "", token)
	body := rec.Body.String()
	assert.Contains(t, body, `class="chat-window"`)
	assert.Contains(t, body, "Hello!")
	assert.Contains(t, body, "autofocus")
}

func TestPageFormSubmit(t *testing.T) {
	env := newTestEnv(t, replyWith("Hi <b>there</b>"))

	form := url.Values{"message": {"hello"}}.Encode()
	rec, token := env.do(t, http.MethodPost, "/widget/messages", form, "application/x-www-form-urlencoded", "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	ctrl := env.sessions.GetOrCreate(sessionOf(t, token))
	waitIdle(t, ctrl)
	ctrl.ToggleVisibility()

	rec, _ = env.do(t, http.MethodGet, "/", "", "", token)
	body := rec.Body.String()
	assert.Contains(t, body, "hello")
	assert.Contains(t, body, "Hi &lt;b&gt;there&lt;/b&gt;")
	assert.NotContains(t, body, `http-equiv="refresh"`)
}

func TestPageFormIgnoresEmptyMessage(t *testing.T) {
	env := newTestEnv(t, replyWith("ok"))

	form := url.Values{"message": {"  "}}.Encode()
	rec, token := env.do(t, http.MethodPost, "/widget/messages", form, "application/x-www-form-urlencoded", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	ctrl := env.sessions.GetOrCreate(sessionOf(t, token))
	assert.Len(t, ctrl.Snapshot().Messages, 1)
	assert.False(t, ctrl.Pending())
}

func TestStreamSendsInitialState(t *testing.T) {
	env := newTestEnv(t, replyWith("ok"))
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/widget/stream", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: state\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var state model.WidgetState
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &state))
	assert.Len(t, state.Messages, 1)
	assert.NotEmpty(t, state.SessionID)
}

func sessionOf(t *testing.T, token string) string {
	t.Helper()
	id, err := middleware.NewSessionIssuer("test-secret", time.Hour).Parse(token)
	require.NoError(t, err)
	return id
}

func TestSendRejectsOversizedBody(t *testing.T) {
	env := newTestEnv(t, replyWith("ok"))

	body := `{"message":"hi","pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec, _ := env.do(t, http.MethodPost, "/api/widget/messages", body, "application/json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	form := url.Values{"message": {"hi"}, "pad": {strings.Repeat("x", maxBodyBytes)}}.Encode()
	rec, _ = env.do(t, http.MethodPost, "/widget/messages", form, "application/x-www-form-urlencoded", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type countingSessions struct {
	ctrl  *widget.Controller
	calls atomic.Int32
}

func (s *countingSessions) GetOrCreate(string) *widget.Controller {
	s.calls.Add(1)
	return s.ctrl
}

func TestStreamHeartbeatTouchesSessionAndLogsRequestContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	sessions := &countingSessions{ctrl: widget.New(replyWith("ok"), widget.Options{Logger: logger.NewNop()})}
	h := NewStreamHandler(sessions, log)
	h.heartbeat = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	ctx = context.WithValue(ctx, middleware.SessionIDKey, "session-1")
	ctx = context.WithValue(ctx, middleware.CorrelationIDKey, "corr-1")
	req := httptest.NewRequest(http.MethodGet, "/api/widget/stream", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Stream(httptest.NewRecorder(), req)
	}()

	require.Eventually(t, func() bool { return sessions.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	entries := logs.FilterMessage("SSE client disconnected").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "corr-1", fields["correlation_id"])
	assert.Equal(t, "session-1", fields["session_id"])
}
