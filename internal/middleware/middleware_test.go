package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-widget/pkg/logger"
)

func sessionEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetSessionID(r.Context())))
	})
}

func TestSessionIssuesCookieForNewVisitor(t *testing.T) {
	issuer := NewSessionIssuer("secret", time.Hour)
	h := Session(issuer)(sessionEcho())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	sessionID := rec.Body.String()
	_, err := uuid.Parse(sessionID)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, rec.Header().Get(SessionHeader))

	parsed, err := issuer.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, sessionID, parsed)
}

func TestSessionReusesValidToken(t *testing.T) {
	issuer := NewSessionIssuer("secret", time.Hour)
	h := Session(issuer)(sessionEcho())
	id := uuid.NewString()
	token, err := issuer.Issue(id)
	require.NoError(t, err)

	for _, set := range []func(*http.Request){
		func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token}) },
		func(r *http.Request) { r.Header.Set(SessionHeader, token) },
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		set(req)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, id, rec.Body.String())
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	other := NewSessionIssuer("other-secret", time.Hour)
	token, err := other.Issue(uuid.NewString())
	require.NoError(t, err)

	issuer := NewSessionIssuer("secret", time.Hour)
	_, err = issuer.Parse(token)
	require.Error(t, err)
}

func TestSessionRejectsExpiredToken(t *testing.T) {
	issuer := NewSessionIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := issuer.Issue(uuid.NewString())
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	require.Error(t, err)
}

func TestSessionRejectsNonUUIDSubject(t *testing.T) {
	issuer := NewSessionIssuer("secret", time.Hour)
	token, err := issuer.Issue("widget.>")
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	require.Error(t, err)
}

func TestLoggingSetsCorrelationID(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Logging(logger.NewNop()))
	var seen string
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "corr-1", seen)
	assert.Equal(t, "corr-1", rec.Header().Get("X-Correlation-ID"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestValidateMessageText(t *testing.T) {
	assert.NoError(t, ValidateMessageText("What courses do you offer?"))
	assert.NoError(t, ValidateMessageText(""))
	assert.Error(t, ValidateMessageText(strings.Repeat("a", MaxMessageBytes+1)))
	assert.Error(t, ValidateMessageText("\xff\xfe"))
}
