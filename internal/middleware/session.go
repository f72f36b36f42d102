// Package middleware provides HTTP middleware for the widget host.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// SessionIDKey is the context key for the widget session ID.
	SessionIDKey ContextKey = "session_id"

	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "widget_session"

	// SessionHeader carries the same token for clients without cookies.
	SessionHeader = "X-Widget-Session"
)

// SessionClaims are the claims of a session token. The subject is the
// session ID.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies session tokens with HMAC-SHA256.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer creates an issuer. Tokens expire after ttl.
func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for sessionID.
func (i *SessionIssuer) Issue(sessionID string) (string, error) {
	now := i.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies tokenString and returns its session ID.
func (i *SessionIssuer) Parse(tokenString string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid session token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("invalid session subject")
	}
	return claims.Subject, nil
}

// Session binds every request to a widget session. A valid token from the
// cookie or the X-Widget-Session header is reused; otherwise a new session
// is started and its token returned in both.
func Session(issuer *SessionIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if token := sessionToken(r); token != "" {
				if id, err := issuer.Parse(token); err == nil {
					sessionID = id
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				token, err := issuer.Issue(sessionID)
				if err != nil {
					http.Error(w, `{"error":"failed to start session"}`, http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(issuer.ttl.Seconds()),
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
				w.Header().Set(SessionHeader, token)
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) string {
	if token := r.Header.Get(SessionHeader); token != "" {
		return token
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// GetSessionID gets the session ID from context.
func GetSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(SessionIDKey).(string); ok {
		return v
	}
	return ""
}
