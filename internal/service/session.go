// Package service holds the widget sessions served by the HTTP host.
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-widget/internal/widget"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
	"github.com/capitalize-ai/assistant-widget/pkg/metrics"
)

// Factory builds the controller for a new session.
type Factory func(sessionID string) *widget.Controller

// SessionService keeps one widget controller per browser session in memory.
type SessionService struct {
	factory  Factory
	idle     time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	controller *widget.Controller
	lastSeen   time.Time
}

// SessionOptions configures eviction.
type SessionOptions struct {
	// IdleTimeout is how long an untouched session is kept. Zero keeps
	// sessions forever.
	IdleTimeout time.Duration
	// SweepInterval is how often Run evicts idle sessions.
	SweepInterval time.Duration
	Now           func() time.Time
}

// NewSessionService creates a session service.
func NewSessionService(factory Factory, opts SessionOptions, log *logger.Logger) *SessionService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	return &SessionService{
		factory:  factory,
		idle:     opts.IdleTimeout,
		interval: opts.SweepInterval,
		now:      opts.Now,
		logger:   log,
		sessions: make(map[string]*session),
	}
}

// GetOrCreate returns the controller for sessionID, creating it on first use.
func (s *SessionService) GetOrCreate(sessionID string) *widget.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastSeen = s.now()
		return sess.controller
	}

	sess := &session{
		controller: s.factory(sessionID),
		lastSeen:   s.now(),
	}
	s.sessions[sessionID] = sess
	metrics.SessionsActive.Set(float64(len(s.sessions)))

	s.logger.Debug("widget session created", zap.String("session_id", sessionID))

	return sess.controller
}

// Get returns the controller for sessionID if it exists.
func (s *SessionService) Get(sessionID string) (*widget.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.controller, true
}

// Len returns the number of sessions held.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle longer than the idle timeout and returns how
// many were removed. Sessions with a request in flight or an open watcher
// (an SSE stream) are kept.
func (s *SessionService) Sweep() int {
	if s.idle <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.After(cutoff) || sess.controller.Pending() || sess.controller.Watching() {
			continue
		}
		delete(s.sessions, id)
		removed++
	}

	if removed > 0 {
		metrics.SessionsActive.Set(float64(len(s.sessions)))
		s.logger.Info("evicted idle widget sessions",
			zap.Int("removed", removed),
			zap.Int("remaining", len(s.sessions)),
		)
	}

	return removed
}

// Run sweeps on every interval until ctx is done.
func (s *SessionService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}
