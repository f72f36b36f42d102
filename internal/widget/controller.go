// Package widget implements the chat widget controller: it owns one
// conversation log, the panel visibility and the pending-request flag, and
// drives a single request/response cycle at a time against the remote chat
// endpoint.
package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-widget/internal/chatapi"
	"github.com/capitalize-ai/assistant-widget/internal/model"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
	"github.com/capitalize-ai/assistant-widget/pkg/metrics"
)

// FocusDelay is how long a presentation waits after opening the panel before
// focusing the text input, so the entry transition can finish.
const FocusDelay = 100 * time.Millisecond

var (
	// ErrEmptyMessage is returned when the text is empty after trimming.
	// Nothing is appended and no request is sent.
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrBusy is returned while a previous submission is still in flight.
	ErrBusy = errors.New("a message is already being processed")
)

// EventPublisher receives widget events. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.WidgetEvent) error
}

// Options configures a Controller.
type Options struct {
	SessionID string
	// Greeting is the first bot message of the log; empty means none.
	Greeting  string
	Publisher EventPublisher
	Logger    *logger.Logger
	// Now is the clock used for timestamps and identifiers.
	Now func() time.Time
}

// Controller is the chat widget controller. It is safe for concurrent use.
type Controller struct {
	client    chatapi.Client
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time
	sessionID string

	mu       sync.Mutex
	open     bool
	pending  bool
	messages []model.Message
	lastID   int64

	watchMu     sync.Mutex
	watchers    map[int]chan struct{}
	nextWatcher int
}

// New creates a controller sending through client.
func New(client chatapi.Client, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Global()
	}

	c := &Controller{
		client:    client,
		publisher: opts.Publisher,
		logger:    opts.Logger.WithSession(opts.SessionID),
		now:       opts.Now,
		sessionID: opts.SessionID,
		watchers:  make(map[int]chan struct{}),
	}

	if opts.Greeting != "" {
		c.appendLocked(model.Message{Text: opts.Greeting, IsBot: true})
	}

	return c
}

// SessionID returns the session the controller belongs to.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() model.WidgetState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Pending reports whether a submission is in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// ToggleVisibility flips the panel visibility and returns the new value.
// When it returns true the caller should focus its input after FocusDelay.
func (c *Controller) ToggleVisibility() bool {
	c.mu.Lock()
	c.open = !c.open
	open := c.open
	c.mu.Unlock()

	c.notify()
	return open
}

// Submit appends text as a user message, marks the widget pending and sends
// text to the remote endpoint in the background. The request is not tied to
// ctx's cancellation: once sent it runs until it succeeds or fails, and
// exactly one bot message is appended when it does.
func (c *Controller) Submit(ctx context.Context, text string) (*Submission, error) {
	if strings.TrimSpace(text) == "" {
		metrics.RecordRejected("empty")
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		metrics.RecordRejected("busy")
		return nil, ErrBusy
	}
	user := c.appendLocked(model.Message{Text: text})
	c.pending = true
	c.mu.Unlock()

	c.notify()
	c.logger.Debug("message submitted", zap.Int64("message_id", user.ID))

	sub := &Submission{
		User: user.Clone(),
		done: make(chan struct{}),
	}
	go c.run(context.WithoutCancel(ctx), sub, text)

	return sub, nil
}

// Watch registers for change notifications. The channel receives a value
// after any state change, coalescing bursts. Call the returned func to stop.
func (c *Controller) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	c.watchMu.Lock()
	id := c.nextWatcher
	c.nextWatcher++
	c.watchers[id] = ch
	c.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.watchMu.Lock()
			delete(c.watchers, id)
			c.watchMu.Unlock()
		})
	}
}

// Watching reports whether any Watch registration is still active.
func (c *Controller) Watching() bool {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	return len(c.watchers) > 0
}

// run performs the request and applies its result. The deferred call is the
// only place the bot message is appended and the pending flag cleared.
func (c *Controller) run(ctx context.Context, sub *Submission, text string) {
	start := c.now()
	result := transportFailure()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("chat client panicked", zap.Any("panic", r))
			result = transportFailure()
		}
		c.finish(ctx, sub, result, c.now().Sub(start))
	}()

	resp, err := c.client.Send(ctx, text)
	result = Classify(resp, err)

	switch result.Outcome {
	case OutcomeSuccess:
		c.logger.Debug("reply received",
			zap.String("intent", result.Intent),
			zap.Any("entities", result.Entities),
		)
	case OutcomeUnexpected:
		c.logger.Warn("unexpected response format", zap.Any("response", resp), zap.Error(err))
	case OutcomeHTTPError:
		c.logger.Warn("chat API returned an error status", zap.Error(err))
	default:
		c.logger.Warn("chat API unreachable", zap.Error(err))
	}
}

func (c *Controller) finish(ctx context.Context, sub *Submission, result Result, elapsed time.Duration) {
	c.mu.Lock()
	bot := c.appendLocked(model.Message{
		Text:     result.Text,
		IsBot:    true,
		Intent:   result.Intent,
		Entities: result.Entities,
	})
	c.pending = false
	c.mu.Unlock()

	c.notify()
	metrics.RecordSubmission(string(result.Outcome), elapsed.Seconds())

	c.publish(ctx, &model.WidgetEvent{
		Type:      model.EventTypeExchange,
		Outcome:   string(result.Outcome),
		Intent:    result.Intent,
		LatencyMs: elapsed.Milliseconds(),
	})

	if result.Outcome == OutcomeSuccess && IsLeadCapture(result.Intent, result.Entities) {
		metrics.LeadsCaptured.Inc()
		c.logger.Info("lead information captured", zap.Any("entities", result.Entities))
		c.publish(ctx, &model.WidgetEvent{
			Type:     model.EventTypeLeadCaptured,
			Intent:   result.Intent,
			Entities: bot.Clone().Entities,
		})
	}

	sub.bot = bot.Clone()
	sub.outcome = result.Outcome
	close(sub.done)
}

// publish hands event to the publisher. A failing or panicking publisher is
// logged and otherwise ignored.
func (c *Controller) publish(ctx context.Context, event *model.WidgetEvent) {
	if c.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event publisher panicked",
				zap.String("type", string(event.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	event.ID = uuid.NewString()
	event.SessionID = c.sessionID
	event.CreatedAt = c.now()

	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("failed to publish widget event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

// appendLocked stamps msg with the next identifier and the current time and
// appends it. The identifier is the send time in milliseconds, bumped past
// the previous one so identifiers strictly increase.
func (c *Controller) appendLocked(msg model.Message) model.Message {
	now := c.now()
	id := now.UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id

	msg.ID = id
	msg.Timestamp = now
	c.messages = append(c.messages, msg)
	return msg
}

func (c *Controller) snapshotLocked() model.WidgetState {
	msgs := make([]model.Message, len(c.messages))
	for i, m := range c.messages {
		msgs[i] = m.Clone()
	}
	return model.WidgetState{
		SessionID: c.sessionID,
		Open:      c.open,
		Pending:   c.pending,
		Messages:  msgs,
	}
}

func (c *Controller) notify() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Submission is one accepted Submit call.
type Submission struct {
	// User is the message appended when the submission was accepted.
	User model.Message

	done    chan struct{}
	bot     model.Message
	outcome Outcome
}

// Done is closed once the bot message has been appended.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the bot message has been appended and returns it. If ctx
// ends first the submission keeps running and ctx's error is returned.
func (s *Submission) Wait(ctx context.Context) (model.Message, error) {
	select {
	case <-s.done:
		return s.bot, nil
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	}
}

// Outcome returns how the submission ended. Valid after Done is closed.
func (s *Submission) Outcome() Outcome {
	<-s.done
	return s.outcome
}
