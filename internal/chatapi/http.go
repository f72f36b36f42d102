package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// maxBodyBytes bounds how much of a reply is read.
const maxBodyBytes = 1 << 20

// HTTPClient is the Client talking JSON over HTTP to a fixed URL.
type HTTPClient struct {
	url        string
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.httpClient = c
	}
}

// WithTimeout sets the transport timeout of the default *http.Client.
// The widget itself never times a request out; this is the only bound.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		h.httpClient.Timeout = d
	}
}

// NewHTTPClient creates a client posting to url.
func NewHTTPClient(url string, opts ...Option) (*HTTPClient, error) {
	if url == "" {
		return nil, errors.New("chat API URL is required")
	}

	c := &HTTPClient{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tracer:     otel.Tracer("github.com/capitalize-ai/assistant-widget/internal/chatapi"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Send implements Client.
func (c *HTTPClient) Send(ctx context.Context, text string) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "chatapi.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	resp, err := c.send(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("chatapi.status", resp.Status),
		attribute.String("chatapi.intent", resp.Intent),
	)
	return resp, nil
}

func (c *HTTPClient) send(ctx context.Context, text string) (*Response, error) {
	body, err := json.Marshal(&Request{Message: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, maxBodyBytes))
		return nil, &StatusError{
			StatusCode: httpResp.StatusCode,
			Status:     http.StatusText(httpResp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &out, nil
}
