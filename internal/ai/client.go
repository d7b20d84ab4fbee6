// Package ai adapts the OpenAI-compatible chat completions and audio
// transcription endpoints used by the voice features. Requests are built by
// pure functions so they can be inspected in tests; the HTTP boundary is the
// Completer interface.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// ErrMalformedResponse is returned when the upstream reply lacks the
	// expected tool call or cannot be decoded.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrInvalidAudio is returned for empty or undecodable audio payloads.
	ErrInvalidAudio = errors.New("invalid audio payload")

	// ErrEmptyText is returned when there is nothing to parse.
	ErrEmptyText = errors.New("text is empty")

	// ErrNotConfigured is returned when no upstream URL or key is set.
	ErrNotConfigured = errors.New("ai upstream not configured")
)

// UpstreamError reports a non-2xx upstream status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the instrumented default.
	HTTPClient *http.Client
}

// Client talks to an OpenAI-compatible API through go-openai.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient returns a Client whose transport is traced with otelhttp. An
// empty BaseURL or APIKey yields a Client that reports ErrNotConfigured.
func NewClient(o Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if base == "" || o.APIKey == "" {
		return &Client{model: o.Model}
	}
	hc := o.HTTPClient
	if hc == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	cfg := openai.DefaultConfig(o.APIKey)
	cfg.BaseURL = base
	cfg.HTTPClient = hc
	return &Client{api: openai.NewClientWithConfig(cfg), model: o.Model}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

func (c *Client) configured() bool { return c != nil && c.api != nil }

// Complete sends req to /chat/completions.
func (c *Client) Complete(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	if req.Model == "" {
		req.Model = c.model
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, upstreamErr(err)
	}
	return &resp, nil
}

// upstreamErr maps go-openai errors onto this package's errors. Status
// errors become *UpstreamError; transport errors are wrapped; anything else
// means the body could not be decoded.
func upstreamErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{Status: reqErr.HTTPStatusCode, Body: strings.TrimSpace(reqErr.Error())}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("ai request: %w", err)
	}
	return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now().UTC()
}
