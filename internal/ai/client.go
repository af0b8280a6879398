// Package ai talks to the OpenAI-compatible text-generation endpoint and
// pulls JSON payloads out of free-form model replies.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/starford/orrery/internal/metrics"
)

// Defaults applied when a Request leaves a parameter unset.
const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "openai/gpt-4o-mini"
	DefaultTemperature = float32(0.7)
	DefaultMaxTokens   = 2048
	defaultTopP        = float32(0.9)
	appTitle           = "Orrery Notes"
	appReferer         = "http://localhost"
)

// ErrEmptyResponse is returned when the endpoint answers without choices.
var ErrEmptyResponse = errors.New("ai: empty response")

// Request is a single prompt to the collaborator.
type Request struct {
	Prompt      string
	Temperature *float32
	MaxTokens   *int
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config configures an OpenAIClient.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float32
	MaxTokens         int
	Timeout           time.Duration
	Retries           int
	RequestsPerSecond float64
}

// OpenAIClient is a Generator backed by an OpenAI-compatible chat endpoint.
type OpenAIClient struct {
	client  *openai.Client
	cfg     Config
	limiter *rate.Limiter
	backoff time.Duration
	logger  *slog.Logger
}

// NewOpenAIClient builds a client. Zero fields in cfg take the defaults.
func NewOpenAIClient(cfg Config, logger *slog.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Transport: headerTransport{base: http.DefaultTransport}}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(oc),
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		backoff: time.Second,
		logger:  logger,
	}
}

// headerTransport adds the attribution headers OpenRouter expects.
type headerTransport struct {
	base http.RoundTripper
}

func (t headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("HTTP-Referer", appReferer)
	r.Header.Set("X-Title", appTitle)
	return t.base.RoundTrip(r)
}

// Generate sends the prompt as a single user message. Transient failures are
// retried with linear backoff; context cancellation is not retried.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, req)
	metrics.AIDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.AICalls.WithLabelValues("ok").Inc()
	case ctx.Err() != nil:
		metrics.AICalls.WithLabelValues("canceled").Inc()
	default:
		metrics.AICalls.WithLabelValues("error").Inc()
	}
	return text, err
}

func (c *OpenAIClient) generate(ctx context.Context, req Request) (string, error) {
	creq := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        defaultTopP,
	}
	if req.Temperature != nil {
		creq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		creq.MaxTokens = *req.MaxTokens
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.backoff
			c.logger.Warn("retrying text generation",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
				slog.String("error", lastErr.Error()))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("ai: generate: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("ai: rate limit: %w", err)
		}

		text, err := c.once(ctx, creq)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	return "", fmt.Errorf("ai: generate: %w", lastErr)
}

func (c *OpenAIClient) once(ctx context.Context, creq openai.ChatCompletionRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, creq)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// retryable reports whether err is worth another attempt. Client errors
// other than rate limiting are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
