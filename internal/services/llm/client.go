package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clipquiz/internal/logging"
	"clipquiz/internal/quiz"
)

// Model is the fixed generation model identifier.
const Model = "google/gemini-2.5-flash"

// DefaultBaseURL is the OpenRouter chat completions endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client wraps the OpenRouter chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      retryPolicy
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default attempt count (defaults to 3).
// A value of 1 disables retries.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleeper = sleeper
	}
}

// WithLogger attaches a logger used to report retries and token usage.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		retry:      defaultRetryPolicy(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	if client.logger == nil {
		client.logger = logging.NewNop()
	}
	return client
}

// Complete sends prompt as a single user message and returns the model's
// text untouched. Transient failures are retried with exponential backoff up
// to the configured attempt count.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("llm complete: prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm complete: api key required")
	}
	return c.exchange(ctx, "llm complete", chatRequest{
		Model:          Model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		Temperature:    0.2,
		ResponseFormat: jsonResponseFormat,
	})
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	content, err := c.exchange(ctx, "llm health", chatRequest{
		Model: Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with JSON only."},
			{Role: "user", Content: `Respond with {"ok":true}`},
		},
		ResponseFormat: jsonResponseFormat,
	})
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(quiz.StripCodeFence(content)), &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload (%s): %w", snippet(content), err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

// exchange runs one logical request, retrying per the client's policy.
func (c *Client) exchange(ctx context.Context, op string, req chatRequest) (string, error) {
	attempts := c.retry.maxAttempts()
	for attempt := 1; ; attempt++ {
		content, err := c.attempt(ctx, op, req, attempt)
		if err == nil {
			return content, nil
		}

		delay, retry := c.retry.next(ctx, err, attempt)
		if !retry {
			if attempt > 1 {
				return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return "", err
		}
		c.logger.Warn("llm request failed; retrying",
			logging.String(logging.FieldEventType, "llm_retry"),
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "generation service is throttling or unavailable"),
			logging.String(logging.FieldImpact, "quiz generation delayed"),
		)
		if err := c.retry.wait(ctx, delay); err != nil {
			return "", err
		}
	}
}

func (c *Client) attempt(ctx context.Context, op string, req chatRequest, attempt int) (string, error) {
	resp, body, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	content, finish, refusal := resp.content()
	if content == "" {
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%s: empty choices", op)
		}
		return "", &emptyContentError{Op: op, FinishReason: finish, Refusal: refusal, Snippet: snippet(string(body))}
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "llm_response"),
		logging.String("operation", op),
		logging.Int("attempt", attempt),
		logging.String("finish_reason", finish),
		logging.Int("content_chars", len(content)),
	}
	if resp.Usage != nil {
		attrs = append(attrs,
			logging.Int("prompt_tokens", resp.Usage.PromptTokens),
			logging.Int("completion_tokens", resp.Usage.CompletionTokens),
		)
	}
	c.logger.Debug("llm response received", logging.Args(attrs...)...)
	return content, nil
}
