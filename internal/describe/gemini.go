// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package describe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/metrics"
	"github.com/tomtom215/eventbnb/internal/models"
)

const (
	// ServiceName labels errors, metrics and the circuit breaker.
	ServiceName = "gemini"

	DefaultModel      = "gemini-2.5-flash"
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultMaxRetries = 5
	DefaultCooldown   = 8 * time.Second
	DefaultTimeout    = 30 * time.Second

	// MinAPIKeyLength rejects obviously truncated keys before any call.
	MinAPIKeyLength = 10

	maxBackoff = 10 * time.Second
)

var (
	// ErrInvalidAPIKey is returned for a missing or too-short API key.
	ErrInvalidAPIKey = errors.New("describe: API key missing or too short")

	// ErrCooldown is returned when a call arrives inside the cooldown window.
	ErrCooldown = errors.New("describe: generator cooling down, try again shortly")

	// ErrBusy is returned when a call arrives while another is in flight.
	ErrBusy = errors.New("describe: a description is already being generated")

	// ErrRetriesExhausted is returned after every attempt was rate limited.
	ErrRetriesExhausted = errors.New("describe: rate limited, too many retries")

	// ErrEmptyResponse is returned when the generator produced no text.
	ErrEmptyResponse = errors.New("describe: empty response from generator")
)

// GeminiClient revises descriptions through the Gemini generateContent API.
// It is safe for concurrent use.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	cooldown   time.Duration
	limiter    *rate.Limiter
	inFlight   atomic.Bool
	breaker    *gobreaker.CircuitBreaker[string]
	backoff    func(attempt int) time.Duration
	settings   BreakerSettings
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithModel selects the generator model.
func WithModel(model string) Option {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *GeminiClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *GeminiClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRetries sets the total number of attempts per call.
func WithMaxRetries(n int) Option {
	return func(c *GeminiClient) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithCooldown sets the minimum time between the end of a successful call
// and the start of the next. Zero disables it.
func WithCooldown(d time.Duration) Option {
	return func(c *GeminiClient) {
		c.cooldown = d
	}
}

// WithBackoff replaces the delay schedule between rate-limited attempts.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(c *GeminiClient) {
		if fn != nil {
			c.backoff = fn
		}
	}
}

// WithBreakerSettings tunes the circuit breaker.
func WithBreakerSettings(s BreakerSettings) Option {
	return func(c *GeminiClient) {
		c.settings = s
	}
}

// NewGeminiClient creates a client for apiKey.
func NewGeminiClient(apiKey string, opts ...Option) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if len(apiKey) < MinAPIKeyLength {
		return nil, ErrInvalidAPIKey
	}

	c := &GeminiClient{
		apiKey:     apiKey,
		model:      DefaultModel,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		cooldown:   DefaultCooldown,
		backoff:    Backoff,
		settings:   DefaultBreakerSettings(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cooldown > 0 {
		c.limiter = rate.NewLimiter(rate.Every(c.cooldown), 1)
	}
	c.breaker = newBreaker(ServiceName+"-api", c.settings)
	return c, nil
}

// Model returns the configured generator model.
func (c *GeminiClient) Model() string {
	return c.model
}

// Revise implements Writer.
func (c *GeminiClient) Revise(ctx context.Context, req Request) (string, error) {
	return c.Generate(ctx, BuildPrompt(req))
}

// Generate sends prompt to the model and returns the trimmed text. One
// call runs at a time; a call arriving while another is in flight, or
// within the cooldown after the last success, is rejected as rate limited.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		metrics.DescribeRequests.WithLabelValues("busy").Inc()
		return "", &models.ExternalServiceError{Service: ServiceName, RateLimited: true, Err: ErrBusy}
	}
	defer c.inFlight.Store(false)

	if c.limiter != nil && c.limiter.Tokens() < 1 {
		metrics.DescribeRequests.WithLabelValues("cooldown").Inc()
		return "", &models.ExternalServiceError{Service: ServiceName, RateLimited: true, Err: ErrCooldown}
	}

	text, err := c.breaker.Execute(func() (string, error) {
		return c.generateWithRetry(ctx, prompt)
	})
	if err != nil {
		var extErr *models.ExternalServiceError
		switch {
		case isBreakerRejection(err):
			metrics.DescribeRequests.WithLabelValues("rejected").Inc()
			logging.Warn().Err(err).Msg("Description request rejected by circuit breaker")
			return "", &models.ExternalServiceError{Service: ServiceName, StatusCode: http.StatusServiceUnavailable, Err: err}
		case errors.As(err, &extErr) && extErr.RateLimited:
			metrics.DescribeRequests.WithLabelValues("rate_limited").Inc()
		default:
			metrics.DescribeRequests.WithLabelValues("error").Inc()
		}
		return "", err
	}

	if c.limiter != nil {
		c.limiter.Allow()
	}
	metrics.DescribeRequests.WithLabelValues("success").Inc()
	return text, nil
}

// generateWithRetry retries rate-limited attempts with backoff.
func (c *GeminiClient) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			logging.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Generator rate limited, backing off")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.call(ctx, prompt)
		if err == nil {
			return text, nil
		}
		var extErr *models.ExternalServiceError
		if !errors.As(err, &extErr) || !extErr.RateLimited {
			return "", err
		}
		lastErr = err
	}

	status := 0
	var extErr *models.ExternalServiceError
	if errors.As(lastErr, &extErr) {
		status = extErr.StatusCode
	}
	return "", &models.ExternalServiceError{
		Service:     ServiceName,
		StatusCode:  status,
		RateLimited: true,
		Err:         fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, c.maxRetries, lastErr),
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// call makes a single generateContent request.
func (c *GeminiClient) call(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &models.ExternalServiceError{Service: ServiceName, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // body fully consumed or error reported

	if resp.StatusCode != http.StatusOK {
		msg := readBodyForError(resp.Body)
		return "", &models.ExternalServiceError{
			Service:     ServiceName,
			StatusCode:  resp.StatusCode,
			RateLimited: isRateLimited(resp.StatusCode, msg),
			Err:         errors.New(msg),
		}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &models.ExternalServiceError{Service: ServiceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	var sb strings.Builder
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &models.ExternalServiceError{Service: ServiceName, StatusCode: resp.StatusCode, Err: ErrEmptyResponse}
	}

	logging.Debug().
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Int("chars", len(text)).
		Msg("Generated description")
	return text, nil
}

// readBodyForError reads a bounded error body, preferring the API's message.
func readBodyForError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	var apiErr apiErrorBody
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
		if apiErr.Error.Status != "" {
			return apiErr.Error.Status + ": " + apiErr.Error.Message
		}
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// isRateLimited recognizes quota errors by status or by message text, since
// quota exhaustion is not always reported as 429.
func isRateLimited(status int, msg string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "resource_exhausted") || strings.Contains(lower, "too many requests")
}

// Backoff returns min(2^attempt seconds + jitter, 10s), jitter in [0, 1s).
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 4 {
		return maxBackoff
	}
	d := time.Duration(1<<attempt)*time.Second + time.Duration(rand.Int64N(int64(time.Second)))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
