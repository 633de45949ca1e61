// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package describe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/eventbnb/internal/metrics"
	"github.com/tomtom215/eventbnb/internal/models"
)

const testKey = "test-api-key-0123456789"

func testRequest() Request {
	return Request{
		Listing: models.Listing{
			ID:          "L1",
			Description: "Bright two-bedroom apartment with a full kitchen and fast Wi-Fi.",
		},
		Pair: models.ListingEventPair{
			ListingID:      "L1",
			EventID:        "E1",
			DistanceKm:     6.2861,
			DateOverlap:    true,
			PredictedPrice: 142.5,
			ModelVersion:   "ridge@v1",
			EventName:      "Summer Jazz Night",
			EventType:      "concert",
			EventDate:      time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC),
			VenueName:      "Brooklyn Bowl",
			DaysUntilEvent: 34,
			CurrentPrice:   120,
		},
	}
}

func noBackoff(int) time.Duration { return 0 }

// geminiServer answers generateContent calls with responses[i] for the i-th
// call, repeating the last one.
func geminiServer(t *testing.T, calls *atomic.Int32, responses ...func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(responses) {
			n = len(responses) - 1
		}
		responses[n](w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func okText(text string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":`+quote(text)+`}]},"finishReason":"STOP"}]}`)
	}
}

func status(code int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(testRequest())

	for _, want := range []string{
		"Task: Rewrite an Airbnb listing description to attract guests attending an event.",
		"30-70 words, one paragraph.",
		"- Name: Summer Jazz Night",
		"- Type: concert",
		"- Date: 2024-07-05",
		"- Venue: Brooklyn Bowl",
		"- Distance to venue (km): 6.29",
		"- Days until event: 34",
		"- Current price: 120.00",
		"- Suggested price: 142.50",
		"Bright two-bedroom apartment",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(prompt, "Output ONLY the improved description text:") {
		t.Errorf("prompt should end with the output instruction, got tail %q", prompt[len(prompt)-40:])
	}
}

func TestBuildPrompt_Defaults(t *testing.T) {
	t.Parallel()

	req := testRequest()
	req.Pair.EventName = ""
	req.Pair.EventType = "  "
	prompt := BuildPrompt(req)

	if !strings.Contains(prompt, "- Name: an upcoming event") {
		t.Error("missing default event name")
	}
	if !strings.Contains(prompt, "- Type: event\n") {
		t.Error("missing default event type")
	}
}

func TestBuildPrompt_TruncatesDescription(t *testing.T) {
	t.Parallel()

	req := testRequest()
	req.Listing.Description = strings.Repeat("a", MaxDescriptionChars-1) + " " + strings.Repeat("b", 500)
	prompt := BuildPrompt(req)

	want := strings.Repeat("a", MaxDescriptionChars-1) + "...\n"
	if !strings.Contains(prompt, want) {
		t.Error("description not truncated to the limit with trailing whitespace removed")
	}
	if strings.Contains(prompt, "bbbb") {
		t.Error("text beyond the limit leaked into the prompt")
	}

	short := testRequest()
	if strings.Contains(BuildPrompt(short), "...") {
		t.Error("short description should not be marked as truncated")
	}
}

func TestNewGeminiClient_RejectsShortKey(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "short", "   123456789  "} {
		if _, err := NewGeminiClient(key); !errors.Is(err, ErrInvalidAPIKey) {
			t.Errorf("key %q: got %v, want ErrInvalidAPIKey", key, err)
		}
	}
}

func TestGeminiClient_Revise(t *testing.T) {
	t.Parallel()

	var got struct {
		path, key, contentType string
		body                   generateRequest
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.key = r.Header.Get("x-goog-api-key")
		got.contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got.body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		okText("  Stay steps from Summer Jazz Night.  \n")(w)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL+"/"), WithCooldown(0))
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	text, err := c.Revise(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if text != "Stay steps from Summer Jazz Night." {
		t.Errorf("text = %q", text)
	}
	if got.path != "/models/gemini-2.5-flash:generateContent" {
		t.Errorf("path = %q", got.path)
	}
	if got.key != testKey {
		t.Errorf("api key header = %q", got.key)
	}
	if got.contentType != "application/json" {
		t.Errorf("content type = %q", got.contentType)
	}
	if len(got.body.Contents) != 1 || len(got.body.Contents[0].Parts) != 1 ||
		got.body.Contents[0].Parts[0].Text != BuildPrompt(testRequest()) {
		t.Errorf("request body does not carry the prompt: %+v", got.body)
	}
}

func TestGeminiClient_RetriesRateLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		limited func(w http.ResponseWriter)
	}{
		{"status 429", status(http.StatusTooManyRequests, `{"error":{"code":429,"message":"slow down"}}`)},
		{"resource exhausted", status(http.StatusBadRequest, `{"error":{"code":400,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`)},
		{"too many requests text", status(http.StatusServiceUnavailable, "Too Many Requests")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := geminiServer(t, &calls, tt.limited, tt.limited, okText("done"))
			c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL), WithCooldown(0), WithBackoff(noBackoff))
			if err != nil {
				t.Fatal(err)
			}

			text, err := c.Revise(context.Background(), testRequest())
			if err != nil {
				t.Fatalf("Revise: %v", err)
			}
			if text != "done" {
				t.Errorf("text = %q", text)
			}
			if n := calls.Load(); n != 3 {
				t.Errorf("calls = %d, want 3", n)
			}
		})
	}
}

func TestGeminiClient_RetriesExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := geminiServer(t, &calls, status(http.StatusTooManyRequests, "rate limited"))
	c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL), WithCooldown(0), WithBackoff(noBackoff))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Revise(context.Background(), testRequest())
	var extErr *models.ExternalServiceError
	if !errors.As(err, &extErr) {
		t.Fatalf("error = %v, want ExternalServiceError", err)
	}
	if !extErr.RateLimited || extErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("error = %+v", extErr)
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("error should wrap ErrRetriesExhausted: %v", err)
	}
	if n := calls.Load(); n != DefaultMaxRetries {
		t.Errorf("calls = %d, want %d", n, DefaultMaxRetries)
	}
	if models.KindOf(err) != models.KindExternalService {
		t.Errorf("KindOf = %q", models.KindOf(err))
	}
}

func TestGeminiClient_NoRetryOnServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := geminiServer(t, &calls, status(http.StatusInternalServerError, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))
	c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL), WithCooldown(0), WithBackoff(noBackoff))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Revise(context.Background(), testRequest())
	var extErr *models.ExternalServiceError
	if !errors.As(err, &extErr) {
		t.Fatalf("error = %v, want ExternalServiceError", err)
	}
	if extErr.RateLimited || extErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("error = %+v", extErr)
	}
	if !strings.Contains(err.Error(), "INTERNAL: internal") {
		t.Errorf("error message = %q", err.Error())
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestGeminiClient_EmptyResponse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := geminiServer(t, &calls, status(http.StatusOK, `{"candidates":[]}`))
	c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL), WithCooldown(0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Revise(context.Background(), testRequest()); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestGeminiClient_Cooldown(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := geminiServer(t, &calls, okText("first"))
	c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL), WithCooldown(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Revise(context.Background(), testRequest()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err = c.Revise(context.Background(), testRequest())
	if !errors.Is(err, ErrCooldown) {
		t.Fatalf("second call error = %v, want ErrCooldown", err)
	}
	var extErr *models.ExternalServiceError
	if !errors.As(err, &extErr) || !extErr.RateLimited {
		t.Errorf("cooldown should be reported as rate limited: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestGeminiClient_CooldownStartsAfterSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := geminiServer(t, &calls, status(http.StatusInternalServerError, "backend error"), okText("second"))
	c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL), WithCooldown(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Revise(context.Background(), testRequest()); err == nil || errors.Is(err, ErrCooldown) {
		t.Fatalf("first call error = %v, want upstream failure", err)
	}
	text, err := c.Revise(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("a failed call must not start the cooldown: %v", err)
	}
	if text != "second" {
		t.Errorf("text = %q, want %q", text, "second")
	}
	if _, err := c.Revise(context.Background(), testRequest()); !errors.Is(err, ErrCooldown) {
		t.Errorf("third call error = %v, want ErrCooldown", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestGeminiClient_RejectsWhileInFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		okText("revised")(w)
	}))
	t.Cleanup(srv.Close)

	c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL), WithCooldown(0))
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Revise(context.Background(), testRequest())
		done <- err
	}()
	<-started

	_, err = c.Revise(context.Background(), testRequest())
	var extErr *models.ExternalServiceError
	if !errors.Is(err, ErrBusy) || !errors.As(err, &extErr) || !extErr.RateLimited {
		t.Errorf("concurrent call error = %v, want rate-limited ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight call: %v", err)
	}
	if _, err := c.Revise(context.Background(), testRequest()); err != nil {
		t.Errorf("call after completion: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestGeminiClient_CancelDuringBackoff(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := geminiServer(t, &calls, status(http.StatusTooManyRequests, "rate limited"))
	c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL), WithCooldown(0),
		WithBackoff(func(int) time.Duration { return time.Hour }))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Revise(ctx, testRequest())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff did not honor cancellation")
	}
}

func TestGeminiClient_CircuitOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := geminiServer(t, &calls, status(http.StatusInternalServerError, "boom"))
	c, err := NewGeminiClient(testKey, WithBaseURL(srv.URL), WithCooldown(0), WithBreakerSettings(BreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Hour,
		MinRequests:  2,
		FailureRatio: 0.5,
	}))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.Revise(context.Background(), testRequest()); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}

	_, err = c.Revise(context.Background(), testRequest())
	var extErr *models.ExternalServiceError
	if !errors.As(err, &extErr) || extErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want breaker rejection", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2 (third rejected by breaker)", n)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		if d > maxBackoff {
			t.Errorf("Backoff(%d) = %v exceeds cap", attempt, d)
		}
		floor := time.Duration(1<<min(attempt, 4)) * time.Second
		if floor > maxBackoff {
			floor = maxBackoff
		}
		if d < floor {
			t.Errorf("Backoff(%d) = %v, want >= %v", attempt, d, floor)
		}
	}
}

// countingWriter returns a distinct text per call.
type countingWriter struct {
	calls atomic.Int32
	err   error
}

func (w *countingWriter) Revise(_ context.Context, req Request) (string, error) {
	n := w.calls.Add(1)
	if w.err != nil {
		return "", w.err
	}
	return req.Pair.EventID + "-" + string(rune('0'+n)), nil
}

func TestCachedWriter(t *testing.T) {
	db, err := OpenCache("")
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer db.Close()

	hits := testutil.ToFloat64(metrics.DescribeCache.WithLabelValues("hit"))
	misses := testutil.ToFloat64(metrics.DescribeCache.WithLabelValues("miss"))

	next := &countingWriter{}
	w := NewCachedWriter(next, db, DefaultModel, time.Hour)
	ctx := context.Background()

	first, err := w.Revise(ctx, testRequest())
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.Revise(ctx, testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if first != "E1-1" || second != first {
		t.Errorf("got %q then %q, want cached E1-1", first, second)
	}

	other := testRequest()
	other.Pair.EventID = "E2"
	other.Pair.EventName = "Another Show"
	if text, _ := w.Revise(ctx, other); text != "E2-2" {
		t.Errorf("different prompt should miss the cache, got %q", text)
	}
	if n := next.calls.Load(); n != 2 {
		t.Errorf("underlying calls = %d, want 2", n)
	}

	if got := testutil.ToFloat64(metrics.DescribeCache.WithLabelValues("hit")) - hits; got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.DescribeCache.WithLabelValues("miss")) - misses; got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
}

func TestCachedWriter_ModelInKey(t *testing.T) {
	t.Parallel()

	db, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer db.Close()

	next := &countingWriter{}
	a := NewCachedWriter(next, db, "model-a", 0)
	b := NewCachedWriter(next, db, "model-b", 0)

	_, _ = a.Revise(context.Background(), testRequest())
	_, _ = b.Revise(context.Background(), testRequest())
	if n := next.calls.Load(); n != 2 {
		t.Errorf("underlying calls = %d, want 2", n)
	}
}

func TestCachedWriter_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	db, err := OpenCache("")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	next := &countingWriter{err: errors.New("generator down")}
	w := NewCachedWriter(next, db, DefaultModel, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := w.Revise(context.Background(), testRequest()); err == nil {
			t.Fatal("expected error")
		}
	}
	if n := next.calls.Load(); n != 2 {
		t.Errorf("underlying calls = %d, want 2", n)
	}
}

func TestWriterFunc(t *testing.T) {
	t.Parallel()

	var w Writer = WriterFunc(func(_ context.Context, req Request) (string, error) {
		return "revised " + req.Listing.ID, nil
	})
	if text, _ := w.Revise(context.Background(), testRequest()); text != "revised L1" {
		t.Errorf("text = %q", text)
	}
}
