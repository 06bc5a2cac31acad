package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"429", &RateLimitError{StatusCode: 429, Err: errors.New("rate limited")}, true},
		{"500", &RateLimitError{StatusCode: 500, Err: errors.New("server error")}, true},
		{"503", &RateLimitError{StatusCode: 503, Err: errors.New("unavailable")}, true},
		{"404", &RateLimitError{StatusCode: 404, Err: errors.New("not found")}, false},
		{"no status code", &RateLimitError{Err: errors.New("network blip")}, true},
	}
	for _, c := range cases {
		if got := IsRetryable(c.err); got != c.want {
			t.Errorf("%s: IsRetryable() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestBackoffDelayMonotonicWithinBounds(t *testing.T) {
	h := New(Config{BackoffBase: 100 * time.Millisecond, BackoffMax: 2 * time.Second}, zerolog.Nop(), nil)

	for attempt := 0; attempt < 8; attempt++ {
		d := h.backoffDelay(attempt)
		if d <= 0 {
			t.Fatalf("attempt %d: delay must be positive, got %v", attempt, d)
		}
		if d > h.cfg.BackoffMax {
			t.Fatalf("attempt %d: delay %v exceeds BackoffMax %v", attempt, d, h.cfg.BackoffMax)
		}
	}
}

func TestBackoffDelayDefaultsWhenUnconfigured(t *testing.T) {
	h := New(Config{}, zerolog.Nop(), nil)
	d := h.backoffDelay(0)
	if d <= 0 || d > 30*time.Second {
		t.Fatalf("expected a delay within the default bounds, got %v", d)
	}
}

func TestDoReturnsOnFirstSuccess(t *testing.T) {
	h := New(Config{MaxRetries: 3}, zerolog.Nop(), nil)
	calls := 0
	result, err := h.Do(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("unexpected result: %v", result)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call on success, got %d", calls)
	}
}

func TestDoRetriesRetryableErrorsThenSucceeds(t *testing.T) {
	h := New(Config{MaxRetries: 3, BackoffBase: time.Millisecond, BackoffMax: 5 * time.Millisecond}, zerolog.Nop(), nil)
	calls := 0
	result, err := h.Do(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, &RateLimitError{StatusCode: 503, Err: errors.New("unavailable")}
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "recovered" {
		t.Fatalf("unexpected result: %v", result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls (2 failures + 1 success), got %d", calls)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	h := New(Config{MaxRetries: 5}, zerolog.Nop(), nil)
	calls := 0
	wantErr := errors.New("permanent failure")
	_, err := h.Do(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the permanent error to be returned, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-retryable error should not be retried, got %d calls", calls)
	}
}

func TestDoExhaustsMaxRetries(t *testing.T) {
	h := New(Config{MaxRetries: 3, BackoffBase: time.Millisecond, BackoffMax: 2 * time.Millisecond}, zerolog.Nop(), nil)
	calls := 0
	_, err := h.Do(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, &RateLimitError{StatusCode: 500, Err: errors.New("still down")}
	})
	if err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
	if calls != 3 {
		t.Fatalf("expected exactly MaxRetries calls, got %d", calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	h := New(Config{MaxRetries: 5, BackoffBase: time.Second, BackoffMax: time.Second}, zerolog.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	_, err := h.Do(ctx, "test", func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, &RateLimitError{StatusCode: 500, Err: errors.New("down")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDoUsesRetryAfterOverride(t *testing.T) {
	h := New(Config{MaxRetries: 2, BackoffBase: time.Second, BackoffMax: time.Second}, zerolog.Nop(), nil)
	start := time.Now()
	calls := 0
	_, err := h.Do(context.Background(), "test", func(ctx context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, &RateLimitError{StatusCode: 429, RetryAfter: 5 * time.Millisecond, Err: errors.New("throttled")}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("expected the short RetryAfter override to be used, took %v", elapsed)
	}
}
