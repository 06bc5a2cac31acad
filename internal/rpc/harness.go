// Package rpc provides the shared retry, backoff, and throttling harness
// that outbound calls to Drive, Dropbox, and Sheets run through (object
// store calls are issued directly, without it).
// A single Harness is built once per run and shared across writers so the
// client-side rate limiter and the read cache apply globally, not per
// client.
package rpc

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimitError is the error shape callers should wrap transient
// upstream failures in so the Harness knows to retry. RetryAfter, when
// set, overrides the computed backoff for that attempt.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err (or a RateLimitError it wraps) should be
// retried: HTTP 429, any 5xx, or a bare network error with no status code.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		if rle.StatusCode == 0 {
			return true
		}
		return rle.StatusCode == 429 || rle.StatusCode >= 500
	}
	return false
}

// Config tunes the harness's retry, backoff, and throttle behavior.
type Config struct {
	MaxRetries   int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	// ThrottleInterval is the minimum interval between outgoing calls
	// (e.g. "one call every 2 seconds"), not an events-per-second rate.
	// Zero disables client-side throttling.
	ThrottleInterval time.Duration
	ThrottleBurst    int
}

// Harness wraps outbound calls with a client-side token-bucket throttle
// plus retry-with-full-jitter-backoff on retryable errors.
type Harness struct {
	cfg     Config
	logger  zerolog.Logger
	limiter *rate.Limiter
	Cache   *ReadCache
}

// New builds a Harness. A zero ThrottleInterval disables the limiter so
// calls pass straight through to the retry loop.
func New(cfg Config, logger zerolog.Logger, cache *ReadCache) *Harness {
	h := &Harness{cfg: cfg, logger: logger.With().Str("component", "rpc_harness").Logger(), Cache: cache}
	if cfg.ThrottleInterval > 0 {
		burst := cfg.ThrottleBurst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Every(cfg.ThrottleInterval), burst)
	}
	return h
}

// Do runs fn, retrying on retryable errors with exponential backoff and
// full jitter: BackoffBase*2^attempt scaled by a random factor in
// [0.5, 1.5), capped at BackoffMax. A RateLimitError's RetryAfter, when set, is used
// verbatim instead of the computed delay. label is used only for logging.
func (h *Harness) Do(ctx context.Context, label string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	var lastErr error
	maxRetries := h.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if h.limiter != nil {
			if err := h.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == maxRetries-1 {
			return nil, err
		}

		delay := h.backoffDelay(attempt)
		var rle *RateLimitError
		if errors.As(err, &rle) && rle.RetryAfter > 0 {
			delay = rle.RetryAfter
		}

		h.logger.Warn().
			Str("call", label).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("retrying after transient rpc error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (h *Harness) backoffDelay(attempt int) time.Duration {
	base := h.cfg.BackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	max := h.cfg.BackoffMax
	if max <= 0 {
		max = 30 * time.Second
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	jitter := 0.5 + rand.Float64()
	scaled := time.Duration(float64(d) * jitter)
	if scaled > max {
		scaled = max
	}
	return scaled
}
