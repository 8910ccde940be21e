package migrate

import (
	"context"
	"log"
	"time"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// RetryConfig controls the exponential-backoff retry wrapper.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
	Backoff  float64
}

// DefaultRetry mirrors the pipeline defaults: 3 attempts, 1s initial
// delay, doubling each attempt.
var DefaultRetry = RetryConfig{Attempts: 3, Delay: time.Second, Backoff: 2.0}

// WithRetry runs fn up to cfg.Attempts times, backing off between
// attempts. Fatal errors stop immediately; so does context cancellation.
func WithRetry(ctx context.Context, cfg RetryConfig, label string, fn func() error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	delay := cfg.Delay
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if endpoint.IsFatal(lastErr) || attempt == cfg.Attempts {
			return lastErr
		}

		log.Printf("%s failed (attempt %d/%d), retrying in %s: %v", label, attempt, cfg.Attempts, delay, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * cfg.Backoff)
	}
	return lastErr
}
