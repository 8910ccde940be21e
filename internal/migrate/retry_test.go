package migrate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{Attempts: 3, Delay: time.Millisecond, Backoff: 2}, "op", func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryFatalStopsImmediately(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{Attempts: 3, Delay: time.Millisecond, Backoff: 2}, "op", func() error {
		calls++
		return endpoint.WrapError(endpoint.CodeAuthInvalid, false, fmt.Errorf("bad token"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on fatal)", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{Attempts: 3, Delay: time.Millisecond, Backoff: 2}, "op", func() error {
		calls++
		return fmt.Errorf("timeout")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, RetryConfig{Attempts: 3, Delay: time.Minute, Backoff: 2}, "op", func() error {
		return fmt.Errorf("timeout")
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
