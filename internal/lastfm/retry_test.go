package lastfm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsImmediately(t *testing.T) {
	calls := 0
	val, outcome, err := withRetry(context.Background(), DefaultRetryConfig(), nil, func(ctx context.Context) (int, error) {
		calls++
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 7 || calls != 1 || outcome.Attempts != 1 {
		t.Errorf("val=%d calls=%d attempts=%d", val, calls, outcome.Attempts)
	}
}

func TestWithRetryNonRateLimitPropagatesImmediately(t *testing.T) {
	sentinel := NewAuthError("nope")
	calls := 0
	_, _, err := withRetry(context.Background(), DefaultRetryConfig(), nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-rate-limit errors must not retry, got %d calls", calls)
	}
}

func TestWithRetryExhaustsBudgetAndReturnsLastRateLimit(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	calls := 0
	_, outcome, err := withRetry(context.Background(), cfg, nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, NewRateLimitError(0)
	})
	if _, ok := IsRateLimit(err); !ok {
		t.Fatalf("expected a rate-limit error on exhaustion, got %v", err)
	}
	if calls != cfg.MaxRetries+1 {
		t.Errorf("expected %d attempts, got %d", cfg.MaxRetries+1, calls)
	}
	if outcome.Attempts != calls {
		t.Errorf("outcome.Attempts = %d, want %d", outcome.Attempts, calls)
	}
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, _, err := withRetry(ctx, cfg, nil, func(ctx context.Context) (int, error) {
		return 0, NewRateLimitError(0)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffDelayFormula(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 5 * time.Second, MaxDelay: 300 * time.Second}

	if got, want := backoffDelay(cfg, 0, 0), 5*time.Second; got != want {
		t.Errorf("attempt 0: got %v, want %v", got, want)
	}
	if got, want := backoffDelay(cfg, 0, 2), 20*time.Second; got != want {
		t.Errorf("attempt 2: got %v, want %v", got, want)
	}
	if got, want := backoffDelay(cfg, 100, 0), 105*time.Second; got != want {
		t.Errorf("retry_after floor: got %v, want %v", got, want)
	}
	if got, want := backoffDelay(cfg, 0, 10), 300*time.Second; got != want {
		t.Errorf("cap at MaxDelay: got %v, want %v", got, want)
	}
}
