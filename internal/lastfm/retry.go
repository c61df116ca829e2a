package lastfm

import (
	"context"
	"time"
)

// RetryConfig tunes the retry driver's backoff.
type RetryConfig struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
}

// DefaultRetryConfig is three retries, a 5s base delay, and a 300s
// ceiling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  5 * time.Second,
		MaxDelay:   300 * time.Second,
	}
}

// RetryOutcome reports how many attempts a retried operation took and
// how much time was spent sleeping between them.
type RetryOutcome struct {
	Attempts  int
	RetryTime time.Duration
}

// onRateLimited is invoked once per observed rate-limit, before the
// driver sleeps, so the caller can publish a [ClientEvent].
type onRateLimited func(delay time.Duration, lfErr *Error)

// withRetry runs op, retrying only on KindRateLimit errors up to
// cfg.MaxRetries times. The sleep before attempt k+1 is
// min(MaxDelay, retryAfter + BaseDelay*2^k) (a MaxDelay below
// retryAfter wins), and honors ctx cancellation. Any other error from op
// propagates immediately without retry.
func withRetry[T any](ctx context.Context, cfg RetryConfig, notify onRateLimited, op func(ctx context.Context) (T, error)) (T, RetryOutcome, error) {
	var zero T
	outcome := RetryOutcome{}

	attempt := 0
	for {
		outcome.Attempts++
		val, err := op(ctx)
		if err == nil {
			return val, outcome, nil
		}

		lfErr, ok := IsRateLimit(err)
		if !ok {
			return zero, outcome, err
		}

		if attempt >= cfg.MaxRetries {
			return zero, outcome, err
		}

		delay := backoffDelay(cfg, lfErr.RetryAfterSeconds, attempt)
		if notify != nil {
			notify(delay, lfErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, outcome, ctx.Err()
		case <-timer.C:
		}
		outcome.RetryTime += delay
		attempt++
	}
}

// backoffDelay computes min(MaxDelay, retryAfter + BaseDelay*2^attempt).
// The sum is floored at retryAfter before the MaxDelay cap is applied,
// so a MaxDelay below retryAfter yields MaxDelay.
func backoffDelay(cfg RetryConfig, retryAfterSeconds, attempt int) time.Duration {
	retryAfter := time.Duration(retryAfterSeconds) * time.Second
	backoff := cfg.BaseDelay << uint(attempt) // BaseDelay * 2^attempt
	delay := retryAfter + backoff
	if delay < retryAfter {
		delay = retryAfter
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
