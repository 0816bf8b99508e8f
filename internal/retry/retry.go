// Package retry runs operations with bounded retries and exponential
// backoff plus jitter. The backoff sleep is cancellable through the
// caller's context.
package retry

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/taskdeck/taskdeck/internal/apierr"
)

// jitterFraction caps the random addition at 10% of the computed delay,
// so retries from independent clients don't synchronize.
const jitterFraction = 0.10

// Options configures retry behavior for a single operation.
type Options struct {
	MaxRetries    int           // retries after the first attempt
	BaseDelay     time.Duration // delay before the first retry
	MaxDelay      time.Duration // cap on the computed delay
	BackoffFactor float64       // multiplier applied per attempt
	ShouldRetry   func(error) bool
}

// DefaultOptions returns production retry defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetries:    3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		ShouldRetry:   apierr.IsRecoverable,
	}
}

// Delay computes the backoff delay before retry attempt n (0-indexed):
// min(base * factor^n, max) plus up to 10% random jitter.
func (o Options) Delay(attempt int) time.Duration {
	base := o.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	factor := o.BackoffFactor
	if factor < 1 {
		factor = 2.0
	}
	d := time.Duration(float64(base) * math.Pow(factor, float64(attempt)))
	if o.MaxDelay > 0 && d > o.MaxDelay {
		d = o.MaxDelay
	}
	jitter := time.Duration(rand.Float64() * jitterFraction * float64(d))
	return d + jitter
}

// Do runs op up to MaxRetries+1 times. After a failure it consults
// ShouldRetry; a non-retryable error, or the last attempt's error, is
// returned immediately with no further delay. The inter-attempt sleep is
// aborted if ctx is cancelled.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	shouldRetry := opts.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = apierr.IsRecoverable
	}

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == opts.MaxRetries || !shouldRetry(err) {
			return zero, err
		}

		delay := opts.Delay(attempt)
		log.Printf("[retry] attempt %d/%d failed: %v, retrying in %s",
			attempt+1, opts.MaxRetries+1, err, delay.Round(time.Millisecond))

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
