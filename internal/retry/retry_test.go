package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/apierr"
)

func fastOptions(maxRetries int) Options {
	return Options{
		MaxRetries:    maxRetries,
		BaseDelay:     1 * time.Millisecond,
		MaxDelay:      50 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

// ─── Delay ──────────────────────────────────────────────────────────────────

func TestDelay_BackoffBounds(t *testing.T) {
	opts := Options{
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}

	for attempt := 0; attempt <= 5; attempt++ {
		want := 100 * time.Millisecond << attempt
		for i := 0; i < 50; i++ {
			d := opts.Delay(attempt)
			if d < want {
				t.Fatalf("Delay(%d) = %s, below base %s", attempt, d, want)
			}
			max := want + want/10
			if d > max {
				t.Fatalf("Delay(%d) = %s, above base+10%% jitter %s", attempt, d, max)
			}
		}
	}
}

func TestDelay_CappedAtMax(t *testing.T) {
	opts := Options{
		BaseDelay:     1 * time.Second,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}

	for i := 0; i < 50; i++ {
		d := opts.Delay(10) // uncapped would be ~17 minutes
		if d < 2*time.Second {
			t.Fatalf("Delay(10) = %s, below cap", d)
		}
		if d > 2*time.Second+200*time.Millisecond {
			t.Fatalf("Delay(10) = %s, above cap+10%% jitter", d)
		}
	}
}

// ─── Do ─────────────────────────────────────────────────────────────────────

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastOptions(3), func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if got != 42 {
		t.Errorf("result = %d, want 42", got)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesServerErrorsThenSucceeds(t *testing.T) {
	// 500 twice, then success: must succeed on the 3rd attempt.
	calls := 0
	got, err := Do(context.Background(), fastOptions(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &apierr.APIError{Status: 500, Message: "boom"}
		}
		return "created", nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if got != "created" {
		t.Errorf("result = %q, want %q", got, "created")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ClientErrorFailsImmediately(t *testing.T) {
	calls := 0
	start := time.Now()
	opts := Options{
		MaxRetries:    3,
		BaseDelay:     200 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
	_, err := Do(context.Background(), opts, func(ctx context.Context) (int, error) {
		calls++
		return 0, &apierr.APIError{Status: 404, Message: "not found"}
	})
	if err == nil {
		t.Fatal("Do() should fail")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries for 404)", calls)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Do() slept %s before giving up on a non-retryable error", elapsed)
	}
	var ae *apierr.APIError
	if !errors.As(err, &ae) || ae.Status != 404 {
		t.Errorf("err = %v, want the original 404", err)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastOptions(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, &apierr.NetworkError{Cause: errors.New("refused")}
	})
	if err == nil {
		t.Fatal("Do() should fail after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (maxRetries+1)", calls)
	}
}

func TestDo_CustomPredicate(t *testing.T) {
	sentinel := errors.New("no retry")
	calls := 0
	opts := fastOptions(5)
	opts.ShouldRetry = func(err error) bool { return !errors.Is(err, sentinel) }

	_, err := Do(context.Background(), opts, func(ctx context.Context) (int, error) {
		calls++
		return 0, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := Options{
		MaxRetries:    3,
		BaseDelay:     5 * time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}

	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, opts, func(ctx context.Context) (int, error) {
			return 0, &apierr.APIError{Status: 503}
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do() did not abort the backoff sleep on cancellation")
	}
}
