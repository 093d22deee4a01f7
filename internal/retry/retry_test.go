package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PabloGalante/ask-michael/internal/retry"
)

var fast = retry.Policy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

func TestDoStopsOnSuccess(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fast, "test", func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := retry.Do(context.Background(), fast, "test", func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoNonRetryable(t *testing.T) {
	permanent := errors.New("bad uri")
	p := fast
	p.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := retry.Do(context.Background(), p, "test", func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("expected single call with permanent error, got %d calls, %v", calls, err)
	}
}

func TestDoZeroAttemptsCallsOnce(t *testing.T) {
	calls := 0
	_ = retry.Do(context.Background(), fast.WithAttempts(0), "test", func(context.Context) error {
		calls++
		return errors.New("x")
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retry.Policy{Attempts: 10, Backoff: time.Hour}

	calls := 0
	err := retry.Do(ctx, p, "test", func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
