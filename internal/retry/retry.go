// Package retry runs start-up operations (store connections, index builds)
// with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/PabloGalante/ask-michael/internal/observability"
)

// Policy controls how often and how long an operation is retried.
type Policy struct {
	// Attempts is the total number of calls, the first one included.
	// Values below 1 mean a single call.
	Attempts int
	// Backoff is the wait after the first failure. It doubles up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Retryable classifies errors. Nil retries every error.
	Retryable func(error) bool
}

// Startup is used for connecting to storage when the server boots.
var Startup = Policy{
	Attempts:   5,
	Backoff:    time.Second,
	MaxBackoff: 15 * time.Second,
}

// WithAttempts returns a copy of p with the attempt count replaced.
func (p Policy) WithAttempts(n int) Policy {
	p.Attempts = n
	return p
}

// Do calls fn until it succeeds, the policy is exhausted, a non-retryable
// error is returned or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = Startup.Backoff
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = p.Backoff
	}

	log := observability.LoggerFromContext(ctx).With("op", op)
	wait := p.Backoff
	var err error

	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}

		if err = fn(ctx); err == nil {
			if attempt > 1 {
				log.Info("retry succeeded", "attempt", attempt)
			}
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.Attempts {
			log.Error("retry exhausted", "attempts", attempt, "error", err)
			return err
		}

		log.Warn("attempt failed, retrying", "attempt", attempt, "max", p.Attempts, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}

		wait *= 2
		if wait > p.MaxBackoff {
			wait = p.MaxBackoff
		}
	}
}
