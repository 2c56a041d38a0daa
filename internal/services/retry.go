package services

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy bounds a retry loop around an external call.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff: base * 2^attempt.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff before jitter.
	MaxDelay time.Duration
	// OnAttempt, when set, runs before every attempt. The pipeline wires
	// the liveness heartbeat through it so every external call boundary
	// refreshes the liveness record.
	OnAttempt func(attempt int)
	// Sleep overrides the delay function in tests. Defaults to a
	// context-aware time.After wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = 30 * time.Second
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Retry runs fn until it succeeds, returns a terminal error, or the attempt
// budget is exhausted. Terminal errors (per IsTerminal) are returned
// immediately; transient errors trigger exponential backoff with jitter.
// The last observed error is returned on exhaustion.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	p := policy.normalized()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.OnAttempt != nil {
			p.OnAttempt(attempt)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsTerminal(err) {
			return err
		}
		lastErr = err

		if attempt == p.MaxAttempts-1 {
			break
		}
		if err := p.Sleep(ctx, BackoffDelay(attempt, p.BaseDelay, p.MaxDelay)); err != nil {
			return err
		}
	}
	return lastErr
}

// BackoffDelay computes base * 2^attempt capped at max, plus random jitter
// in [0, base).
func BackoffDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	delay := base << uint(attempt)
	if delay > max || delay <= 0 {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(base)))
	return delay + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
