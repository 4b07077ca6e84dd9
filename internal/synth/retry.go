package synth

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
)

// RetryPolicy is pure configuration for retrying transient synthesis
// failures. MaxRetries counts retries, so a call makes at most
// MaxRetries+1 attempts.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    2,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Delay returns the wait before retry number attempt (0-based):
// min(InitialDelay * BackoffFactor^attempt, MaxDelay).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(factor, float64(attempt)))
	if p.MaxDelay > 0 && (d > p.MaxDelay || d < 0) {
		return p.MaxDelay
	}
	return d
}

// Retrying wraps a Client with a RetryPolicy.
type Retrying struct {
	next   Client
	policy RetryPolicy
	logger *log.Logger
}

// NewRetrying wraps next with policy.
func NewRetrying(next Client, policy RetryPolicy) *Retrying {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Retrying{
		next:   next,
		policy: policy,
		logger: log.WithPrefix("synth"),
	}
}

// Synthesize calls the wrapped client, retrying network and server errors.
// Empty audio and cancellation end the call immediately.
func (r *Retrying) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.policy.Delay(attempt - 1)
			r.logger.Debug("retrying synthesis", "attempt", attempt+1, "delay", delay, "error", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, aborted(ctx)
			case <-timer.C:
			}
		}

		if ctx.Err() != nil {
			return nil, aborted(ctx)
		}

		audio, err := r.next.Synthesize(ctx, req)
		if err == nil {
			if len(audio) == 0 {
				return nil, ErrEmptyAudio
			}
			return audio, nil
		}

		if ctx.Err() != nil || IsAborted(err) {
			return nil, aborted(ctx)
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	r.logger.Warn("synthesis failed", "attempts", r.policy.MaxRetries+1, "error", lastErr)
	return nil, fmt.Errorf("synthesis failed after %d attempts: %w", r.policy.MaxRetries+1, lastErr)
}
