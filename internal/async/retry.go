package async

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/phrazzld/reel-api/internal/domain"
)

// Default backoff policy values. The base and jitter spread retries so
// concurrent orchestrations do not produce synchronized retry storms
// against the remote service.
const (
	DefaultMaxAttempts = 7
	DefaultBaseDelay   = 5 * time.Second
	DefaultMaxDelay    = 60 * time.Second
	DefaultMaxJitter   = 3 * time.Second
)

// BackoffPolicy bounds the retry executor: attempt budget and the shape
// of the exponential backoff between attempts.
type BackoffPolicy struct {
	// MaxAttempts is the total attempt budget, including the first call.
	MaxAttempts int

	// BaseDelay is the backoff unit: attempt i sleeps
	// min(MaxDelay, BaseDelay << i) plus jitter.
	BaseDelay time.Duration

	// MaxDelay caps the exponential term.
	MaxDelay time.Duration

	// MaxJitter is the upper bound of the random jitter added to every
	// backoff sleep.
	MaxJitter time.Duration
}

// DefaultBackoffPolicy returns the policy used when callers pass the
// zero value.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		MaxJitter:   DefaultMaxJitter,
	}
}

// delay computes the backoff before retrying attempt (0-based). The
// expectation is non-decreasing in the attempt number and bounded above
// by MaxDelay + MaxJitter.
func (p BackoffPolicy) delay(attempt int, rng *rand.Rand) time.Duration {
	backoff := p.BaseDelay << uint(attempt)
	if backoff > p.MaxDelay || backoff <= 0 {
		backoff = p.MaxDelay
	}
	var jitter time.Duration
	if p.MaxJitter > 0 {
		jitter = time.Duration(rng.Int63n(int64(p.MaxJitter)))
	}
	return backoff + jitter
}

func (p BackoffPolicy) withDefaults() BackoffPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxJitter <= 0 {
		p.MaxJitter = DefaultMaxJitter
	}
	return p
}

// Retry invokes action until it succeeds, a non-retryable failure
// occurs, or the attempt budget is exhausted. Only failures classified
// as rate limiting are retried; everything else propagates immediately.
// When the budget runs out the last observed failure is propagated
// unchanged so the caller's classification logic still applies.
//
// The token is checked before every attempt, bound into the context
// each attempt runs under, and watched during every backoff sleep: an
// abort cancels an in-flight action mid-call and interrupts a sleep
// instead of finishing the wait.
func Retry[T any](
	ctx context.Context,
	token *CancelToken,
	policy BackoffPolicy,
	logger *slog.Logger,
	action func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	policy = policy.withDefaults()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if token != nil && token.Aborted() {
			return zero, fmt.Errorf("retry aborted: %w", domain.ErrCancelled)
		}
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry aborted: %w", err)
		}

		// The token is bound into the attempt's context so an abort
		// propagates into in-flight transport calls instead of waiting
		// for them to return on their own.
		actionCtx := ctx
		cancelAction := func() {}
		if token != nil {
			actionCtx, cancelAction = token.Bind(ctx)
		}
		result, err := action(actionCtx)
		cancelAction()
		if err == nil {
			return result, nil
		}
		lastErr = err

		kind := domain.Classify(err)
		if kind != domain.FailureRateLimited {
			return zero, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.delay(attempt, rng)
		logger.WarnContext(ctx, "rate limited, backing off before retry",
			"attempt", attempt+1,
			"max_attempts", policy.MaxAttempts,
			"delay", delay)

		timer := time.NewTimer(delay)
		var tokenDone <-chan struct{}
		if token != nil {
			tokenDone = token.Done()
		}
		select {
		case <-timer.C:
		case <-tokenDone:
			timer.Stop()
			return zero, fmt.Errorf("retry aborted during backoff: %w", domain.ErrCancelled)
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("retry aborted during backoff: %w", ctx.Err())
		}
	}

	return zero, lastErr
}
