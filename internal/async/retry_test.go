package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/reel-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastPolicy keeps backoff sleeps negligible so tests stay quick.
func fastPolicy(maxAttempts int) BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		MaxJitter:   time.Millisecond,
	}
}

func TestRetryReturnsSuccessAfterTransientFailures(t *testing.T) {
	t.Parallel()

	// Every sequence of 429s shorter than the budget must end in the
	// action's own success.
	for _, failures := range []int{0, 1, 2, 5} {
		failures := failures
		calls := 0
		result, err := Retry(context.Background(), NewCancelToken(), fastPolicy(7), testLogger(),
			func(ctx context.Context) (string, error) {
				calls++
				if calls <= failures {
					return "", &domain.RemoteError{Code: 429, Message: "slow down"}
				}
				return "ok", nil
			})

		require.NoError(t, err, "failures=%d", failures)
		assert.Equal(t, "ok", result)
		assert.Equal(t, failures+1, calls)
	}
}

func TestRetryPropagatesNonRetryableImmediately(t *testing.T) {
	t.Parallel()

	fatal := errors.New("video decode failed")
	calls := 0
	_, err := Retry(context.Background(), NewCancelToken(), fastPolicy(7), testLogger(),
		func(ctx context.Context) (int, error) {
			calls++
			return 0, fatal
		})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "fatal failures must not be retried")
}

func TestRetryDailyQuotaIsNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Retry(context.Background(), NewCancelToken(), fastPolicy(7), testLogger(),
		func(ctx context.Context) (int, error) {
			calls++
			return 0, domain.ErrDailyQuotaExhausted
		})

	assert.ErrorIs(t, err, domain.ErrDailyQuotaExhausted)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustedBudgetPropagatesLastFailureUnchanged(t *testing.T) {
	t.Parallel()

	last := &domain.RemoteError{Code: 429, Message: "still throttled"}
	calls := 0
	_, err := Retry(context.Background(), NewCancelToken(), fastPolicy(3), testLogger(),
		func(ctx context.Context) (int, error) {
			calls++
			return 0, last
		})

	assert.Equal(t, 3, calls)

	// The last observed failure, not a synthetic "exhausted" error, so
	// the caller's classification still applies.
	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Same(t, last, remote)
	assert.Equal(t, domain.FailureRateLimited, domain.Classify(err))
}

func TestRetryAbortDuringBackoffReturnsPromptly(t *testing.T) {
	t.Parallel()

	token := NewCancelToken()
	policy := BackoffPolicy{
		MaxAttempts: 7,
		BaseDelay:   10 * time.Second, // long enough that finishing the sleep would fail the test
		MaxDelay:    10 * time.Second,
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Retry(context.Background(), token, policy, testLogger(),
			func(ctx context.Context) (int, error) {
				close(started)
				return 0, &domain.RemoteError{Code: 429, Message: "slow down"}
			})
		done <- err
	}()

	<-started
	time.Sleep(20 * time.Millisecond) // let the retry reach its backoff sleep
	token.Abort()

	select {
	case err := <-done:
		assert.Equal(t, domain.FailureCancelled, domain.Classify(err))
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not abort the backoff sleep promptly")
	}
}

func TestRetryAbortedTokenSkipsAction(t *testing.T) {
	t.Parallel()

	token := NewCancelToken()
	token.Abort()

	calls := 0
	_, err := Retry(context.Background(), token, fastPolicy(7), testLogger(),
		func(ctx context.Context) (int, error) {
			calls++
			return 0, nil
		})

	assert.Equal(t, 0, calls)
	assert.Equal(t, domain.FailureCancelled, domain.Classify(err))
}

func TestRetryAbortCancelsInFlightAction(t *testing.T) {
	t.Parallel()

	token := NewCancelToken()

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Retry(context.Background(), token, fastPolicy(7), testLogger(),
			func(ctx context.Context) (int, error) {
				close(started)
				// Models a transport call that only returns when its
				// context is cancelled.
				<-ctx.Done()
				return 0, ctx.Err()
			})
		done <- err
	}()

	<-started
	start := time.Now()
	token.Abort()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, domain.FailureCancelled, domain.Classify(err))
		assert.Less(t, time.Since(start), time.Second, "abort must reach the in-flight call")
	case <-time.After(2 * time.Second):
		t.Fatal("abort did not cancel the in-flight action")
	}
}

func TestWithDefaultsFillsJitter(t *testing.T) {
	t.Parallel()

	// A partially specified policy must still jitter its backoff so
	// concurrent orchestrations do not retry in lockstep.
	policy := BackoffPolicy{MaxAttempts: 7, BaseDelay: 5 * time.Second}.withDefaults()
	require.Equal(t, DefaultMaxJitter, policy.MaxJitter)

	rng := rand.New(rand.NewSource(1))
	seen := make(map[time.Duration]struct{})
	for i := 0; i < 50; i++ {
		seen[policy.delay(0, rng)] = struct{}{}
	}
	assert.Greater(t, len(seen), 1, "backoff delays must not be deterministic")
}

func TestBackoffDelayBounds(t *testing.T) {
	t.Parallel()

	policy := DefaultBackoffPolicy()
	rng := rand.New(rand.NewSource(1))

	prevBase := time.Duration(0)
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		base := policy.BaseDelay << uint(attempt)
		if base > policy.MaxDelay || base <= 0 {
			base = policy.MaxDelay
		}
		assert.GreaterOrEqual(t, base, prevBase, "expected delay must be non-decreasing")
		prevBase = base

		for i := 0; i < 100; i++ {
			d := policy.delay(attempt, rng)
			assert.GreaterOrEqual(t, d, base)
			assert.LessOrEqual(t, d, policy.MaxDelay+policy.MaxJitter)
		}
	}
}
