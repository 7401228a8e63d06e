package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{
			name: "cancellation sentinel",
			err:  ErrCancelled,
			want: FailureCancelled,
		},
		{
			name: "wrapped cancellation sentinel",
			err:  fmt.Errorf("poll aborted: %w", ErrCancelled),
			want: FailureCancelled,
		},
		{
			name: "context cancellation",
			err:  context.Canceled,
			want: FailureCancelled,
		},
		{
			name: "status code 429",
			err:  &RemoteError{Code: 429, Message: "slow down"},
			want: FailureRateLimited,
		},
		{
			name: "resource exhausted status",
			err:  &RemoteError{Status: "RESOURCE_EXHAUSTED", Message: "try later"},
			want: FailureRateLimited,
		},
		{
			name: "quota substring is case-insensitive",
			err:  errors.New("Quota exceeded for generate requests"),
			want: FailureRateLimited,
		},
		{
			name: "resource_exhausted substring",
			err:  errors.New("rpc error: RESOURCE_EXHAUSTED while enqueueing"),
			want: FailureRateLimited,
		},
		{
			name: "entity not found message",
			err:  errors.New("The requested entity was not found."),
			want: FailureAuthRequired,
		},
		{
			name: "remote not found status",
			err:  &RemoteError{Code: 404, Status: "NOT_FOUND", Message: "no such project"},
			want: FailureAuthRequired,
		},
		{
			name: "re-auth sentinel",
			err:  fmt.Errorf("key rejected: %w", ErrReauthRequired),
			want: FailureAuthRequired,
		},
		{
			name: "daily quota sentinel beats quota substring",
			err:  fmt.Errorf("daily quota spent: %w", ErrDailyQuotaExhausted),
			want: FailureQuotaExhausted,
		},
		{
			name: "anything else is fatal",
			err:  errors.New("video decode failed"),
			want: FailureFatal,
		},
		{
			name: "nil error is fatal",
			err:  nil,
			want: FailureFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	err := &RemoteError{Code: 429, Message: "slow down"}
	first := Classify(err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(err))
	}
}

func TestNewFailureInfo(t *testing.T) {
	t.Parallel()

	t.Run("wraps and classifies", func(t *testing.T) {
		t.Parallel()

		underlying := &RemoteError{Code: 429, Message: "slow down"}
		fi := NewFailureInfo(underlying)

		require.NotNil(t, fi)
		assert.Equal(t, FailureRateLimited, fi.Kind)
		assert.Equal(t, underlying.Error(), fi.Message)

		var remote *RemoteError
		assert.True(t, errors.As(fi, &remote), "underlying error should remain reachable")
	})

	t.Run("idempotent on already classified failures", func(t *testing.T) {
		t.Parallel()

		fi := NewFailureInfo(errors.New("boom"))
		again := NewFailureInfo(fmt.Errorf("wrapped: %w", fi))
		assert.Same(t, fi, again)
	})

	t.Run("sentinel checks survive wrapping", func(t *testing.T) {
		t.Parallel()

		fi := NewFailureInfo(fmt.Errorf("aborted: %w", ErrCancelled))
		assert.Equal(t, FailureCancelled, fi.Kind)
		assert.True(t, errors.Is(fi, ErrCancelled))
	})
}
