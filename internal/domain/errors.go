package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrCancelled is returned when an orchestration was aborted through
	// its cancellation token. It represents a neutral terminal state,
	// not an alarm-worthy failure.
	ErrCancelled = errors.New("operation cancelled")

	// ErrReauthRequired is the explicit re-auth sentinel. Any failure
	// wrapping it classifies as FailureAuthRequired and triggers the
	// credential re-sync collaborator.
	ErrReauthRequired = errors.New("credential re-authorization required")

	// ErrDailyQuotaExhausted is the explicit daily-quota sentinel. Unlike
	// transient rate limiting it is never retried.
	ErrDailyQuotaExhausted = errors.New("daily generation quota exhausted")
)
