package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FailureKind is the closed taxonomy of failure classifications. All
// downstream logic (retry decisions, user-facing messaging, the credential
// re-sync flow) switches on the kind, never on raw error text.
type FailureKind string

// Possible failure classifications.
const (
	// FailureCancelled means the orchestration's cancellation token was
	// aborted, or the underlying failure is explicitly a cancellation.
	FailureCancelled FailureKind = "cancelled"

	// FailureRateLimited means the remote service throttled the request.
	// This is the only kind the retry executor recovers from locally.
	FailureRateLimited FailureKind = "rate_limited"

	// FailureAuthRequired means the configured credential was rejected
	// and the credential re-sync collaborator should be invoked.
	FailureAuthRequired FailureKind = "auth_required"

	// FailureQuotaExhausted means the daily quota is spent. Distinct from
	// FailureRateLimited: it is terminal and never retried.
	FailureQuotaExhausted FailureKind = "quota_exhausted"

	// FailureFatal covers everything else; it is terminal and surfaced
	// verbatim.
	FailureFatal FailureKind = "fatal"
)

// RemoteError carries the status fields of a remote service failure
// across the platform boundary. SDK and transport errors are converted
// into RemoteError before they reach the classifier so this package
// never depends on any client library.
type RemoteError struct {
	// Code is the HTTP status code, if one was observed.
	Code int

	// Status is the canonical status string (e.g. "RESOURCE_EXHAUSTED").
	Status string

	// Message is the raw failure message as reported by the service.
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("remote service error %d (%s): %s", e.Code, e.Status, e.Message)
	}
	if e.Status != "" {
		return fmt.Sprintf("remote service error (%s): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote service error: %s", e.Message)
}

// FailureInfo is a classified failure: the taxonomy tag plus the raw
// underlying message, retained so terminal errors can be surfaced
// verbatim.
type FailureInfo struct {
	Kind    FailureKind
	Message string

	err error
}

// NewFailureInfo classifies err and wraps it. If err is already a
// *FailureInfo it is returned unchanged so classification is stable
// across layers.
func NewFailureInfo(err error) *FailureInfo {
	var fi *FailureInfo
	if errors.As(err, &fi) {
		return fi
	}
	return &FailureInfo{
		Kind:    Classify(err),
		Message: err.Error(),
		err:     err,
	}
}

func (f *FailureInfo) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap exposes the underlying error so errors.Is checks against the
// domain sentinels keep working after wrapping.
func (f *FailureInfo) Unwrap() error {
	return f.err
}

// Substring triggers, matched case-insensitively against the raw failure
// message. The "entity was not found" phrasing is how the remote service
// reports a rejected or stale API key.
const (
	needleQuota             = "quota"
	needleResourceExhausted = "resource_exhausted"
	needleEntityNotFound    = "entity was not found"
)

// Classify maps an arbitrary failure into the closed taxonomy. It is a
// pure function over the failure's message, status, and code fields; it
// never mutates a cancellation token and never triggers retries itself.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureFatal
	}

	// Explicit sentinels first: a daily-quota message usually contains
	// the word "quota" as well, and must not fall into the transient
	// rate-limit bucket.
	switch {
	case errors.Is(err, ErrCancelled),
		errors.Is(err, context.Canceled):
		return FailureCancelled
	case errors.Is(err, ErrDailyQuotaExhausted):
		return FailureQuotaExhausted
	case errors.Is(err, ErrReauthRequired):
		return FailureAuthRequired
	}

	var fi *FailureInfo
	if errors.As(err, &fi) {
		return fi.Kind
	}

	msg := strings.ToLower(err.Error())

	var remote *RemoteError
	if errors.As(err, &remote) {
		if remote.Code == http.StatusTooManyRequests {
			return FailureRateLimited
		}
		if strings.EqualFold(remote.Status, "RESOURCE_EXHAUSTED") {
			return FailureRateLimited
		}
		if strings.EqualFold(remote.Status, "NOT_FOUND") {
			return FailureAuthRequired
		}
	}

	if strings.Contains(msg, needleEntityNotFound) {
		return FailureAuthRequired
	}
	if strings.Contains(msg, needleQuota) || strings.Contains(msg, needleResourceExhausted) {
		return FailureRateLimited
	}

	return FailureFatal
}
