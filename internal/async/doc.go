// Package async implements the orchestration primitives for driving
// remote long-running operations: a cooperative cancellation token, a
// bounded exponential-backoff retry executor specialized for rate-limit
// failures, a poll-until-done operation poller, and a synthetic progress
// estimator.
//
// The primitives compose without sharing mutable state. One orchestration
// owns exactly one token and one estimator; concurrent orchestrations
// never interact.
package async
