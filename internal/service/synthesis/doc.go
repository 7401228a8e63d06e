// Package synthesis contains the task orchestrator: the per-feature
// façade that sequences build request -> submit -> poll -> download for
// one generation job, with a fresh cancellation token and progress
// estimator per invocation.
package synthesis
