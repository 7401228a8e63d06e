// Package events defines the job lifecycle events emitted by the
// synthesis orchestrator and a simple in-memory emitter for dispatching
// them. Events decouple observers (logging, future notification hooks)
// from the orchestration itself: the orchestrator publishes status and
// progress transitions without knowing who listens.
package events
