package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/reel-api/internal/domain"
)

// JobEventType identifies what aspect of a job an event describes.
type JobEventType string

// Possible event types.
const (
	// EventStatusChanged is emitted on every job status transition.
	EventStatusChanged JobEventType = "job_status_changed"

	// EventProgress is emitted on synthetic progress updates.
	EventProgress JobEventType = "job_progress"
)

// JobEvent describes one observable transition of a job.
type JobEvent struct {
	// ID is a unique identifier for this event.
	ID uuid.UUID `json:"id"`

	// JobID identifies the job the event belongs to.
	JobID uuid.UUID `json:"job_id"`

	// Type indicates what kind of transition occurred.
	Type JobEventType `json:"type"`

	// Status is the job status after the transition. Set for
	// EventStatusChanged.
	Status domain.JobStatus `json:"status,omitempty"`

	// Progress is the synthetic estimate after the transition. Set for
	// EventProgress.
	Progress domain.ProgressEstimate `json:"progress,omitempty"`

	// CreatedAt is the timestamp when the event was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewStatusEvent creates an event for a job status transition.
func NewStatusEvent(jobID uuid.UUID, status domain.JobStatus) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		JobID:     jobID,
		Type:      EventStatusChanged,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

// NewProgressEvent creates an event for a synthetic progress update.
func NewProgressEvent(jobID uuid.UUID, progress domain.ProgressEstimate) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		JobID:     jobID,
		Type:      EventProgress,
		Progress:  progress,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate
// actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the orchestrator to publish events without direct knowledge
// of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *JobEvent) error
}
