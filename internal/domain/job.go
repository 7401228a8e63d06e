package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobKind identifies which synthesis feature a job belongs to.
type JobKind string

// Supported job kinds.
const (
	JobKindVideoGeneration JobKind = "video_generation"
	JobKindLogoAnimation   JobKind = "logo_animation"
	JobKindImageRemedy     JobKind = "image_remedy"
	JobKindMontage         JobKind = "montage"
)

// IsValid reports whether the kind is one of the supported features.
func (k JobKind) IsValid() bool {
	switch k {
	case JobKindVideoGeneration, JobKindLogoAnimation, JobKindImageRemedy, JobKindMontage:
		return true
	}
	return false
}

// JobStatus represents the lifecycle state of a job.
type JobStatus string

// Possible job status values. Succeeded, failed, and cancelled are
// terminal; a terminal job never changes again.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ProgressPhase labels the stage a synthetic progress estimate claims to
// be in. Purely cosmetic: it carries no information about true remote
// progress.
type ProgressPhase string

// Progress phases, in order.
const (
	PhaseSubmitted    ProgressPhase = "submitted"
	PhaseSynthesizing ProgressPhase = "synthesizing"
	PhaseFinalizing   ProgressPhase = "finalizing"
)

// ProgressEstimate is a synthetic, non-decreasing progress value in
// [0,100] plus its phase label. It must never be used to infer
// completion; only a terminal operation state is authoritative.
type ProgressEstimate struct {
	Value float64       `json:"value"`
	Phase ProgressPhase `json:"phase"`
}

// Artifact is a fetched media result: the reference the remote service
// reported plus the downloaded bytes. Artifacts live only in memory and
// are discarded when the caller resets state.
type Artifact struct {
	Ref   ArtifactRef
	Bytes []byte
}

// Job is the aggregate tracked for one orchestration: a submitted
// generation request, its synthetic progress, and its terminal outcome.
type Job struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Kind      JobKind
	Status    JobStatus
	Progress  ProgressEstimate
	Failure   *FailureInfo
	Artifacts []Artifact

	// Message is the user-facing status line ("operation cancelled",
	// "credentials re-synced, retry", ...). Derived from the failure
	// kind, never from raw error text.
	Message string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a pending job for the given owner and feature kind.
func NewJob(ownerID uuid.UUID, kind JobKind) (*Job, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner ID cannot be empty", ErrValidation)
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown job kind %q", ErrValidation, kind)
	}

	now := time.Now().UTC()
	return &Job{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Kind:      kind,
		Status:    JobStatusPending,
		Progress:  ProgressEstimate{Value: 0, Phase: PhaseSubmitted},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
