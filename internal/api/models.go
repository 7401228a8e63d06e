package api

import (
	"fmt"
	"time"

	"github.com/phrazzld/reel-api/internal/domain"
)

// ImageUpload carries an inline image in a request body.
type ImageUpload struct {
	// Data is the base64-encoded image payload.
	Data string `json:"data" validate:"required,base64"`

	// MIMEType is the image content type, e.g. "image/png".
	MIMEType string `json:"mime_type" validate:"required,startswith=image/"`
}

// ClipSpec describes one scene of a montage request.
type ClipSpec struct {
	Prompt string       `json:"prompt" validate:"required,min=1"`
	Image  *ImageUpload `json:"image,omitempty"`
}

// CreateJobRequest defines the payload for the job submission endpoint.
// Which fields are meaningful depends on the kind:
//
//   - video_generation: prompt, optional image/negative_prompt/aspect_ratio
//   - logo_animation:   image (the logo) plus prompt (the motion description)
//   - image_remedy:     image plus prompt (the remedy instruction)
//   - montage:          clips
type CreateJobRequest struct {
	Kind           string       `json:"kind"            validate:"required,oneof=video_generation logo_animation image_remedy montage"`
	Prompt         string       `json:"prompt,omitempty"`
	NegativePrompt string       `json:"negative_prompt,omitempty"`
	AspectRatio    string       `json:"aspect_ratio,omitempty"    validate:"omitempty,oneof=16:9 9:16 1:1"`
	Quality        string       `json:"quality,omitempty"         validate:"omitempty,oneof=high fast"`
	Image          *ImageUpload `json:"image,omitempty"`
	Clips          []ClipSpec   `json:"clips,omitempty"           validate:"omitempty,dive"`
}

// ArtifactResponse describes one downloadable result of a finished job.
// The bytes themselves are served from the artifact endpoint, not inlined
// into job responses.
type ArtifactResponse struct {
	Index     int    `json:"index"`
	MIMEType  string `json:"mime_type"`
	SizeBytes int    `json:"size_bytes"`
	URL       string `json:"url"`
}

// JobResponse defines the representation of a job returned by every job
// endpoint.
type JobResponse struct {
	ID          string                  `json:"id"`
	Kind        string                  `json:"kind"`
	Status      string                  `json:"status"`
	Progress    domain.ProgressEstimate `json:"progress"`
	Message     string                  `json:"message,omitempty"`
	FailureKind string                  `json:"failure_kind,omitempty"`
	Artifacts   []ArtifactResponse      `json:"artifacts,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// jobToResponse converts a domain.Job to its API representation.
func jobToResponse(job *domain.Job) JobResponse {
	resp := JobResponse{
		ID:        job.ID.String(),
		Kind:      string(job.Kind),
		Status:    string(job.Status),
		Progress:  job.Progress,
		Message:   job.Message,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Failure != nil {
		resp.FailureKind = string(job.Failure.Kind)
	}
	for i, artifact := range job.Artifacts {
		resp.Artifacts = append(resp.Artifacts, ArtifactResponse{
			Index:     i,
			MIMEType:  artifact.Ref.MIMEType,
			SizeBytes: len(artifact.Bytes),
			URL:       fmt.Sprintf("/api/jobs/%s/artifacts/%d", job.ID, i),
		})
	}
	return resp
}
