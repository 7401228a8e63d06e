package api

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phrazzld/reel-api/internal/api/shared"
	"github.com/phrazzld/reel-api/internal/domain"
	"github.com/phrazzld/reel-api/internal/platform/logger"
	"github.com/phrazzld/reel-api/internal/service/synthesis"
	"github.com/phrazzld/reel-api/internal/store"
)

// JobHandler handles job-related HTTP requests: submission, status,
// listing, cancellation, and artifact download.
type JobHandler struct {
	service   *synthesis.Service
	jobs      *store.JobStore
	validator *validator.Validate
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(service *synthesis.Service, jobs *store.JobStore) *JobHandler {
	return &JobHandler{
		service:   service,
		jobs:      jobs,
		validator: validator.New(),
	}
}

// CreateJob handles POST /api/jobs requests. Synthesis runs in the
// background, so a successful submission returns 202 Accepted with the
// pending job.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	job, err := h.startJob(r, userID, req)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(job))
}

// startJob dispatches the request to the feature façade matching its kind.
func (h *JobHandler) startJob(r *http.Request, userID uuid.UUID, req CreateJobRequest) (*domain.Job, error) {
	ctx := r.Context()
	quality := domain.Quality(req.Quality)

	switch domain.JobKind(req.Kind) {
	case domain.JobKindVideoGeneration:
		image, err := decodeImage(req.Image)
		if err != nil {
			return nil, err
		}
		return h.service.StartVideoGeneration(ctx, userID, synthesis.VideoGenerationRequest{
			Prompt:         req.Prompt,
			NegativePrompt: req.NegativePrompt,
			AspectRatio:    req.AspectRatio,
			Quality:        quality,
			Image:          image,
		})

	case domain.JobKindLogoAnimation:
		logo, err := decodeImage(req.Image)
		if err != nil {
			return nil, err
		}
		if logo == nil {
			return nil, fmt.Errorf("%w: image is required for logo animation", domain.ErrValidation)
		}
		return h.service.StartLogoAnimation(ctx, userID, synthesis.LogoAnimationRequest{
			Logo:    *logo,
			Motion:  req.Prompt,
			Quality: quality,
		})

	case domain.JobKindImageRemedy:
		image, err := decodeImage(req.Image)
		if err != nil {
			return nil, err
		}
		if image == nil {
			return nil, fmt.Errorf("%w: image is required for image remedy", domain.ErrValidation)
		}
		return h.service.StartImageRemedy(ctx, userID, synthesis.ImageRemedyRequest{
			Image:       *image,
			Instruction: req.Prompt,
			Quality:     quality,
		})

	case domain.JobKindMontage:
		clips := make([]synthesis.MontageClip, 0, len(req.Clips))
		for _, spec := range req.Clips {
			image, err := decodeImage(spec.Image)
			if err != nil {
				return nil, err
			}
			clips = append(clips, synthesis.MontageClip{
				Prompt: spec.Prompt,
				Image:  image,
			})
		}
		return h.service.StartMontage(ctx, userID, synthesis.MontageRequest{
			Clips:   clips,
			Quality: quality,
		})

	default:
		return nil, fmt.Errorf("%w: unknown job kind %q", domain.ErrValidation, req.Kind)
	}
}

// GetJob handles GET /api/jobs/{id} requests.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := requireJobAccess(w, r)
	if !ok {
		return
	}

	job, err := h.ownedJob(userID, jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// ListJobs handles GET /api/jobs requests, returning the caller's jobs
// newest first.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	jobs := h.jobs.ListByOwner(userID)
	responses := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, jobToResponse(job))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// CancelJob handles POST /api/jobs/{id}/cancel requests.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := requireJobAccess(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), userID, jobID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job, err := h.jobs.Get(jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(job))
}

// DownloadArtifact handles GET /api/jobs/{id}/artifacts/{index} requests,
// streaming the fetched media bytes with their reported content type.
func (h *JobHandler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := requireJobAccess(w, r)
	if !ok {
		return
	}

	job, err := h.ownedJob(userID, jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index >= len(job.Artifacts) {
		shared.RespondWithError(w, r, http.StatusNotFound, "Artifact not found")
		return
	}

	artifact := job.Artifacts[index]
	mimeType := artifact.Ref.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Bytes)))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", fmt.Sprintf("%s-%d.mp4", job.ID, index)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Bytes); err != nil {
		log := logger.FromContextOrDefault(r.Context(), slog.Default())
		log.Error("failed to write artifact response", "job_id", jobID, "error", err)
	}
}

// ownedJob loads a job and enforces that it belongs to the caller.
func (h *JobHandler) ownedJob(userID, jobID uuid.UUID) (*domain.Job, error) {
	job, err := h.jobs.Get(jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != userID {
		return nil, fmt.Errorf("%w: %s", synthesis.ErrJobNotOwned, jobID)
	}
	return job, nil
}

// decodeImage converts an optional inline upload into a domain image.
func decodeImage(upload *ImageUpload) (*domain.InputImage, error) {
	if upload == nil {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(upload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: image data is not valid base64", domain.ErrValidation)
	}
	return &domain.InputImage{
		Bytes:    data,
		MIMEType: upload.MIMEType,
	}, nil
}
