package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/reel-api/internal/async"
	"github.com/phrazzld/reel-api/internal/domain"
	"github.com/phrazzld/reel-api/internal/events"
	"github.com/phrazzld/reel-api/internal/store"
)

// Client is the remote synthesis transport. Submit starts a generation
// operation, Fetch refreshes it, and Download retrieves the bytes of a
// finished artifact. Implemented by the Veo platform client.
type Client interface {
	Submit(ctx context.Context, req domain.SynthesisRequest) (*domain.Operation, error)
	Fetch(ctx context.Context, op *domain.Operation) (*domain.Operation, error)
	Download(ctx context.Context, ref domain.ArtifactRef) ([]byte, error)
}

// CredentialResyncer re-establishes the remote credential after an
// auth-required failure. The orchestrator awaits its completion before
// reporting the job's own terminal status.
type CredentialResyncer interface {
	Resync(ctx context.Context) error
}

// Config carries the timing knobs of one orchestration.
type Config struct {
	// PollInterval is the delay between operation polls. Zero means
	// async.DefaultPollInterval.
	PollInterval time.Duration

	// Backoff bounds the retry executor wrapped around every network
	// call. The zero value means the default policy.
	Backoff async.BackoffPolicy

	// ProgressTick is the synthetic progress estimator's tick interval.
	// Zero means async.DefaultTickInterval.
	ProgressTick time.Duration
}

// Service is the task orchestrator. Each Start method registers a job,
// spawns one orchestration goroutine for it, and returns immediately;
// the goroutine drives submit -> poll -> download and records every
// transition in the job store. Jobs are independent: each owns a fresh
// cancellation token and progress estimator and shares no mutable state
// with its siblings.
type Service struct {
	client   Client
	resyncer CredentialResyncer
	jobs     *store.JobStore
	emitter  events.EventEmitter
	cfg      Config
	logger   *slog.Logger

	mu     sync.Mutex
	tokens map[uuid.UUID]*async.CancelToken
	wg     sync.WaitGroup
}

// NewService creates the orchestrator. resyncer and emitter may be nil;
// auth-required failures then skip the re-sync step and transitions go
// unannounced.
func NewService(
	client Client,
	resyncer CredentialResyncer,
	jobs *store.JobStore,
	emitter events.EventEmitter,
	cfg Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		client:   client,
		resyncer: resyncer,
		jobs:     jobs,
		emitter:  emitter,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "synthesis")),
		tokens:   make(map[uuid.UUID]*async.CancelToken),
	}
}

// StartVideoGeneration begins a text-to-video job for the owner.
func (s *Service) StartVideoGeneration(ctx context.Context, ownerID uuid.UUID, req VideoGenerationRequest) (*domain.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.start(ctx, ownerID, domain.JobKindVideoGeneration, req.synthesis())
}

// StartLogoAnimation begins a logo animation job for the owner.
func (s *Service) StartLogoAnimation(ctx context.Context, ownerID uuid.UUID, req LogoAnimationRequest) (*domain.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.start(ctx, ownerID, domain.JobKindLogoAnimation, req.synthesis())
}

// StartImageRemedy begins an image remedy job for the owner.
func (s *Service) StartImageRemedy(ctx context.Context, ownerID uuid.UUID, req ImageRemedyRequest) (*domain.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.start(ctx, ownerID, domain.JobKindImageRemedy, req.synthesis())
}

// StartMontage begins a multi-clip montage job for the owner. Clips run
// sequentially under the job's single cancellation token, producing one
// artifact per clip.
func (s *Service) StartMontage(ctx context.Context, ownerID uuid.UUID, req MontageRequest) (*domain.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.start(ctx, ownerID, domain.JobKindMontage, req.synthesis()...)
}

// Cancel aborts a running job owned by ownerID. Cancelling a job that
// already reached a terminal state returns store.ErrJobTerminal; a
// token that already finished detaching is a no-op.
func (s *Service) Cancel(ctx context.Context, ownerID, jobID uuid.UUID) error {
	job, err := s.jobs.Get(jobID)
	if err != nil {
		return err
	}
	if job.OwnerID != ownerID {
		return fmt.Errorf("%w: %s", ErrJobNotOwned, jobID)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", store.ErrJobTerminal, jobID, job.Status)
	}

	s.mu.Lock()
	token := s.tokens[jobID]
	s.mu.Unlock()

	if token != nil {
		s.logger.InfoContext(ctx, "cancelling job", "job_id", jobID)
		token.Abort()
	}
	return nil
}

// Shutdown aborts every outstanding job and waits for their
// orchestration goroutines to finish recording terminal state.
func (s *Service) Shutdown() {
	s.mu.Lock()
	tokens := make([]*async.CancelToken, 0, len(s.tokens))
	for _, token := range s.tokens {
		tokens = append(tokens, token)
	}
	s.mu.Unlock()

	for _, token := range tokens {
		token.Abort()
	}
	s.wg.Wait()
}

// start registers a pending job and spawns its orchestration goroutine.
// The goroutine outlives the HTTP request; it inherits the request's
// context values but not its cancellation.
func (s *Service) start(ctx context.Context, ownerID uuid.UUID, kind domain.JobKind, requests ...domain.SynthesisRequest) (*domain.Job, error) {
	job, err := domain.NewJob(ownerID, kind)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Save(job); err != nil {
		return nil, fmt.Errorf("failed to register job: %w", err)
	}

	token := async.NewCancelToken()
	s.mu.Lock()
	s.tokens[job.ID] = token
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), job, token, requests)

	return job, nil
}

// run drives one orchestration to a terminal state. Every exit path
// stops the estimator and detaches the token, so a stale cancel of a
// finished job can never reach a later orchestration.
func (s *Service) run(ctx context.Context, job *domain.Job, token *async.CancelToken, requests []domain.SynthesisRequest) {
	defer s.wg.Done()
	defer s.detach(job.ID)

	log := s.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("kind", string(job.Kind)))

	estimator := async.NewEstimator(s.cfg.ProgressTick, func(p domain.ProgressEstimate) {
		if err := s.jobs.UpdateProgress(job.ID, p); err != nil {
			return
		}
		s.emit(ctx, events.NewProgressEvent(job.ID, p))
	})
	defer estimator.Stop()

	s.transition(ctx, job.ID, domain.JobStatusRunning, "")
	estimator.Start()

	artifacts := make([]domain.Artifact, 0, len(requests))
	for i, req := range requests {
		clipLog := log
		if len(requests) > 1 {
			clipLog = log.With(slog.Int("clip", i+1), slog.Int("clips", len(requests)))
		}

		artifact, err := s.synthesize(ctx, token, clipLog, req)
		if err != nil {
			estimator.Stop()
			s.fail(ctx, job.ID, clipLog, err)
			return
		}
		artifacts = append(artifacts, *artifact)
	}

	estimator.Complete()
	if err := s.jobs.Complete(job.ID, artifacts, "synthesis complete"); err != nil {
		log.Error("failed to record job completion", "error", err)
		return
	}
	s.emit(ctx, events.NewStatusEvent(job.ID, domain.JobStatusSucceeded))
	log.Info("job succeeded", "artifacts", len(artifacts))
}

// synthesize runs one submit -> poll -> download cycle. Submission
// strictly precedes polling, which strictly precedes the artifact
// fetch; each network call goes through the retry executor.
func (s *Service) synthesize(ctx context.Context, token *async.CancelToken, log *slog.Logger, req domain.SynthesisRequest) (*domain.Artifact, error) {
	if token.Aborted() {
		return nil, domain.NewFailureInfo(domain.ErrCancelled)
	}

	op, err := async.Retry(ctx, token, s.cfg.Backoff, log,
		func(ctx context.Context) (*domain.Operation, error) {
			return s.client.Submit(ctx, req)
		})
	if err != nil {
		return nil, err
	}
	log.Info("operation submitted", "operation", op.Name)

	poller := async.NewPoller(s.client, s.cfg.PollInterval, s.cfg.Backoff, log)
	op, state, err := poller.Wait(ctx, token, op)
	if state != async.StateDone {
		return nil, err
	}

	bytes, err := async.Retry(ctx, token, s.cfg.Backoff, log,
		func(ctx context.Context) ([]byte, error) {
			return s.client.Download(ctx, *op.Result)
		})
	if err != nil {
		return nil, err
	}

	return &domain.Artifact{Ref: *op.Result, Bytes: bytes}, nil
}

// fail records the classified terminal failure. The user-facing message
// is derived from the failure kind, never from raw error text, so
// nothing sensitive from the transport can leak into API responses.
func (s *Service) fail(ctx context.Context, jobID uuid.UUID, log *slog.Logger, err error) {
	failure := domain.NewFailureInfo(err)

	var message string
	switch failure.Kind {
	case domain.FailureCancelled:
		message = "operation cancelled"
	case domain.FailureAuthRequired:
		message = s.resync(ctx, log)
	case domain.FailureQuotaExhausted:
		message = "daily generation quota exhausted, try again tomorrow"
	case domain.FailureRateLimited:
		message = "the synthesis service is overloaded, try again shortly"
	default:
		message = "synthesis failed"
	}

	if storeErr := s.jobs.Fail(jobID, failure, message); storeErr != nil {
		log.Error("failed to record job failure", "error", storeErr)
		return
	}

	status := domain.JobStatusFailed
	if failure.Kind == domain.FailureCancelled {
		status = domain.JobStatusCancelled
		log.Info("job cancelled")
	} else {
		log.Error("job failed", "kind", failure.Kind, "error", err)
	}
	s.emit(ctx, events.NewStatusEvent(jobID, status))
}

// resync invokes the credential re-sync collaborator and returns the
// user-facing message for the auth-required terminal state.
func (s *Service) resync(ctx context.Context, log *slog.Logger) string {
	if s.resyncer == nil {
		return "credentials rejected, re-authenticate and retry"
	}
	if err := s.resyncer.Resync(ctx); err != nil {
		log.Error("credential re-sync failed", "error", err)
		return "credentials rejected and re-sync failed, re-authenticate and retry"
	}
	log.Info("credentials re-synced after auth failure")
	return "credentials re-synced, retry the request"
}

func (s *Service) transition(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, message string) {
	if err := s.jobs.UpdateStatus(jobID, status, message); err != nil {
		s.logger.Error("failed to update job status", "job_id", jobID, "error", err)
		return
	}
	s.emit(ctx, events.NewStatusEvent(jobID, status))
}

func (s *Service) emit(ctx context.Context, event *events.JobEvent) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("failed to emit job event", "job_id", event.JobID, "error", err)
	}
}

func (s *Service) detach(jobID uuid.UUID) {
	s.mu.Lock()
	delete(s.tokens, jobID)
	s.mu.Unlock()
}
