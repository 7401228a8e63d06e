package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/reel-api/internal/async"
	"github.com/phrazzld/reel-api/internal/domain"
	"github.com/phrazzld/reel-api/internal/events"
	"github.com/phrazzld/reel-api/internal/store"
)

// fetchStep scripts one Fetch result; the last step repeats forever.
type fetchStep struct {
	op  *domain.Operation
	err error
}

func pendingStep() fetchStep {
	return fetchStep{op: &domain.Operation{Done: false}}
}

func doneStep(uri string) fetchStep {
	return fetchStep{op: &domain.Operation{
		Done:   true,
		Result: &domain.ArtifactRef{URI: uri, MIMEType: "video/mp4"},
	}}
}

func failedStep(code int, status, message string) fetchStep {
	return fetchStep{op: &domain.Operation{
		Done:    true,
		Failure: &domain.RemoteError{Code: code, Status: status, Message: message},
	}}
}

type fakeClient struct {
	mu        sync.Mutex
	submitted []domain.SynthesisRequest
	fetches   int
	downloads int

	submitErr   error
	script      []fetchStep
	bytes       []byte
	downloadErr error
}

func (c *fakeClient) Submit(_ context.Context, req domain.SynthesisRequest) (*domain.Operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	c.submitted = append(c.submitted, req)
	return &domain.Operation{Name: fmt.Sprintf("operations/%d", len(c.submitted))}, nil
}

func (c *fakeClient) Fetch(_ context.Context, op *domain.Operation) (*domain.Operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.fetches
	if idx >= len(c.script) {
		idx = len(c.script) - 1
	}
	c.fetches++

	step := c.script[idx]
	if step.err != nil {
		return nil, step.err
	}
	refreshed := *step.op
	refreshed.Name = op.Name
	return &refreshed, nil
}

func (c *fakeClient) Download(_ context.Context, _ domain.ArtifactRef) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.downloads++
	if c.downloadErr != nil {
		return nil, c.downloadErr
	}
	return c.bytes, nil
}

func (c *fakeClient) requests() []domain.SynthesisRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.SynthesisRequest(nil), c.submitted...)
}

type fakeResyncer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *fakeResyncer) Resync(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *fakeResyncer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type captureEmitter struct {
	mu     sync.Mutex
	events []*events.JobEvent
}

func (c *captureEmitter) EmitEvent(_ context.Context, event *events.JobEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureEmitter) statuses() []domain.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.JobStatus
	for _, e := range c.events {
		if e.Type == events.EventStatusChanged {
			out = append(out, e.Status)
		}
	}
	return out
}

func testService(t *testing.T, client Client, resyncer CredentialResyncer) (*Service, *store.JobStore, *captureEmitter) {
	t.Helper()
	jobs := store.NewJobStore()
	emitter := &captureEmitter{}
	cfg := Config{
		PollInterval: time.Millisecond,
		ProgressTick: time.Millisecond,
		Backoff: async.BackoffPolicy{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
			MaxDelay:    2 * time.Millisecond,
			MaxJitter:   time.Millisecond,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(client, resyncer, jobs, emitter, cfg, logger)
	t.Cleanup(svc.Shutdown)
	return svc, jobs, emitter
}

func waitForTerminal(t *testing.T, jobs *store.JobStore, id uuid.UUID) *domain.Job {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := jobs.Get(id)
		return err == nil && job.Status.Terminal()
	}, 3*time.Second, time.Millisecond, "job never reached a terminal state")

	job, err := jobs.Get(id)
	require.NoError(t, err)
	return job
}

func waitForStatus(t *testing.T, jobs *store.JobStore, id uuid.UUID, status domain.JobStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := jobs.Get(id)
		return err == nil && job.Status == status
	}, 3*time.Second, time.Millisecond)
}

func TestVideoGenerationSucceeds(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		script: []fetchStep{pendingStep(), pendingStep(), doneStep("https://dl/video.mp4")},
		bytes:  []byte("mp4-bytes"),
	}
	svc, jobs, emitter := testService(t, client, nil)

	ownerID := uuid.New()
	job, err := svc.StartVideoGeneration(context.Background(), ownerID, VideoGenerationRequest{
		Prompt:         "a lighthouse at dawn",
		NegativePrompt: "text overlays",
		AspectRatio:    "16:9",
		Quality:        domain.QualityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, ownerID, job.OwnerID)

	done := waitForTerminal(t, jobs, job.ID)
	assert.Equal(t, domain.JobStatusSucceeded, done.Status)
	assert.Equal(t, float64(100), done.Progress.Value)
	require.Len(t, done.Artifacts, 1)
	assert.Equal(t, "https://dl/video.mp4", done.Artifacts[0].Ref.URI)
	assert.Equal(t, []byte("mp4-bytes"), done.Artifacts[0].Bytes)

	reqs := client.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "a lighthouse at dawn", reqs[0].Prompt)
	assert.Equal(t, "text overlays", reqs[0].NegativePrompt)
	assert.Equal(t, domain.QualityHigh, reqs[0].Quality)

	assert.Equal(t,
		[]domain.JobStatus{domain.JobStatusRunning, domain.JobStatusSucceeded},
		emitter.statuses())
}

func TestLogoAnimationBuildsPromptAroundLogo(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		script: []fetchStep{doneStep("https://dl/logo.mp4")},
		bytes:  []byte("logo-bytes"),
	}
	svc, jobs, _ := testService(t, client, nil)

	job, err := svc.StartLogoAnimation(context.Background(), uuid.New(), LogoAnimationRequest{
		Logo:   domain.InputImage{Bytes: []byte("png"), MIMEType: "image/png"},
		Motion: "slow zoom with a shimmer",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobKindLogoAnimation, job.Kind)

	done := waitForTerminal(t, jobs, job.ID)
	assert.Equal(t, domain.JobStatusSucceeded, done.Status)

	reqs := client.requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, "slow zoom with a shimmer")
	require.NotNil(t, reqs[0].Image)
	assert.Equal(t, "image/png", reqs[0].Image.MIMEType)
}

func TestMontageProducesOneArtifactPerClip(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		script: []fetchStep{doneStep("https://dl/clip.mp4")},
		bytes:  []byte("clip-bytes"),
	}
	svc, jobs, _ := testService(t, client, nil)

	job, err := svc.StartMontage(context.Background(), uuid.New(), MontageRequest{
		Quality: domain.QualityFast,
		Clips: []MontageClip{
			{Prompt: "opening shot of a harbor"},
			{Prompt: "gulls over the pier"},
			{Prompt: "sunset time-lapse"},
		},
	})
	require.NoError(t, err)

	done := waitForTerminal(t, jobs, job.ID)
	assert.Equal(t, domain.JobStatusSucceeded, done.Status)
	assert.Len(t, done.Artifacts, 3)
	reqs := client.requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "gulls over the pier", reqs[1].Prompt)
}

func TestCancelMidPollYieldsCancelledStatus(t *testing.T) {
	t.Parallel()

	client := &fakeClient{script: []fetchStep{pendingStep()}}
	svc, jobs, _ := testService(t, client, nil)

	ownerID := uuid.New()
	job, err := svc.StartVideoGeneration(context.Background(), ownerID, VideoGenerationRequest{
		Prompt: "never finishes",
	})
	require.NoError(t, err)
	waitForStatus(t, jobs, job.ID, domain.JobStatusRunning)

	require.NoError(t, svc.Cancel(context.Background(), ownerID, job.ID))

	done := waitForTerminal(t, jobs, job.ID)
	assert.Equal(t, domain.JobStatusCancelled, done.Status)
	assert.Equal(t, "operation cancelled", done.Message)
	assert.Empty(t, done.Artifacts)
	require.NotNil(t, done.Failure)
	assert.Equal(t, domain.FailureCancelled, done.Failure.Kind)

	// The token is detached once the orchestration finishes; a second
	// cancel hits the terminal guard.
	err = svc.Cancel(context.Background(), ownerID, job.ID)
	assert.ErrorIs(t, err, store.ErrJobTerminal)
}

func TestCancelRequiresOwnership(t *testing.T) {
	t.Parallel()

	client := &fakeClient{script: []fetchStep{pendingStep()}}
	svc, jobs, _ := testService(t, client, nil)

	ownerID := uuid.New()
	job, err := svc.StartVideoGeneration(context.Background(), ownerID, VideoGenerationRequest{
		Prompt: "someone else's job",
	})
	require.NoError(t, err)
	waitForStatus(t, jobs, job.ID, domain.JobStatusRunning)

	err = svc.Cancel(context.Background(), uuid.New(), job.ID)
	assert.ErrorIs(t, err, ErrJobNotOwned)

	err = svc.Cancel(context.Background(), ownerID, uuid.New())
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestAuthRequiredFailureTriggersResync(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		script: []fetchStep{
			failedStep(404, "NOT_FOUND", "The requested entity was not found."),
		},
	}
	resyncer := &fakeResyncer{}
	svc, jobs, _ := testService(t, client, resyncer)

	job, err := svc.StartVideoGeneration(context.Background(), uuid.New(), VideoGenerationRequest{
		Prompt: "stale credentials",
	})
	require.NoError(t, err)

	done := waitForTerminal(t, jobs, job.ID)
	assert.Equal(t, domain.JobStatusFailed, done.Status)
	require.NotNil(t, done.Failure)
	assert.Equal(t, domain.FailureAuthRequired, done.Failure.Kind)
	assert.Equal(t, "credentials re-synced, retry the request", done.Message)
	assert.Equal(t, 1, resyncer.callCount())
}

func TestResyncFailureStillTerminatesCleanly(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		script: []fetchStep{
			failedStep(404, "NOT_FOUND", "The requested entity was not found."),
		},
	}
	resyncer := &fakeResyncer{err: errors.New("selector unavailable")}
	svc, jobs, _ := testService(t, client, resyncer)

	job, err := svc.StartVideoGeneration(context.Background(), uuid.New(), VideoGenerationRequest{
		Prompt: "stale credentials",
	})
	require.NoError(t, err)

	done := waitForTerminal(t, jobs, job.ID)
	assert.Equal(t, domain.JobStatusFailed, done.Status)
	assert.Contains(t, done.Message, "re-sync failed")
	assert.Equal(t, 1, resyncer.callCount())
}

func TestQuotaExhaustedIsNeverRetried(t *testing.T) {
	t.Parallel()

	client := &fakeClient{submitErr: domain.ErrDailyQuotaExhausted}
	svc, jobs, _ := testService(t, client, nil)

	job, err := svc.StartVideoGeneration(context.Background(), uuid.New(), VideoGenerationRequest{
		Prompt: "quota spent",
	})
	require.NoError(t, err)

	done := waitForTerminal(t, jobs, job.ID)
	assert.Equal(t, domain.JobStatusFailed, done.Status)
	require.NotNil(t, done.Failure)
	assert.Equal(t, domain.FailureQuotaExhausted, done.Failure.Kind)
	assert.Contains(t, done.Message, "quota")
	assert.Zero(t, client.downloads)
}

func TestRateLimitedDownloadIsRetried(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		script:      []fetchStep{doneStep("https://dl/video.mp4")},
		downloadErr: &domain.RemoteError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"},
	}
	svc, jobs, _ := testService(t, client, nil)

	job, err := svc.StartVideoGeneration(context.Background(), uuid.New(), VideoGenerationRequest{
		Prompt: "rate limited artifact fetch",
	})
	require.NoError(t, err)

	done := waitForTerminal(t, jobs, job.ID)
	assert.Equal(t, domain.JobStatusFailed, done.Status)
	require.NotNil(t, done.Failure)
	assert.Equal(t, domain.FailureRateLimited, done.Failure.Kind)

	// Both attempts of the two-attempt budget were spent on the fetch.
	client.mu.Lock()
	downloads := client.downloads
	client.mu.Unlock()
	assert.Equal(t, 2, downloads)
}

func TestShutdownAbortsOutstandingJobs(t *testing.T) {
	t.Parallel()

	client := &fakeClient{script: []fetchStep{pendingStep()}}
	svc, jobs, _ := testService(t, client, nil)

	ownerID := uuid.New()
	first, err := svc.StartVideoGeneration(context.Background(), ownerID, VideoGenerationRequest{Prompt: "first"})
	require.NoError(t, err)
	second, err := svc.StartVideoGeneration(context.Background(), ownerID, VideoGenerationRequest{Prompt: "second"})
	require.NoError(t, err)

	waitForStatus(t, jobs, first.ID, domain.JobStatusRunning)
	waitForStatus(t, jobs, second.ID, domain.JobStatusRunning)

	svc.Shutdown()

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		job, err := jobs.Get(id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, job.Status)
	}
}

func TestStartValidation(t *testing.T) {
	t.Parallel()

	svc, _, _ := testService(t, &fakeClient{script: []fetchStep{pendingStep()}}, nil)
	ownerID := uuid.New()
	ctx := context.Background()

	_, err := svc.StartVideoGeneration(ctx, ownerID, VideoGenerationRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.StartLogoAnimation(ctx, ownerID, LogoAnimationRequest{Motion: "spin"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.StartLogoAnimation(ctx, ownerID, LogoAnimationRequest{
		Logo: domain.InputImage{Bytes: []byte("png")},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.StartImageRemedy(ctx, ownerID, ImageRemedyRequest{
		Image: domain.InputImage{Bytes: []byte("png")},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.StartMontage(ctx, ownerID, MontageRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.StartMontage(ctx, ownerID, MontageRequest{
		Clips: []MontageClip{{Prompt: "ok"}, {}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
