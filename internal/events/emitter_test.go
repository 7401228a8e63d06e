package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/reel-api/internal/domain"
)

type recordingHandler struct {
	events []*JobEvent
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *JobEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitEventDeliversToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler(first)
	emitter.RegisterHandler(second)

	event := NewStatusEvent(uuid.New(), domain.JobStatusRunning)
	require.NoError(t, emitter.EmitEvent(context.Background(), event))

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, event.ID, first.events[0].ID)
}

func TestEmitEventContinuesPastFailingHandler(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	failing := &recordingHandler{err: errors.New("handler broke")}
	healthy := &recordingHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(healthy)

	err := emitter.EmitEvent(context.Background(), NewStatusEvent(uuid.New(), domain.JobStatusFailed))

	assert.EqualError(t, err, "handler broke")
	assert.Len(t, healthy.events, 1, "later handlers must still receive the event")
}

func TestEmitEventWithoutHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	assert.NoError(t, emitter.EmitEvent(context.Background(), NewProgressEvent(uuid.New(), domain.ProgressEstimate{Value: 42})))
}

func TestEventConstructors(t *testing.T) {
	t.Parallel()

	jobID := uuid.New()

	status := NewStatusEvent(jobID, domain.JobStatusSucceeded)
	assert.Equal(t, EventStatusChanged, status.Type)
	assert.Equal(t, jobID, status.JobID)
	assert.Equal(t, domain.JobStatusSucceeded, status.Status)
	assert.False(t, status.CreatedAt.IsZero())

	progress := NewProgressEvent(jobID, domain.ProgressEstimate{Value: 98, Phase: domain.PhaseFinalizing})
	assert.Equal(t, EventProgress, progress.Type)
	assert.Equal(t, 98.0, progress.Progress.Value)
}
