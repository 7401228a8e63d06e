package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()

	RespondWithJSON(rec, req, http.StatusAccepted, map[string]string{"status": "pending"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"pending"}`, rec.Body.String())
}

func TestRespondWithErrorIncludesTraceID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req = req.WithContext(SetTraceID(req.Context()))
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, http.StatusNotFound, "Job not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Job not found", resp.Error)
	assert.Equal(t, GetTraceID(req.Context()), resp.TraceID)
	assert.Len(t, resp.TraceID, 2*TraceIDLength)
}

func TestRespondWithErrorAndLogNeverLeaksCause(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()

	cause := errors.New("download https://dl/v.mp4?key=super-secret failed")
	RespondWithErrorAndLog(rec, req, http.StatusInternalServerError, "Synthesis failed", cause)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "super-secret")
	assert.Contains(t, rec.Body.String(), "Synthesis failed")
}

func TestTraceIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := SetTraceID(context.Background())
	traceID := GetTraceID(ctx)
	assert.Len(t, traceID, 2*TraceIDLength)

	other := SetTraceID(context.Background())
	assert.NotEqual(t, traceID, GetTraceID(other))

	assert.Empty(t, GetTraceID(context.Background()))
}
