package veo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/reel-api/internal/domain"
	"github.com/phrazzld/reel-api/internal/redact"
)

// Veo model identifiers, selected from the coarse quality input on the
// request: the high-quality backend trades latency for fidelity, the
// fast backend the other way around.
const (
	ModelHighQuality = "veo-3.0-generate-preview"
	ModelFast        = "veo-3.0-fast-generate-preview"
)

// ModelFor maps a quality selector to the Veo model name. Unknown values
// fall back to the fast backend.
func ModelFor(q domain.Quality) string {
	if q == domain.QualityHigh {
		return ModelHighQuality
	}
	return ModelFast
}

// KeyProvider returns the current API key. It is consulted at client
// construction and again on every credential re-sync, so a provider
// backed by an external source picks up rotated keys.
type KeyProvider func(ctx context.Context) (string, error)

// StaticKey returns a provider that always yields the same key.
func StaticKey(key string) KeyProvider {
	return func(context.Context) (string, error) {
		return key, nil
	}
}

// Client wraps the genai SDK for Veo video generation. Safe for
// concurrent use; Resync swaps the underlying SDK client atomically.
type Client struct {
	mu     sync.RWMutex
	genai  *genai.Client
	apiKey string

	keyProvider     KeyProvider
	httpClient      *http.Client
	downloadTimeout time.Duration
	logger          *slog.Logger
}

// NewClient builds a Veo client using the key from keyProvider.
func NewClient(ctx context.Context, keyProvider KeyProvider, downloadTimeout time.Duration, logger *slog.Logger) (*Client, error) {
	if keyProvider == nil {
		return nil, errors.New("key provider cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	c := &Client{
		keyProvider:     keyProvider,
		httpClient:      &http.Client{},
		downloadTimeout: downloadTimeout,
		logger:          logger.With(slog.String("component", "veo_client")),
	}
	if err := c.rebuild(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// rebuild fetches the current key and replaces the SDK client.
func (c *Client) rebuild(ctx context.Context) error {
	key, err := c.keyProvider(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain API key: %w", err)
	}
	if key == "" {
		return fmt.Errorf("%w: empty API key", domain.ErrReauthRequired)
	}

	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}

	c.mu.Lock()
	c.genai = sdk
	c.apiKey = key
	c.mu.Unlock()
	return nil
}

// Resync implements the credential re-sync collaborator: it re-reads the
// key from the provider and rebuilds the SDK client with it.
func (c *Client) Resync(ctx context.Context) error {
	c.logger.InfoContext(ctx, "re-syncing remote credentials")
	return c.rebuild(ctx)
}

// Submit sends a generation request and returns the resulting operation
// handle. The returned operation is usually still outstanding and must be
// driven to completion by polling.
func (c *Client) Submit(ctx context.Context, req domain.SynthesisRequest) (*domain.Operation, error) {
	c.mu.RLock()
	sdk := c.genai
	c.mu.RUnlock()

	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
	}
	if req.AspectRatio != "" {
		cfg.AspectRatio = req.AspectRatio
	}
	if req.NegativePrompt != "" {
		cfg.NegativePrompt = req.NegativePrompt
	}

	var image *genai.Image
	if req.Image != nil {
		image = &genai.Image{
			ImageBytes: req.Image.Bytes,
			MIMEType:   req.Image.MIMEType,
		}
	}

	model := ModelFor(req.Quality)
	c.logger.DebugContext(ctx, "submitting generation request",
		"model", model,
		"prompt_length", len(req.Prompt),
		"has_image", image != nil)

	op, err := sdk.Models.GenerateVideos(ctx, model, req.Prompt, image, cfg)
	if err != nil {
		return nil, wrapSDKError(err)
	}

	c.logger.InfoContext(ctx, "generation request submitted", "operation", op.Name)
	return toDomainOperation(op), nil
}

// Fetch refreshes the operation from the remote service. It implements
// async.OperationFetcher.
func (c *Client) Fetch(ctx context.Context, op *domain.Operation) (*domain.Operation, error) {
	c.mu.RLock()
	sdk := c.genai
	c.mu.RUnlock()

	refreshed, err := sdk.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: op.Name}, nil)
	if err != nil {
		return nil, wrapSDKError(err)
	}
	return toDomainOperation(refreshed), nil
}

// Download fetches the artifact bytes. The result URI is not directly
// fetchable: the API key must be appended as a query parameter first. A
// 429 response is reported as a RemoteError so the retry executor can
// classify it as rate limiting; other non-2xx responses are fatal.
func (c *Client) Download(ctx context.Context, ref domain.ArtifactRef) ([]byte, error) {
	c.mu.RLock()
	key := c.apiKey
	c.mu.RUnlock()

	signed, err := signedURI(ref.URI, key)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact URI: %w", err)
	}

	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artifact download failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.RemoteError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("artifact download returned %d: %s", resp.StatusCode, redact.String(string(body))),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact body: %w", err)
	}

	c.logger.InfoContext(ctx, "artifact downloaded", "bytes", len(data))
	return data, nil
}

// signedURI appends the authorization key parameter to the artifact URI.
func signedURI(rawURI, key string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// toDomainOperation converts an SDK operation into the domain model. The
// error payload, when present, becomes a RemoteError so classification
// happens on domain types only.
func toDomainOperation(op *genai.GenerateVideosOperation) *domain.Operation {
	out := &domain.Operation{
		Name: op.Name,
		Done: op.Done,
	}

	if len(op.Error) > 0 {
		remote := &domain.RemoteError{}
		if code, ok := op.Error["code"].(float64); ok {
			remote.Code = int(code)
		}
		if status, ok := op.Error["status"].(string); ok {
			remote.Status = status
		}
		if msg, ok := op.Error["message"].(string); ok {
			remote.Message = msg
		}
		out.Failure = remote
		return out
	}

	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if video := op.Response.GeneratedVideos[0].Video; video != nil {
			out.Result = &domain.ArtifactRef{
				URI:      video.URI,
				MIMEType: video.MIMEType,
			}
		}
	}
	return out
}

// wrapSDKError converts genai errors into the domain carrier. Everything
// else passes through with its message redacted of key material.
func wrapSDKError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &domain.RemoteError{
			Code:    apiErr.Code,
			Status:  apiErr.Status,
			Message: apiErr.Message,
		}
	}
	return fmt.Errorf("remote call failed: %s", redact.Error(err))
}
