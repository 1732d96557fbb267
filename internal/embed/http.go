package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/plantops/safesearch/internal/errors"
)

// HTTPConfig configures the HTTP embedding client.
type HTTPConfig struct {
	// Endpoint is the embedding service URL (e.g. http://localhost:8089/embed).
	Endpoint string

	// Model is the model identifier sent with each request.
	Model string

	// Dimensions is the expected embedding dimensionality. Zero means
	// adopt whatever the service returns on the first call.
	Dimensions int

	// Timeout bounds each request, including retries' individual attempts.
	Timeout time.Duration

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int
}

// HTTPEmbedder calls an external embedding service over HTTP. It is the
// sole suspension point in a query's lifecycle; every request carries a
// context timeout so a slow collaborator degrades one query, not the
// process.
type HTTPEmbedder struct {
	client *http.Client
	config HTTPConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*HTTPEmbedder)(nil)

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewHTTPEmbedder creates an HTTP embedding client.
func NewHTTPEmbedder(cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, errors.ConfigError("embedder endpoint is required", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	// No client-level timeout: the per-request context carries it, so a
	// caller-supplied deadline is never silently overridden.
	return &HTTPEmbedder{
		client: &http.Client{Transport: transport},
		config: cfg,
		dims:   cfg.Dimensions,
	}, nil
}

// Embed requests the embedding for text, retrying transient failures with
// exponential backoff inside the configured timeout.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, errors.EmbedError("embedder is closed", nil)
	}
	e.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	var vec []float32
	err := withRetry(ctx, e.config.MaxRetries, func() error {
		var reqErr error
		vec, reqErr = e.doEmbed(ctx, text)
		return reqErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeEmbedTimeout, err)
		}
		return nil, errors.EmbedError("embedding request failed", err)
	}

	e.mu.Lock()
	if e.dims == 0 {
		e.dims = len(vec)
	}
	expected := e.dims
	e.mu.Unlock()

	if len(vec) != expected {
		return nil, errors.New(errors.ErrCodeEmbedDimension,
			fmt.Sprintf("service returned %d dimensions, expected %d", len(vec), expected), nil)
	}

	return vec, nil
}

// doEmbed performs one request/response round trip.
func (e *HTTPEmbedder) doEmbed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.config.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, string(payload))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}

	return parsed.Embedding, nil
}

// Dimensions returns the embedding dimensionality (0 until the first
// successful call when not configured).
func (e *HTTPEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the configured model identifier.
func (e *HTTPEmbedder) ModelName() string {
	return e.config.Model
}

// Available probes the service with a tiny request.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := e.doEmbed(ctx, "ping")
	return err == nil
}

// Close releases idle connections.
func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if t, ok := e.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
