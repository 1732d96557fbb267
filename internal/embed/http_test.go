package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedService(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPEmbedder_Success(t *testing.T) {
	// Given: a service echoing a fixed vector
	srv := embedService(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-m3", req.Model)
		assert.Equal(t, "조속기 점검", req.Input)

		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	})

	e, err := NewHTTPEmbedder(HTTPConfig{Endpoint: srv.URL, Model: "bge-m3"})
	require.NoError(t, err)
	defer e.Close()

	// When
	vec, err := e.Embed(context.Background(), "조속기 점검")

	// Then: vector returned, dimensionality adopted
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, e.Dimensions())
}

func TestHTTPEmbedder_RetriesTransientFailure(t *testing.T) {
	// Given: a service that fails once then recovers
	var calls atomic.Int32
	srv := embedService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 0}})
	})

	e, err := NewHTTPEmbedder(HTTPConfig{Endpoint: srv.URL, Model: "bge-m3", MaxRetries: 2})
	require.NoError(t, err)
	defer e.Close()

	// When
	vec, err := e.Embed(context.Background(), "점검")

	// Then
	require.NoError(t, err)
	assert.Len(t, vec, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPEmbedder_ExhaustedRetries(t *testing.T) {
	srv := embedService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})

	e, err := NewHTTPEmbedder(HTTPConfig{Endpoint: srv.URL, Model: "bge-m3", MaxRetries: 0})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Embed(context.Background(), "점검")
	assert.Error(t, err)
}

func TestHTTPEmbedder_DimensionMismatch(t *testing.T) {
	// Given: a service whose vector size disagrees with the config
	srv := embedService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 2}})
	})

	e, err := NewHTTPEmbedder(HTTPConfig{Endpoint: srv.URL, Model: "bge-m3", Dimensions: 4})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Embed(context.Background(), "점검")
	assert.Error(t, err)
}

func TestHTTPEmbedder_Timeout(t *testing.T) {
	srv := embedService(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1}})
	})

	e, err := NewHTTPEmbedder(HTTPConfig{
		Endpoint:   srv.URL,
		Model:      "bge-m3",
		Timeout:    20 * time.Millisecond,
		MaxRetries: 0,
	})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Embed(context.Background(), "점검")
	assert.Error(t, err)
}

func TestHTTPEmbedder_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPEmbedder(HTTPConfig{})
	assert.Error(t, err)
}

func TestHTTPEmbedder_ClosedFails(t *testing.T) {
	srv := embedService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1}})
	})

	e, err := NewHTTPEmbedder(HTTPConfig{Endpoint: srv.URL, Model: "bge-m3"})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.Embed(context.Background(), "점검")
	assert.Error(t, err)
}
