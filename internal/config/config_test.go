package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/safesearch/internal/store"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.InDelta(t, 0.2, cfg.Search.SafetyBoost, 1e-12)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
	assert.Equal(t, store.DenseBackendLinear, cfg.Search.DenseBackend)
	assert.Equal(t, "static", cfg.Embedder.Provider)
	assert.Equal(t, "bge-m3", cfg.Embedder.Model)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingDefaultPathIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
}

func TestLoad_MissingExplicitPathFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	// Given: a partial config file
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
search:
  rrf_constant: 30
  safety_boost: 0.5
  dense_backend: hnsw
embedder:
  provider: http
  endpoint: http://embed.internal:8089
corpus:
  path: /data/manuals.jsonl
  watch: true
`), 0o644))

	// When
	cfg, err := Load(path)

	// Then: file values win, untouched fields keep defaults
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Search.RRFConstant)
	assert.InDelta(t, 0.5, cfg.Search.SafetyBoost, 1e-12)
	assert.Equal(t, store.DenseBackendHNSW, cfg.Search.DenseBackend)
	assert.Equal(t, "http", cfg.Embedder.Provider)
	assert.Equal(t, "http://embed.internal:8089", cfg.Embedder.Endpoint)
	assert.Equal(t, "/data/manuals.jsonl", cfg.Corpus.Path)
	assert.True(t, cfg.Corpus.Watch)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, "bge-m3", cfg.Embedder.Model)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	// Given: a file setting one value and env overriding it
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  rrf_constant: 30\n"), 0o644))

	t.Setenv("SAFESEARCH_RRF_CONSTANT", "90")
	t.Setenv("SAFESEARCH_SAFETY_BOOST", "0.4")
	t.Setenv("SAFESEARCH_EMBEDDER", "http")
	t.Setenv("SAFESEARCH_EMBED_ENDPOINT", "http://env.example:9000")
	t.Setenv("SAFESEARCH_EMBED_MODEL", "bge-small")
	t.Setenv("SAFESEARCH_CORPUS", "/env/corpus.jsonl")
	t.Setenv("SAFESEARCH_LOG_LEVEL", "debug")
	t.Setenv("SAFESEARCH_TELEMETRY", "false")

	// When
	cfg, err := Load(path)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Search.RRFConstant)
	assert.InDelta(t, 0.4, cfg.Search.SafetyBoost, 1e-12)
	assert.Equal(t, "http", cfg.Embedder.Provider)
	assert.Equal(t, "http://env.example:9000", cfg.Embedder.Endpoint)
	assert.Equal(t, "bge-small", cfg.Embedder.Model)
	assert.Equal(t, "/env/corpus.jsonl", cfg.Corpus.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_InvalidEnvValueIgnored(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SAFESEARCH_RRF_CONSTANT", "not-a-number")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rrf constant", func(c *Config) { c.Search.RRFConstant = 0 }},
		{"negative safety boost", func(c *Config) { c.Search.SafetyBoost = -0.1 }},
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxLimit = 2; c.Search.DefaultLimit = 5 }},
		{"fuzzy ratio above one", func(c *Config) { c.Search.FuzzyRatio = 1.5 }},
		{"unknown dense backend", func(c *Config) { c.Search.DenseBackend = "faiss" }},
		{"unknown embedder provider", func(c *Config) { c.Embedder.Provider = "grpc" }},
		{"http provider without endpoint", func(c *Config) { c.Embedder.Provider = "http"; c.Embedder.Endpoint = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	// Given
	cfg := NewConfig()
	cfg.Search.RRFConstant = 42
	cfg.Corpus.Path = "/data/manuals.jsonl"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	// When
	require.NoError(t, cfg.WriteYAML(path))
	loaded, err := Load(path)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Search.RRFConstant)
	assert.Equal(t, "/data/manuals.jsonl", loaded.Corpus.Path)
}

func TestDefaultConfigPath_HonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "safesearch", "config.yaml"), DefaultConfigPath())
}

func TestLoad_WatchDebounceFromFile(t *testing.T) {
	// Durations round-trip as nanoseconds through the YAML codec.
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corpus:\n  path: /data/c.jsonl\n  watch_debounce: 2000000000\n"), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Corpus.WatchDebounce)
}
