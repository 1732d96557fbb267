// Package config loads the safesearch configuration: defaults, an
// optional YAML file, then SAFESEARCH_* environment overrides, in
// increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plantops/safesearch/internal/logging"
	"github.com/plantops/safesearch/internal/store"
)

// Config is the complete safesearch configuration.
type Config struct {
	Search    SearchConfig    `yaml:"search"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   logging.Config  `yaml:"logging"`
}

// SearchConfig tunes the retrieval pipeline.
type SearchConfig struct {
	// RRFConstant is the RRF fusion smoothing parameter (k).
	// Default: 60 (industry standard used by Azure AI Search, OpenSearch).
	RRFConstant int `yaml:"rrf_constant"`

	// SafetyBoost is the additive score bump for safety-relevant passages.
	SafetyBoost float64 `yaml:"safety_boost"`

	// DefaultLimit and MaxLimit bound how many results a query returns.
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`

	// MaxVariants caps bilingual query expansion output.
	MaxVariants int `yaml:"max_variants"`

	// LexiconPath points to a YAML lexicon overriding the built-in
	// Korean/English dictionary. Empty uses the built-in.
	LexiconPath string `yaml:"lexicon_path"`

	// DenseBackend selects the vector index: "linear" (default, exact)
	// or "hnsw" (approximate, for large corpora).
	DenseBackend string `yaml:"dense_backend"`

	// FuzzyRatio is the sparse-path edit-distance tolerance as a
	// fraction of term length.
	FuzzyRatio float64 `yaml:"fuzzy_ratio"`

	// Boosts are the per-field sparse query weights.
	Boosts store.FieldBoosts `yaml:"boosts"`
}

// EmbedderConfig configures the embedding provider.
type EmbedderConfig struct {
	// Provider selects the embedder: "http" (embedding service) or
	// "static" (deterministic hash-based, offline).
	Provider string `yaml:"provider"`

	// Endpoint is the embedding service URL (http provider).
	Endpoint string `yaml:"endpoint"`

	// Model is the embedding model identifier.
	Model string `yaml:"model"`

	// Dimensions is the expected embedding dimensionality. Zero adopts
	// the service's dimensionality on first use.
	Dimensions int `yaml:"dimensions"`

	// Timeout bounds a single embedding request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int `yaml:"max_retries"`

	// CacheSize is the query-embedding LRU capacity. Zero disables
	// caching.
	CacheSize int `yaml:"cache_size"`
}

// CorpusConfig configures corpus loading.
type CorpusConfig struct {
	// Path is the JSONL corpus file.
	Path string `yaml:"path"`

	// Watch reloads the index when the corpus file changes.
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces rapid file events into one reload.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// TelemetryConfig configures local query telemetry.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite file for persisted aggregates. Empty keeps
	// telemetry memory-only.
	DBPath string `yaml:"db_path"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Search: SearchConfig{
			RRFConstant:  60,
			SafetyBoost:  0.2,
			DefaultLimit: 5,
			MaxLimit:     50,
			MaxVariants:  16,
			DenseBackend: store.DenseBackendLinear,
			FuzzyRatio:   0.2,
			Boosts:       store.DefaultFieldBoosts(),
		},
		Embedder: EmbedderConfig{
			Provider:   "static",
			Endpoint:   "http://localhost:8089",
			Model:      "bge-m3",
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			CacheSize:  512,
		},
		Corpus: CorpusConfig{
			Path:          defaultCorpusPath(),
			Watch:         false,
			WatchDebounce: 500 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			DBPath:  "",
		},
		Logging: logging.DefaultConfig(),
	}
}

func defaultCorpusPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".safesearch", "corpus.jsonl")
	}
	return filepath.Join(home, ".safesearch", "corpus.jsonl")
}

// DefaultConfigPath returns the user config path, honoring XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "safesearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "safesearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "safesearch", "config.yaml")
}

// Load builds the configuration: defaults, then the YAML file at path
// (or the default path when empty; a missing file is fine), then
// SAFESEARCH_* env overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML merges non-zero values from a YAML file over the defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.SafetyBoost != 0 {
		c.Search.SafetyBoost = other.Search.SafetyBoost
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.MaxVariants != 0 {
		c.Search.MaxVariants = other.Search.MaxVariants
	}
	if other.Search.LexiconPath != "" {
		c.Search.LexiconPath = other.Search.LexiconPath
	}
	if other.Search.DenseBackend != "" {
		c.Search.DenseBackend = other.Search.DenseBackend
	}
	if other.Search.FuzzyRatio != 0 {
		c.Search.FuzzyRatio = other.Search.FuzzyRatio
	}
	if other.Search.Boosts.Title != 0 {
		c.Search.Boosts.Title = other.Search.Boosts.Title
	}
	if other.Search.Boosts.Equipment != 0 {
		c.Search.Boosts.Equipment = other.Search.Boosts.Equipment
	}
	if other.Search.Boosts.Component != 0 {
		c.Search.Boosts.Component = other.Search.Boosts.Component
	}
	if other.Search.Boosts.Text != 0 {
		c.Search.Boosts.Text = other.Search.Boosts.Text
	}

	if other.Embedder.Provider != "" {
		c.Embedder.Provider = other.Embedder.Provider
	}
	if other.Embedder.Endpoint != "" {
		c.Embedder.Endpoint = other.Embedder.Endpoint
	}
	if other.Embedder.Model != "" {
		c.Embedder.Model = other.Embedder.Model
	}
	if other.Embedder.Dimensions != 0 {
		c.Embedder.Dimensions = other.Embedder.Dimensions
	}
	if other.Embedder.Timeout != 0 {
		c.Embedder.Timeout = other.Embedder.Timeout
	}
	if other.Embedder.MaxRetries != 0 {
		c.Embedder.MaxRetries = other.Embedder.MaxRetries
	}
	if other.Embedder.CacheSize != 0 {
		c.Embedder.CacheSize = other.Embedder.CacheSize
	}

	if other.Corpus.Path != "" {
		c.Corpus.Path = other.Corpus.Path
	}
	if other.Corpus.Watch {
		c.Corpus.Watch = true
	}
	if other.Corpus.WatchDebounce != 0 {
		c.Corpus.WatchDebounce = other.Corpus.WatchDebounce
	}

	if other.Telemetry.DBPath != "" {
		c.Telemetry.DBPath = other.Telemetry.DBPath
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies SAFESEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SAFESEARCH_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("SAFESEARCH_SAFETY_BOOST"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil && b >= 0 {
			c.Search.SafetyBoost = b
		}
	}
	if v := os.Getenv("SAFESEARCH_DENSE_BACKEND"); v != "" {
		c.Search.DenseBackend = v
	}
	if v := os.Getenv("SAFESEARCH_EMBEDDER"); v != "" {
		c.Embedder.Provider = v
	}
	if v := os.Getenv("SAFESEARCH_EMBED_ENDPOINT"); v != "" {
		c.Embedder.Endpoint = v
	}
	if v := os.Getenv("SAFESEARCH_EMBED_MODEL"); v != "" {
		c.Embedder.Model = v
	}
	if v := os.Getenv("SAFESEARCH_CORPUS"); v != "" {
		c.Corpus.Path = v
	}
	if v := os.Getenv("SAFESEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SAFESEARCH_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.SafetyBoost < 0 {
		return fmt.Errorf("search.safety_boost must be non-negative, got %f", c.Search.SafetyBoost)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be >= search.default_limit (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.FuzzyRatio < 0 || c.Search.FuzzyRatio > 1 {
		return fmt.Errorf("search.fuzzy_ratio must be between 0 and 1, got %f", c.Search.FuzzyRatio)
	}
	if err := store.ValidateDenseBackend(c.Search.DenseBackend); err != nil {
		return err
	}

	switch strings.ToLower(c.Embedder.Provider) {
	case "http", "static":
	default:
		return fmt.Errorf("embedder.provider must be 'http' or 'static', got %s", c.Embedder.Provider)
	}
	if c.Embedder.Provider == "http" && c.Embedder.Endpoint == "" {
		return fmt.Errorf("embedder.endpoint is required for the http provider")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
