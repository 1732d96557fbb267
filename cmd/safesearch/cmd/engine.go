package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/plantops/safesearch/internal/config"
	"github.com/plantops/safesearch/internal/corpus"
	"github.com/plantops/safesearch/internal/embed"
	"github.com/plantops/safesearch/internal/search"
	"github.com/plantops/safesearch/internal/store"
	"github.com/plantops/safesearch/internal/telemetry"
)

// runtime bundles the wired search stack for one CLI invocation.
type runtime struct {
	cfg     *config.Config
	engine  *search.Engine
	metrics *telemetry.QueryMetrics
}

// close releases engine and telemetry resources.
func (r *runtime) close() {
	if r.metrics != nil {
		if err := r.metrics.Close(); err != nil {
			slog.Warn("telemetry_close_failed", slog.String("error", err.Error()))
		}
	}
	if r.engine != nil {
		if err := r.engine.Close(); err != nil {
			slog.Warn("engine_close_failed", slog.String("error", err.Error()))
		}
	}
}

// buildRuntime loads config, corpus, embedder, telemetry, and the engine.
func buildRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	c, err := corpus.LoadFile(cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", cfg.Corpus.Path, err)
	}

	embedder, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	var metrics *telemetry.QueryMetrics
	if cfg.Telemetry.Enabled {
		var metricsStore telemetry.MetricsStore
		if cfg.Telemetry.DBPath != "" {
			metricsStore, err = telemetry.OpenSQLiteMetricsStore(cfg.Telemetry.DBPath)
			if err != nil {
				// Telemetry is best-effort; fall back to memory-only.
				slog.Warn("telemetry_store_unavailable", slog.String("error", err.Error()))
				metricsStore = nil
			}
		}
		metrics = telemetry.NewQueryMetrics(metricsStore)
	}

	opts := []search.EngineOption{
		search.WithSparseConfig(store.SparseConfig{
			Boosts:     cfg.Search.Boosts,
			FuzzyRatio: cfg.Search.FuzzyRatio,
		}),
		search.WithDenseConfig(store.DenseConfig{
			Backend:    cfg.Search.DenseBackend,
			Dimensions: embedder.Dimensions(),
		}),
	}
	if metrics != nil {
		opts = append(opts, search.WithMetrics(metrics))
	}
	if cfg.Search.LexiconPath != "" {
		lex, err := search.LoadLexicon(cfg.Search.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon %s: %w", cfg.Search.LexiconPath, err)
		}
		opts = append(opts, search.WithLexicon(lex))
	}

	engine, err := search.NewEngine(c, embedder, search.Config{
		RRFConstant:  cfg.Search.RRFConstant,
		SafetyBoost:  cfg.Search.SafetyBoost,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		MaxVariants:  cfg.Search.MaxVariants,
		EmbedTimeout: cfg.Embedder.Timeout,
	}, opts...)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, engine: engine, metrics: metrics}, nil
}

// buildEmbedder constructs the configured embedder, wrapped in an LRU
// cache when caching is enabled.
func buildEmbedder(cfg config.EmbedderConfig) (embed.Embedder, error) {
	var embedder embed.Embedder
	switch strings.ToLower(cfg.Provider) {
	case "http":
		e, err := embed.NewHTTPEmbedder(embed.HTTPConfig{
			Endpoint:   cfg.Endpoint,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		embedder = e
	default:
		embedder = embed.NewStaticEmbedder()
	}

	if cfg.CacheSize > 0 {
		return embed.NewCachedEmbedder(embedder, cfg.CacheSize), nil
	}
	return embedder, nil
}
