package store

import (
	"fmt"
	"log/slog"
)

// NewDenseIndex creates a dense index for the configured backend.
// Unknown backends fall back to the linear scan with a warning rather than
// failing startup: an exact scan is always a safe default.
func NewDenseIndex(cfg DenseConfig) (DenseIndex, error) {
	switch cfg.Backend {
	case DenseBackendLinear, "":
		return NewLinearDenseIndex(cfg), nil
	case DenseBackendHNSW:
		return NewHNSWDenseIndex(cfg), nil
	default:
		slog.Warn("unknown_dense_backend",
			slog.String("backend", cfg.Backend),
			slog.String("fallback", DenseBackendLinear))
		return NewLinearDenseIndex(cfg), nil
	}
}

// ValidateDenseBackend reports whether backend is a supported value.
// Used by config validation so typos surface at startup, not first query.
func ValidateDenseBackend(backend string) error {
	switch backend {
	case "", DenseBackendLinear, DenseBackendHNSW:
		return nil
	default:
		return fmt.Errorf("unsupported dense backend %q (want %q or %q)",
			backend, DenseBackendLinear, DenseBackendHNSW)
	}
}
