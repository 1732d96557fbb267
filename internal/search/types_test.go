package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_NormalizedFillsDefaults(t *testing.T) {
	cfg := Config{}.normalized()

	assert.Equal(t, DefaultRRFConstant, cfg.RRFConstant)
	assert.InDelta(t, DefaultSafetyBoost, cfg.SafetyBoost, 1e-12)
	assert.Equal(t, DefaultLimit, cfg.DefaultLimit)
	assert.Equal(t, MaxLimit, cfg.MaxLimit)
	assert.Equal(t, DefaultMaxVariants, cfg.MaxVariants)
	assert.Equal(t, 10*time.Second, cfg.EmbedTimeout)
}

func TestConfig_NormalizedClampsDefaultLimit(t *testing.T) {
	cfg := Config{DefaultLimit: 20, MaxLimit: 10}.normalized()

	assert.Equal(t, 10, cfg.DefaultLimit)
}

func TestConfig_ClampLimit(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultLimit, cfg.clampLimit(0))
	assert.Equal(t, DefaultLimit, cfg.clampLimit(-3))
	assert.Equal(t, 7, cfg.clampLimit(7))
	assert.Equal(t, MaxLimit, cfg.clampLimit(1000))
}
