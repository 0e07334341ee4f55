package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.ConfidenceFloor)
	assert.Equal(t, 256, cfg.MaxUtteranceLength)
	assert.Equal(t, 2, cfg.NearestShelterCount)
	assert.True(t, cfg.SuggestOnLowConfidence)
	assert.Equal(t, 100, cfg.HistoryDisplayCap)
	assert.Equal(t, "data", cfg.DataDir)
	assert.InDelta(t, 28.6139, cfg.ReferenceLatitude, 1e-9)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rakshak.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"confidence_floor: 0.75\nnearest_shelter_count: 3\nsuggest_on_low_confidence: false\n",
	), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.ConfidenceFloor)
	assert.Equal(t, 3, cfg.NearestShelterCount)
	assert.False(t, cfg.SuggestOnLowConfidence)
	// Untouched keys keep their defaults.
	assert.Equal(t, 256, cfg.MaxUtteranceLength)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RAKSHAK_CONFIDENCE_FLOOR", "0.8")
	t.Setenv("RAKSHAK_DATA_DIR", "/srv/rakshak/data")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.ConfidenceFloor)
	assert.Equal(t, "/srv/rakshak/data", cfg.DataDir)
}

func TestValidation(t *testing.T) {
	t.Run("floor outside unit interval", func(t *testing.T) {
		t.Setenv("RAKSHAK_CONFIDENCE_FLOOR", "1.5")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("zero floor rejected", func(t *testing.T) {
		// 0 would pass silently into the matcher default; it must be an
		// explicit configuration error instead.
		t.Setenv("RAKSHAK_CONFIDENCE_FLOOR", "0")
		_, err := Load("")
		assert.ErrorContains(t, err, "confidence_floor")
	})

	t.Run("shelter count clamped to max", func(t *testing.T) {
		t.Setenv("RAKSHAK_NEAREST_SHELTER_COUNT", "50")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, MaxShelterResults, cfg.NearestShelterCount)
	})

	t.Run("invalid reference location", func(t *testing.T) {
		t.Setenv("RAKSHAK_REFERENCE_LATITUDE", "123.0")
		_, err := Load("")
		assert.Error(t, err)
	})
}
