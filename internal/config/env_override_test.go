package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("NUDAMU_DB sets database path", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NUDAMU_DB", "/tmp/runs.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/runs.db", cfg.Store.DatabasePath)
	})

	t.Run("NUDAMU_LOG_LEVEL sets level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NUDAMU_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("NUDAMU_CONCURRENCY sets workers", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NUDAMU_CONCURRENCY", "12")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 12, cfg.Solver.Concurrency)
	})

	t.Run("bad NUDAMU_CONCURRENCY fails validation", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NUDAMU_CONCURRENCY", "lots")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.ErrorContains(t, cfg.Validate(), "solver.concurrency")
	})

	t.Run("empty values leave config alone", func(t *testing.T) {
		clearEnv(t)

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultConfig(), cfg)
	})
}

func TestEnvOverrides_BeatFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Store.DatabasePath = "from-file.db"
	require.NoError(t, cfg.Save(path))

	t.Setenv("NUDAMU_DB", "from-env.db")
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", loaded.Store.DatabasePath)
}
