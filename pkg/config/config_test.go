package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("CFGFUZZ_SEED", "99")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fuzz:\n  seed: ${CFGFUZZ_SEED}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 99, cfg.Fuzz.Seed)
}

func TestValidateRejectsMissingNodeDirs(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	assert.ErrorContains(t, err, "node_dirs")
}

func TestValidateRejectsExplorationWorkersAtOrAboveNodeCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeDirs = []string{t.TempDir()}
	cfg.Fuzz.ExplorationWorkers = 1

	err := cfg.Validate()
	assert.ErrorContains(t, err, "exploration_workers")
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeDirs = []string{t.TempDir(), t.TempDir()}
	cfg.Fuzz.ExplorationWorkers = 1

	assert.NoError(t, cfg.Validate())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeDirs = []string{t.TempDir()}
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.NodeDirs, loaded.NodeDirs)
	assert.Equal(t, cfg.Fuzz, loaded.Fuzz)
}
