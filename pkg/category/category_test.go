package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMap(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config_type_map.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestClassifyFirstMatchWins(t *testing.T) {
	path := writeMap(t, `[
		{"pattern": "backend", "category": "consensus"},
		{"pattern": "port", "category": "network"},
		{"pattern": "consensus.backend", "category": "transaction"}
	]`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Consensus, c.Classify("consensus.backend"))
	assert.Equal(t, Network, c.Classify("network.port"))
}

func TestClassifyDefaultsToOther(t *testing.T) {
	path := writeMap(t, `[{"pattern": "port", "category": "network"}]`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Other, c.Classify("some.unmatched.key"))
}

func TestClassifyCaseInsensitive(t *testing.T) {
	path := writeMap(t, `[{"pattern": "GAS", "category": "consensus"}]`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Consensus, c.Classify("Consensus.GasLimit"))
}

func TestLoadRejectsUnknownCategory(t *testing.T) {
	path := writeMap(t, `[{"pattern": "x", "category": "bogus"}]`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEmptyClassifierAlwaysOther(t *testing.T) {
	c := Empty()
	assert.Equal(t, Other, c.Classify("anything.at.all"))
}
