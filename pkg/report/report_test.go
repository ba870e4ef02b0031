package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/cfgfuzz/pkg/knowledge"
)

func TestRenderIncludesAllSections(t *testing.T) {
	snap := knowledge.Snapshot{
		GeneratedAt:         time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		TotalRounds:         42,
		ConsistentItems:     map[string]int{"net.port": 11},
		InconsistentItems:   []string{"net.enable_tls"},
		ConsistentThreshold: 10,
	}

	out := Render(snap)

	assert.Contains(t, out, "###### Configuration Item Consistency Test Status Report")
	assert.Contains(t, out, "Generated Time: 2026-07-31 12:00:00")
	assert.Contains(t, out, "Total Test Count: 42")
	assert.Contains(t, out, "Must-be-consistent Configuration Items (1 items)")
	assert.Contains(t, out, "- net.port    [Failure Count: 11]")
	assert.Contains(t, out, "Can-be-inconsistent Configuration Items (1 items)")
	assert.Contains(t, out, "- net.enable_tls")
	assert.Contains(t, out, "Failure threshold setting: 10")
}

func TestWriteFileWritesRenderedReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	snap := knowledge.Snapshot{GeneratedAt: time.Now(), ConsistentThreshold: 10}

	require.NoError(t, WriteFile(snap, path))
	assert.FileExists(t, path)
}
