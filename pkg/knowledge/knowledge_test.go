package knowledge

import (
	"testing"

	"github.com/jihwankim/cfgfuzz/pkg/configtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFailureIncrementsCounter(t *testing.T) {
	kb := New(DefaultConsistentThreshold)
	kb.RecordFailure("consensus.timeout", configtree.IntLeaf(0))
	kb.RecordFailure("consensus.timeout", configtree.IntLeaf(-1))

	assert.Equal(t, 2, kb.FailureCount("consensus.timeout"))
	assert.True(t, kb.IsKnownFailure("consensus.timeout", configtree.IntLeaf(0)))
	assert.False(t, kb.IsKnownFailure("consensus.timeout", configtree.IntLeaf(99999)))
}

// Scenario B — threshold crossing (spec §8).
func TestThresholdCrossingMarksConsistentItem(t *testing.T) {
	kb := New(3)
	kb.RecordFailure("consensus.timeout", configtree.IntLeaf(0))
	kb.RecordFailure("consensus.timeout", configtree.IntLeaf(-1))
	kb.RecordFailure("consensus.timeout", configtree.IntLeaf(99999))

	require.True(t, kb.IsConsistentItem("consensus.timeout"))
	assert.Equal(t, 3, kb.FailureCount("consensus.timeout"))
}

// Scenario C — success clears the consistency flag (spec §8), continuing
// scenario B.
func TestSuccessClearsConsistentFlag(t *testing.T) {
	kb := New(3)
	kb.RecordFailure("consensus.timeout", configtree.IntLeaf(0))
	kb.RecordFailure("consensus.timeout", configtree.IntLeaf(-1))
	kb.RecordFailure("consensus.timeout", configtree.IntLeaf(99999))
	require.True(t, kb.IsConsistentItem("consensus.timeout"))

	kb.RecordSuccess("consensus.timeout", configtree.IntLeaf(12345))

	assert.False(t, kb.IsConsistentItem("consensus.timeout"))
	snap := kb.Snapshot()
	assert.Contains(t, snap.InconsistentItems, "consensus.timeout")
	assert.NotContains(t, snap.ConsistentItems, "consensus.timeout")
}

func TestIsKnownSuccess(t *testing.T) {
	kb := New(DefaultConsistentThreshold)
	kb.RecordSuccess("net.enable_tls", configtree.BoolLeaf(false))

	assert.True(t, kb.IsKnownSuccess("net.enable_tls", configtree.BoolLeaf(false)))
	assert.False(t, kb.IsKnownSuccess("net.enable_tls", configtree.BoolLeaf(true)))
}

func TestSnapshotReflectsThreshold(t *testing.T) {
	kb := New(5)
	snap := kb.Snapshot()
	assert.Equal(t, 5, snap.ConsistentThreshold)
	assert.Equal(t, 0, snap.TotalRounds)
}

func TestConcurrentRecordFailureIsRaceFree(t *testing.T) {
	kb := New(DefaultConsistentThreshold)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 20; j++ {
				kb.RecordFailure("network.port", configtree.IntLeaf(int64(n*100+j)))
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.Equal(t, 160, kb.FailureCount("network.port"))
}
