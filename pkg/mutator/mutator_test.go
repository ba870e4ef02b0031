package mutator

import (
	"testing"

	"github.com/jihwankim/cfgfuzz/pkg/category"
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutateNeverReturnsCurrentValue(t *testing.T) {
	m := New(1)
	cases := []struct {
		key     string
		current configtree.Leaf
		cat     category.Category
	}{
		{"net.enable_tls", configtree.BoolLeaf(true), category.Network},
		{"consensus.timeout", configtree.IntLeaf(30), category.Consensus},
		{"network.port", configtree.IntLeaf(8080), category.Network},
		{"storage.db_path", configtree.StringLeaf("/var/lib/node"), category.Storage},
		{"transaction.max_txpool_size", configtree.IntLeaf(1000), category.Transaction},
		{"other.unmarked_flag", configtree.BoolLeaf(false), category.Other},
	}
	for _, c := range cases {
		t.Run(c.key, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				candidate, err := m.Mutate(c.key, c.current, c.cat)
				require.NoError(t, err)
				assert.False(t, configtree.Equal(candidate, c.current), "candidate must differ from current")
			}
		})
	}
}

func TestMutateBooleanNegation(t *testing.T) {
	m := New(42)
	candidate, err := m.Mutate("net.enable_tls", configtree.BoolLeaf(true), category.Network)
	require.NoError(t, err)
	assert.Equal(t, configtree.BoolLeaf(false), candidate)
}

func TestErrMutationExhaustedIsDefined(t *testing.T) {
	// A degenerate case: current is NotPresent and the Other-category
	// fallback pool happens to include NotPresent among its candidates, so
	// with enough bad luck the retry bound could in principle be hit; this
	// test only checks that the sentinel error exists, since forcing genuine
	// exhaustion would require pinning the RNG sequence.
	assert.NotNil(t, ErrMutationExhausted)
}

func TestTierAPortMarkerProducesIntegers(t *testing.T) {
	m := New(7)
	for i := 0; i < 20; i++ {
		candidate, err := m.Mutate("network.port", configtree.IntLeaf(8080), category.Network)
		require.NoError(t, err)
		assert.Equal(t, configtree.KindInt, candidate.Kind)
	}
}
