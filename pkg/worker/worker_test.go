package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/cfgfuzz/pkg/artifact"
	"github.com/jihwankim/cfgfuzz/pkg/category"
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
	"github.com/jihwankim/cfgfuzz/pkg/knowledge"
	"github.com/jihwankim/cfgfuzz/pkg/mutator"
	"github.com/jihwankim/cfgfuzz/pkg/reporting"
	"github.com/jihwankim/cfgfuzz/pkg/verdict"
)

// fakeRunner scripts a fixed sequence of IsAlive results for the Verdict
// engine under test.
type fakeRunner struct {
	mu           sync.Mutex
	aliveResults []bool
}

func (r *fakeRunner) Start(ctx context.Context) error   { return nil }
func (r *fakeRunner) Stop(ctx context.Context) error    { return nil }
func (r *fakeRunner) Restart(ctx context.Context) error { return nil }
func (r *fakeRunner) PanicLogPath() string              { return "" }

func (r *fakeRunner) IsAlive(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.aliveResults) == 0 {
		return true, nil
	}
	next := r.aliveResults[0]
	r.aliveResults = r.aliveResults[1:]
	return next, nil
}

func loadFixtureTree(t *testing.T, yamlBody string) (*configtree.Tree, configtree.Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	store, err := configtree.NewStore(configtree.DialectYAML)
	require.NoError(t, err)
	tree, err := store.Load(path)
	require.NoError(t, err)
	return tree, store, path
}

func newTestWorker(t *testing.T, role Role, tree *configtree.Tree, store configtree.Store, path string, alive []bool) *Worker {
	t.Helper()
	kb := knowledge.New(10)
	m := mutator.New(1)
	engine := &verdict.Engine{
		WorkerName:   "node-0",
		ConfigStore:  store,
		ConfigPath:   path,
		ConfigExt:    ".yaml",
		Runner:       &fakeRunner{aliveResults: alive},
		Artifacts:    artifact.New(t.TempDir(), 0),
		RestartMutex: &sync.Mutex{},
		Timing: verdict.Timing{
			PostRestartDelay: time.Millisecond,
			CheckTimes:       1,
			RunTimeForCrash:  time.Millisecond,
		},
	}
	logger := reporting.NewLogger(reporting.LoggerConfig{Level: reporting.LogLevelError})
	return New("node-0", role, 42, tree, category.Empty(), m, kb, engine, logger)
}

func TestRoundSurvivalGrowsConfigPool(t *testing.T) {
	tree, store, path := loadFixtureTree(t, "net:\n  enable_tls: true\n")
	w := newTestWorker(t, RoleFuzzing, tree, store, path, nil)

	outcome, err := w.Round(context.Background())
	require.NoError(t, err)

	assert.Equal(t, verdict.Survived, outcome.Classification)
	assert.Len(t, w.configPool, 2)
}

func TestRoundFailureKeepsConfigPoolSize(t *testing.T) {
	tree, store, path := loadFixtureTree(t, "net:\n  enable_tls: true\n")
	w := newTestWorker(t, RoleFuzzing, tree, store, path, []bool{false})

	outcome, err := w.Round(context.Background())
	require.NoError(t, err)

	assert.Equal(t, verdict.StartupFailure, outcome.Classification)
	assert.Len(t, w.configPool, 1)
	assert.True(t, w.Knowledge.IsKnownFailure(outcome.Key, failureCandidateFor(t, w, outcome)))
}

// failureCandidateFor re-derives the candidate recorded for outcome by
// reading it back out of the pool's base tree's current value space: since
// the test only has one key in play, any known-failure value for that key
// satisfies the assertion regardless of which one the round picked.
func failureCandidateFor(t *testing.T, w *Worker, outcome RoundOutcome) configtree.Leaf {
	t.Helper()
	if outcome.Key == "" {
		return configtree.NotPresent
	}
	for _, v := range []configtree.Leaf{configtree.BoolLeaf(false), configtree.DeleteSentinel} {
		if w.Knowledge.IsKnownFailure(outcome.Key, v) {
			return v
		}
	}
	return configtree.NotPresent
}

func TestGenCandidateFallsBackToOriginalOnExhaustion(t *testing.T) {
	tree, store, path := loadFixtureTree(t, "net:\n  enable_tls: true\n")
	w := newTestWorker(t, RoleExploration, tree, store, path, nil)

	key := "net.enable_tls"
	// Exploration rejects both known failures and known successes; seed
	// both boolean values as already known so every candidate is rejected.
	w.Knowledge.RecordFailure(key, configtree.BoolLeaf(true))
	w.Knowledge.RecordSuccess(key, configtree.BoolLeaf(false))

	candidate := w.genCandidate(tree, key, category.Network)
	assert.Equal(t, tree.Original(key), candidate)
}

func TestExplorationNeverProposesKnownSuccess(t *testing.T) {
	tree, store, path := loadFixtureTree(t, "net:\n  enable_tls: true\n")
	w := newTestWorker(t, RoleExploration, tree, store, path, nil)

	key := "net.enable_tls"
	w.Knowledge.RecordSuccess(key, configtree.BoolLeaf(false))

	assert.True(t, w.rejectedByPolicy(key, configtree.BoolLeaf(false)))
}

func TestFuzzingMayProposeKnownSuccess(t *testing.T) {
	tree, store, path := loadFixtureTree(t, "net:\n  enable_tls: true\n")
	w := newTestWorker(t, RoleFuzzing, tree, store, path, nil)

	key := "net.enable_tls"
	w.Knowledge.RecordSuccess(key, configtree.BoolLeaf(false))

	assert.False(t, w.rejectedByPolicy(key, configtree.BoolLeaf(false)))
}

func TestPickKeyExcludesListLeaves(t *testing.T) {
	tree, store, path := loadFixtureTree(t, "peers:\n  - a\n  - b\nnet:\n  enable_tls: true\n")
	w := newTestWorker(t, RoleFuzzing, tree, store, path, nil)

	for i := 0; i < 20; i++ {
		key, ok := w.pickKey(tree)
		require.True(t, ok)
		assert.Equal(t, "net.enable_tls", key)
	}
}
