package orchestrator

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
	"github.com/jihwankim/cfgfuzz/pkg/worker"
)

// alwaysAliveRunner keeps every round in the Survived path, so the pool can
// run many fast rounds within a short test context.
type alwaysAliveRunner struct{}

func (alwaysAliveRunner) Start(ctx context.Context) error    { return nil }
func (alwaysAliveRunner) Stop(ctx context.Context) error     { return nil }
func (alwaysAliveRunner) Restart(ctx context.Context) error  { return nil }
func (alwaysAliveRunner) PanicLogPath() string               { return "" }
func (alwaysAliveRunner) IsAlive(ctx context.Context) (bool, error) {
	return true, nil
}

func newFastWorker(t *testing.T, name string, kb *knowledge.KnowledgeBase) *worker.Worker {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("net:\n  enable_tls: true\n"), 0o644))
	store, err := configtree.NewStore(configtree.DialectYAML)
	require.NoError(t, err)
	tree, err := store.Load(path)
	require.NoError(t, err)

	engine := &verdict.Engine{
		WorkerName:   name,
		ConfigStore:  store,
		ConfigPath:   path,
		ConfigExt:    ".yaml",
		Runner:       alwaysAliveRunner{},
		Artifacts:    artifact.New(dir, 0),
		RestartMutex: &sync.Mutex{},
		Timing: verdict.Timing{
			PostRestartDelay: time.Millisecond,
			CheckTimes:       1,
			RunTimeForCrash:  time.Millisecond,
		},
	}
	logger := reporting.NewLogger(reporting.LoggerConfig{Level: reporting.LogLevelError})
	return worker.New(name, worker.RoleFuzzing, 7, tree, category.Empty(), mutator.New(7), kb, engine, logger)
}

func TestOrchestratorRunsRoundsAndWritesReport(t *testing.T) {
	kb := knowledge.New(10)
	w := newFastWorker(t, "node-0", kb)
	reportPath := filepath.Join(t.TempDir(), "report.txt")
	logger := reporting.NewLogger(reporting.LoggerConfig{Level: reporting.LogLevelError})

	o := New([]*worker.Worker{w}, kb, 2, reportPath, logger)

	var rounds int64
	var mu sync.Mutex
	o.OnRound(func(workerName string, role worker.Role, outcome worker.RoundOutcome) {
		mu.Lock()
		rounds++
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	o.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, rounds, int64(1))
	assert.FileExists(t, reportPath)
}
