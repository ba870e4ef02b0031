package verdict

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
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
)

// fakeStore writes a fixed byte payload to disk on Save, regardless of the
// tree's contents, so tests can assert on the commit side effect without
// depending on a real dialect codec.
type fakeStore struct {
	savedPayload []byte
}

func (s *fakeStore) Load(path string) (*configtree.Tree, error) {
	return configtree.NewTree(true), nil
}

func (s *fakeStore) Save(tree *configtree.Tree, path string) error {
	payload := s.savedPayload
	if payload == nil {
		payload = []byte("fake-payload\n")
	}
	return os.WriteFile(path, payload, 0o644)
}

// fakeRunner lets each test script a sequence of IsAlive results and counts
// Restart invocations.
type fakeRunner struct {
	mu           sync.Mutex
	restartCount int
	aliveResults []bool
	panicLog     string
}

func (r *fakeRunner) Start(ctx context.Context) error { return nil }
func (r *fakeRunner) Stop(ctx context.Context) error  { return nil }

func (r *fakeRunner) Restart(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restartCount++
	return nil
}

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

func (r *fakeRunner) PanicLogPath() string { return r.panicLog }

func newTestEngine(t *testing.T, runner *fakeRunner, artifactRoot string) *Engine {
	t.Helper()
	return &Engine{
		WorkerName:   "worker-0",
		ConfigStore:  &fakeStore{},
		ConfigPath:   filepath.Join(t.TempDir(), "node.yaml"),
		ConfigExt:    ".yaml",
		Runner:       runner,
		Artifacts:    artifact.New(artifactRoot, 0),
		RestartMutex: &sync.Mutex{},
		Timing: Timing{
			PostRestartDelay: time.Millisecond,
			CheckTimes:       3,
			RunTimeForCrash:  3 * time.Millisecond,
		},
	}
}

func TestRunSurvivedWhenAlwaysAlive(t *testing.T) {
	runner := &fakeRunner{}
	engine := newTestEngine(t, runner, t.TempDir())

	tree := configtree.NewTree(true)
	tree.Set("node.port", configtree.IntLeaf(30303))

	result := engine.Run(context.Background(), tree, time.Now())

	assert.Equal(t, Survived, result.Classification)
	assert.NoError(t, result.Err)
	assert.Equal(t, 1, runner.restartCount)
}

func TestRunStartupFailureWhenDeadAfterRestart(t *testing.T) {
	runner := &fakeRunner{aliveResults: []bool{false}}
	root := t.TempDir()
	engine := newTestEngine(t, runner, root)

	tree := configtree.NewTree(true)
	result := engine.Run(context.Background(), tree, time.Now())

	require.Equal(t, StartupFailure, result.Classification)
	require.ErrorIs(t, result.Err, ErrStartupFailure)
	assert.FileExists(t, filepath.Join(result.ArtifactDir, "start_error.yaml"))
}

func TestRunRuntimeFailureWhenDeathMidSustain(t *testing.T) {
	// alive for the start check, then dies on the second sustain probe.
	runner := &fakeRunner{aliveResults: []bool{true, true, false}}
	root := t.TempDir()
	engine := newTestEngine(t, runner, root)

	tree := configtree.NewTree(true)
	result := engine.Run(context.Background(), tree, time.Now())

	require.Equal(t, RuntimeFailure, result.Classification)
	require.ErrorIs(t, result.Err, ErrRuntimeFailure)
	assert.FileExists(t, filepath.Join(result.ArtifactDir, "runtime_error.yaml"))
}

func TestStartupFailureDedupesRepeatedPanicSignature(t *testing.T) {
	panicLog := filepath.Join(t.TempDir(), "node.log")
	require.NoError(t, os.WriteFile(panicLog, []byte("panic: out of memory at 0xdeadbeef\n"), 0o644))

	runner := &fakeRunner{aliveResults: []bool{false, false}, panicLog: panicLog}
	root := t.TempDir()
	engine := newTestEngine(t, runner, root)

	tree := configtree.NewTree(true)

	first := engine.Run(context.Background(), tree, time.Now())
	require.Equal(t, StartupFailure, first.Classification)
	assert.FileExists(t, filepath.Join(first.ArtifactDir, "panic_error.yaml"))

	runner.aliveResults = []bool{false}
	second := engine.Run(context.Background(), tree, time.Now().Add(time.Second))
	require.Equal(t, StartupFailure, second.Classification)
	assert.FileExists(t, filepath.Join(second.ArtifactDir, "start_error.yaml"))
}
