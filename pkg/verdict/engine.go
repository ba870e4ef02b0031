// Package verdict implements the Verdict engine of spec §4.5: given a
// candidate mutation, it commits the new config, restarts the node under
// the global restart mutex, runs the staged liveness probes, and
// classifies the round.
package verdict

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jihwankim/cfgfuzz/pkg/artifact"
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
	"github.com/jihwankim/cfgfuzz/pkg/liveness"
	"github.com/jihwankim/cfgfuzz/pkg/noderunner"
)

// Classification is the terminal state a round reaches (spec §4.5 states
// 3-5).
type Classification int

const (
	Survived Classification = iota
	StartupFailure
	RuntimeFailure
)

func (c Classification) String() string {
	switch c {
	case Survived:
		return "survived"
	case StartupFailure:
		return "startup_failure"
	case RuntimeFailure:
		return "runtime_failure"
	default:
		return "unknown"
	}
}

// Timing carries the §6 tunables a single Engine instance applies.
type Timing struct {
	PostRestartDelay time.Duration
	CheckTimes       int
	RunTimeForCrash  time.Duration
}

// DefaultTiming matches the spec's default tunables (§6): a 5s post-restart
// delay, 5 sustain probes spread across a 20s window.
var DefaultTiming = Timing{
	PostRestartDelay: 5 * time.Second,
	CheckTimes:       5,
	RunTimeForCrash:  20 * time.Second,
}

// Engine drives one worker's round through Commit -> Restart -> StartCheck
// -> SustainCheck -> classify (spec §4.5). One Engine is owned by exactly
// one Worker; RestartMutex is the single process-wide lock shared across
// every worker's Engine (spec §5).
type Engine struct {
	WorkerName   string
	ConfigStore  configtree.Store
	ConfigPath   string
	ConfigExt    string
	Runner       noderunner.Runner
	Checker      *liveness.Checker
	Artifacts    *artifact.Store
	Timing       Timing
	RestartMutex *sync.Mutex

	sigsOnce sync.Once
	sigs     *signatureSet
}

func (e *Engine) signatures() *signatureSet {
	e.sigsOnce.Do(func() { e.sigs = newSignatureSet() })
	return e.sigs
}

// Result is the outcome of one Run.
type Result struct {
	Classification Classification
	Err            error
	ArtifactDir    string
}

// Run executes one full round against newTree, which already carries the
// candidate mutation. now is the timestamp used to partition any artifact
// written.
func (e *Engine) Run(ctx context.Context, newTree *configtree.Tree, now time.Time) Result {
	// 1. Commit.
	if err := e.ConfigStore.Save(newTree, e.ConfigPath); err != nil {
		return Result{Classification: RuntimeFailure, Err: fmt.Errorf("verdict: commit: %w", err)}
	}

	// 2. Restart, serialized against every other worker's restart (spec §5).
	e.RestartMutex.Lock()
	restartErr := e.Runner.Restart(ctx)
	e.RestartMutex.Unlock()
	if restartErr != nil {
		// A non-zero restart script is not itself the verdict (spec §7);
		// its effect on the node surfaces through the liveness probes below.
		restartErr = fmt.Errorf("%w: %v", ErrScriptError, restartErr)
	}

	time.Sleep(e.Timing.PostRestartDelay)

	// 3. Start check.
	if alive, err := e.probe(ctx); err != nil || !alive {
		return e.classifyStartupFailure(now)
	}

	// 4. Sustain check: CHECK_TIMES probes spread across RUN_TIME_FOR_CRASH.
	checkTimes := e.Timing.CheckTimes
	if checkTimes <= 0 {
		checkTimes = DefaultTiming.CheckTimes
	}
	perProbe := e.Timing.RunTimeForCrash / time.Duration(checkTimes)
	for i := 0; i < checkTimes; i++ {
		time.Sleep(perProbe)
		alive, err := e.probe(ctx)
		if err == nil && alive {
			continue
		}
		dir, werr := e.writeArtifact(artifact.KindRuntime, now)
		result := Result{Classification: RuntimeFailure, Err: fmt.Errorf("%w", ErrRuntimeFailure), ArtifactDir: dir}
		if werr != nil {
			result.Err = fmt.Errorf("%w (artifact write also failed: %v)", result.Err, werr)
		}
		return result
	}

	// 5. Survived.
	return Result{Classification: Survived}
}

func (e *Engine) probe(ctx context.Context) (bool, error) {
	if e.Checker != nil {
		return e.Checker.Probe(ctx)
	}
	return e.Runner.IsAlive(ctx)
}

// classifyStartupFailure writes a panic_error artifact iff this worker has
// not already archived the same panic signature, else a start_error
// artifact (spec §4.5 step 3, §6, §8 property 9).
func (e *Engine) classifyStartupFailure(now time.Time) Result {
	sig := panicSignature(e.Runner.PanicLogPath())
	kind := artifact.KindStart
	if sig != "" && e.signatures().observe(sig) {
		kind = artifact.KindPanic
	}
	dir, err := e.writeArtifact(kind, now)
	result := Result{Classification: StartupFailure, Err: ErrStartupFailure, ArtifactDir: dir}
	if err != nil {
		result.Err = fmt.Errorf("%w (artifact write also failed: %v)", ErrStartupFailure, err)
	}
	return result
}

// writeArtifact snapshots the config file already written at e.ConfigPath
// (the Commit step persisted it there) alongside the node's panic log, if
// any, into the artifact store's worker/kind partition.
func (e *Engine) writeArtifact(kind artifact.Kind, now time.Time) (string, error) {
	if e.Artifacts == nil {
		return "", nil
	}
	snapshot, err := os.ReadFile(e.ConfigPath)
	if err != nil {
		snapshot = nil
	}
	return e.Artifacts.WriteArtifact(e.WorkerName, kind, now, e.ConfigExt, snapshot, e.Runner.PanicLogPath())
}
