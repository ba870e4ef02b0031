// Package orchestrator wires the worker pool and periodic reporter of spec
// §4.7: one long-lived task per node worker, immediately re-submitted on
// completion, backed by github.com/JekaMas/workerpool (promoted from an
// indirect teacher dependency, spec §11.2).
package orchestrator

import (
	"context"
	"sync/atomic"

	"github.com/JekaMas/workerpool"

	"github.com/jihwankim/cfgfuzz/pkg/knowledge"
	"github.com/jihwankim/cfgfuzz/pkg/report"
	"github.com/jihwankim/cfgfuzz/pkg/reporting"
	"github.com/jihwankim/cfgfuzz/pkg/verdict"
	"github.com/jihwankim/cfgfuzz/pkg/worker"
)

// DefaultReportInterval is REPORT_INTERVAL (spec §6): the reporter wakes
// every this-many completed rounds, across all workers combined.
const DefaultReportInterval = 20

// Orchestrator owns the fixed-size worker pool (size == len(workers)) and
// the periodic Reporter.
type Orchestrator struct {
	workers        []*worker.Worker
	knowledge      *knowledge.KnowledgeBase
	reportInterval int64
	reportPath     string
	logger         *reporting.Logger

	completedRounds atomic.Int64
	onRound         func(workerName string, role worker.Role, outcome worker.RoundOutcome) // optional metrics hook
}

// New constructs an Orchestrator over workers, all sharing kb. reportPath is
// the file the Reporter overwrites every reportInterval completed rounds.
func New(workers []*worker.Worker, kb *knowledge.KnowledgeBase, reportInterval int, reportPath string, logger *reporting.Logger) *Orchestrator {
	if reportInterval <= 0 {
		reportInterval = DefaultReportInterval
	}
	return &Orchestrator{
		workers:        workers,
		knowledge:      kb,
		reportInterval: int64(reportInterval),
		reportPath:     reportPath,
		logger:         logger,
	}
}

// OnRound installs a hook invoked after every completed round, used by
// cmd/cfgfuzz to feed the prometheus counters of spec §11.3 without
// pkg/orchestrator importing pkg/metrics directly. workerName/role identify
// which worker produced outcome, since a single Orchestrator fans out
// across many.
func (o *Orchestrator) OnRound(fn func(workerName string, role worker.Role, outcome worker.RoundOutcome)) {
	o.onRound = fn
}

// Run starts the pool and blocks until ctx is cancelled, then drains the
// pool and returns. Per spec §5 there is no graceful round-level shutdown:
// a round already in flight runs to completion.
func (o *Orchestrator) Run(ctx context.Context) {
	pool := workerpool.New(len(o.workers))

	for _, w := range o.workers {
		o.submit(ctx, pool, w)
	}

	<-ctx.Done()
	pool.StopWait()
}

// submit installs w's self-resubmitting task, matching the Python source's
// immediate-resubmission idiom (spec §11.2): the task submits itself again
// from within its own body before returning, unless ctx has been cancelled.
func (o *Orchestrator) submit(ctx context.Context, pool *workerpool.WorkerPool, w *worker.Worker) {
	var task func()
	task = func() {
		defer o.recoverPoolWorkerException(w.Name)
		defer func() {
			if ctx.Err() == nil {
				pool.Submit(task)
			}
		}()

		outcome, err := w.Round(ctx)
		if err != nil {
			o.logger.Error("round failed", "worker", w.Name, "error", err)
			return
		}
		o.onRoundComplete(w, outcome)
	}
	pool.Submit(task)
}

// recoverPoolWorkerException implements spec §7's PoolWorkerException: a
// panicking round is logged and the pool survives, matching the teacher's
// executeInject defer-recover discipline in pkg/core/orchestrator.
func (o *Orchestrator) recoverPoolWorkerException(workerName string) {
	if r := recover(); r != nil {
		o.logger.Error("pool worker exception", "worker", workerName, "panic", r, "error", verdict.ErrPoolWorkerException)
	}
}

func (o *Orchestrator) onRoundComplete(w *worker.Worker, outcome worker.RoundOutcome) {
	if o.onRound != nil {
		o.onRound(w.Name, w.Role, outcome)
	}
	n := o.completedRounds.Add(1)
	if n%o.reportInterval == 0 {
		o.writeReport()
	}
}

func (o *Orchestrator) writeReport() {
	snap := o.knowledge.Snapshot()
	if err := report.WriteFile(snap, o.reportPath); err != nil {
		o.logger.Warn("report write failed", "error", err)
	}
}
