package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jihwankim/cfgfuzz/pkg/artifact"
	"github.com/jihwankim/cfgfuzz/pkg/category"
	"github.com/jihwankim/cfgfuzz/pkg/config"
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
	"github.com/jihwankim/cfgfuzz/pkg/emergency"
	"github.com/jihwankim/cfgfuzz/pkg/knowledge"
	"github.com/jihwankim/cfgfuzz/pkg/liveness"
	"github.com/jihwankim/cfgfuzz/pkg/metrics"
	"github.com/jihwankim/cfgfuzz/pkg/mutator"
	"github.com/jihwankim/cfgfuzz/pkg/noderunner"
	"github.com/jihwankim/cfgfuzz/pkg/orchestrator"
	"github.com/jihwankim/cfgfuzz/pkg/reporting"
	"github.com/jihwankim/cfgfuzz/pkg/verdict"
	"github.com/jihwankim/cfgfuzz/pkg/worker"
)

var fuzzCmd = &cobra.Command{
	Use:   "fuzz",
	Args:  cobra.NoArgs,
	Short: "Run the configuration-mutation fuzz loop against a pool of node workers",
	Long: `fuzz builds one worker per node directory, each owning its own
config_pool, and drives them through a shared worker pool: pick a base
config, mutate one key, restart the node, classify survival, and feed the
outcome back into a knowledge base every worker benefits from.`,
	RunE: runFuzz,
}

func init() {
	fuzzCmd.Flags().StringArray("node-dir", nil, "a node's working directory (repeatable; one worker per entry)")
	fuzzCmd.Flags().String("nodes-root", "", "scan this directory's immediate subdirectories, one per node")
	fuzzCmd.Flags().String("config-map", "", "path to config_type_map.json (overrides config.yaml)")
	fuzzCmd.Flags().String("dialect", "", "ini|yaml|toml (default: sniff per node from its file extension)")
	fuzzCmd.Flags().Int("exploration-workers", -1, "number of workers running the exploration role (default: config.yaml)")
	fuzzCmd.Flags().Int64("seed", 0, "RNG seed for this run's candidate draws (0 = derive from current time)")
	fuzzCmd.Flags().Int("report-interval", -1, "completed rounds between report rewrites (default: config.yaml)")
	fuzzCmd.Flags().Bool("dry-run", false, "validate configuration and print the worker plan without starting any node")
	fuzzCmd.Flags().String("results-dir", "", "artifact/report output directory (overrides config.yaml)")
}

func runFuzz(cmd *cobra.Command, _ []string) error {
	nodeDirFlag, _ := cmd.Flags().GetStringArray("node-dir")
	nodesRoot, _ := cmd.Flags().GetString("nodes-root")
	configMap, _ := cmd.Flags().GetString("config-map")
	dialectFlag, _ := cmd.Flags().GetString("dialect")
	explorationWorkers, _ := cmd.Flags().GetInt("exploration-workers")
	seed, _ := cmd.Flags().GetInt64("seed")
	reportInterval, _ := cmd.Flags().GetInt("report-interval")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	resultsDir, _ := cmd.Flags().GetString("results-dir")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	nodeDirs, err := discoverNodeDirs(nodeDirFlag, nodesRoot)
	if err != nil {
		return fmt.Errorf("discovering node directories: %w", err)
	}
	cfg.NodeDirs = nodeDirs

	if configMap != "" {
		cfg.Fuzz.ConfigMapPath = configMap
	}
	if dialectFlag != "" {
		cfg.Node.Dialect = dialectFlag
	}
	if explorationWorkers >= 0 {
		cfg.Fuzz.ExplorationWorkers = explorationWorkers
	}
	if seed != 0 {
		cfg.Fuzz.Seed = seed
	} else if cfg.Fuzz.Seed == 0 {
		cfg.Fuzz.Seed = time.Now().UnixNano()
	}
	if reportInterval > 0 {
		cfg.Fuzz.ReportInterval = reportInterval
	}
	if resultsDir != "" {
		cfg.Reporting.OutputDir = resultsDir
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logLevel := reporting.LogLevelInfo
	if verbose {
		logLevel = reporting.LogLevelDebug
	}
	logger := reporting.NewLogger(reporting.LoggerConfig{
		Level:  logLevel,
		Format: reporting.LogFormat(cfg.Framework.LogFormat),
		Output: os.Stdout,
	})
	logger.Info("cfgfuzz starting", "version", version, "nodes", len(cfg.NodeDirs), "seed", cfg.Fuzz.Seed)

	classifier := category.Empty()
	if cfg.Fuzz.ConfigMapPath != "" {
		classifier, err = category.Load(cfg.Fuzz.ConfigMapPath)
		if err != nil {
			return fmt.Errorf("loading config type map: %w", err)
		}
	}

	kb := knowledge.New(cfg.Fuzz.ConsistentThreshold)
	artifacts := artifact.New(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN)
	restartMutex := &sync.Mutex{}

	plan, err := buildWorkers(cmd.Context(), cfg, classifier, kb, artifacts, restartMutex, logger)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Println("worker plan (dry-run, no node started):")
		for _, w := range plan {
			fmt.Printf("  %-12s role=%-11s config=%s\n", w.worker.Name, w.worker.Role, w.configPath)
		}
		return nil
	}

	workers := make([]*worker.Worker, len(plan))
	for i, p := range plan {
		workers[i] = p.worker
	}

	if err := os.MkdirAll(cfg.Reporting.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating results dir %q: %w", cfg.Reporting.OutputDir, err)
	}
	reportPath := filepath.Join(cfg.Reporting.OutputDir, "report.txt")

	orch := orchestrator.New(workers, kb, cfg.Fuzz.ReportInterval, reportPath, logger)

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	emergencyCtrl := emergency.New(emergency.Config{
		StopFile:     cfg.Emergency.StopFile,
		PollInterval: time.Second,
	})
	emergencyCtrl.OnStop(cancel)
	emergencyCtrl.Start(ctx)

	if cfg.Metrics.Enabled {
		m := metrics.New()
		byName := make(map[string]*worker.Worker, len(workers))
		for _, w := range workers {
			byName[w.Name] = w
		}
		orch.OnRound(func(workerName string, role worker.Role, outcome worker.RoundOutcome) {
			m.ObserveRound(workerName, role, outcome)
			m.SetConsistentItems(len(kb.Snapshot().ConsistentItems))
			if w, ok := byName[workerName]; ok {
				m.SetConfigPoolSize(workerName, w.ConfigPoolSize())
			}
		})
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.ListenAddr); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		logger.Info("metrics exporter started", "addr", cfg.Metrics.ListenAddr)
	}

	logger.Info("fuzz loop starting", "workers", len(workers))
	orch.Run(ctx)
	logger.Info("fuzz loop stopped")
	return nil
}

// workerPlan pairs a built Worker with the config path it owns, so --dry-run
// can print the plan without constructing the Orchestrator.
type workerPlan struct {
	worker     *worker.Worker
	configPath string
}

// buildWorkers constructs one Worker per cfg.NodeDirs entry: loads its
// config tree, wires a NodeRunner for cfg.Node.Runtime, and assigns the
// exploration role to the first cfg.Fuzz.ExplorationWorkers entries (spec
// §4.6, §10.2).
func buildWorkers(ctx context.Context, cfg *config.Config, classifier *category.Classifier, kb *knowledge.KnowledgeBase, artifacts *artifact.Store, restartMutex *sync.Mutex, logger *reporting.Logger) ([]workerPlan, error) {
	var dialectOverride configtree.Dialect
	if cfg.Node.Dialect != "" {
		dialectOverride = configtree.Dialect(cfg.Node.Dialect)
	}

	var evmProbe *liveness.EVMProbe
	if cfg.Node.EVMRPCURL != "" {
		evmProbe = liveness.NewEVMProbe(cfg.Node.EVMRPCURL)
	}

	plan := make([]workerPlan, 0, len(cfg.NodeDirs))
	for i, nodeDir := range cfg.NodeDirs {
		name := filepath.Base(nodeDir)

		configPath, dialect, err := discoverNodeConfig(nodeDir, dialectOverride)
		if err != nil {
			return nil, err
		}
		store, err := configtree.NewStore(dialect)
		if err != nil {
			return nil, err
		}
		if err := configtree.BackupOriginal(configPath); err != nil {
			return nil, fmt.Errorf("backing up %q: %w", configPath, err)
		}
		tree, err := store.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", configPath, err)
		}

		runner, err := buildRunner(ctx, cfg, nodeDir, name, configPath)
		if err != nil {
			return nil, err
		}

		var checker *liveness.Checker
		if evmProbe != nil {
			checker = &liveness.Checker{Runner: runner, EVM: evmProbe}
		}

		engine := &verdict.Engine{
			WorkerName:  name,
			ConfigStore: store,
			ConfigPath:  configPath,
			ConfigExt:   filepath.Ext(configPath),
			Runner:      runner,
			Checker:     checker,
			Artifacts:   artifacts,
			Timing: verdict.Timing{
				PostRestartDelay: cfg.Timing.PostRestartDelay,
				CheckTimes:       cfg.Timing.CheckTimes,
				RunTimeForCrash:  cfg.Timing.RunTimeForCrash,
			},
			RestartMutex: restartMutex,
		}

		role := worker.RoleFuzzing
		if i < cfg.Fuzz.ExplorationWorkers {
			role = worker.RoleExploration
		}

		w := worker.New(name, role, cfg.Fuzz.Seed+int64(i), tree, classifier, mutator.New(cfg.Fuzz.Seed+int64(i)), kb, engine, logger)
		plan = append(plan, workerPlan{worker: w, configPath: configPath})
	}
	return plan, nil
}

// buildRunner constructs the NodeRunner for one node directory, per
// cfg.Node.Runtime (spec §11.5).
func buildRunner(ctx context.Context, cfg *config.Config, nodeDir, name, configPath string) (noderunner.Runner, error) {
	logPath := cfg.Node.DefaultLogPath
	if logPath == "" {
		logPath = filepath.Join(nodeDir, "node.log")
	}

	switch cfg.Node.Runtime {
	case config.RuntimeDocker:
		stopTimeout := int(cfg.Timing.StopQuiescence.Seconds())
		return noderunner.NewDockerNodeRunner(ctx, name, logPath, stopTimeout)
	default:
		startScript := cfg.Node.StartScript
		if startScript == "" {
			startScript = filepath.Join(nodeDir, "start.sh")
		}
		stopScript := cfg.Node.StopScript
		if stopScript == "" {
			stopScript = filepath.Join(nodeDir, "stop.sh")
		}

		r, err := noderunner.NewScriptNodeRunner(noderunner.ScriptNodeRunnerConfig{
			WorkerName:      name,
			WorkDir:         nodeDir,
			StartScript:     startScript,
			StopScript:      stopScript,
			LivenessPattern: cfg.Node.LivenessPattern,
			LogPath:         logPath,
			NodeBinary:      cfg.Node.NodeBinary,
			ConfigPath:      configPath,
			GenerateScripts: cfg.Node.GenerateScripts,
		})
		if err != nil {
			return nil, fmt.Errorf("building node runner for %q: %w", nodeDir, err)
		}
		if !cfg.Node.GenerateScripts {
			if err := noderunner.EnsureExecutable(startScript); err != nil {
				return nil, err
			}
			if err := noderunner.EnsureExecutable(stopScript); err != nil {
				return nil, err
			}
		}
		return r, nil
	}
}
