package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the orchestrator's own configuration, distinct from the fuzzed
// node configuration it manipulates at runtime (spec §10.2).
type Config struct {
	Framework FrameworkConfig `yaml:"framework"`
	Fuzz      FuzzConfig      `yaml:"fuzz"`
	Node      NodeConfig      `yaml:"node"`
	Timing    TimingConfig    `yaml:"timing"`
	Reporting ReportingConfig `yaml:"reporting"`
	Emergency EmergencyConfig `yaml:"emergency"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	// NodeDirs is the set of per-worker working directories; one worker, and
	// one Verdict engine, is constructed per entry.
	NodeDirs []string `yaml:"node_dirs"`
}

// FrameworkConfig contains general framework settings, unchanged from the
// teacher.
type FrameworkConfig struct {
	Version   string `yaml:"version"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// FuzzConfig carries the fuzz session's own parameters (spec §4.6, §6),
// replacing the teacher's Kurtosis-enclave-specific KurtosisConfig.
type FuzzConfig struct {
	ConfigMapPath       string `yaml:"config_map_path"`
	ExplorationWorkers  int    `yaml:"exploration_workers"`
	Seed                int64  `yaml:"seed"`
	ReportInterval      int    `yaml:"report_interval"`
	ConsistentThreshold int    `yaml:"consistent_threshold"`
}

// Runtime selects how NodeConfig's Start/Stop contract is executed.
type Runtime string

const (
	RuntimeProcess Runtime = "process"
	RuntimeDocker  Runtime = "docker"
)

// NodeConfig describes how to control and read the node under test,
// replacing the teacher's Docker-sidecar-specific DockerConfig.
type NodeConfig struct {
	Dialect         string  `yaml:"dialect"` // "ini" | "yaml" | "toml"; empty sniffs from extension
	Runtime         Runtime `yaml:"runtime"`
	StartScript     string  `yaml:"start_script"`
	StopScript      string  `yaml:"stop_script"`
	LivenessPattern string  `yaml:"liveness_pattern"`
	DefaultLogPath  string  `yaml:"default_log_path"`
	GenerateScripts bool    `yaml:"generate_scripts"`
	NodeBinary      string  `yaml:"node_binary"` // only consulted when GenerateScripts is set (§12)
	EVMRPCURL       string  `yaml:"evm_rpc_url"` // optional EVM precompile sanity sub-probe (§11.4)
}

// TimingConfig carries the §6 Tunables, replacing the teacher's
// warmup/cooldown-oriented ExecutionConfig with the fuzz loop's own timing
// constants.
type TimingConfig struct {
	CheckTimes       int           `yaml:"check_times"`
	RunTimeForCrash  time.Duration `yaml:"run_time_for_crash"`
	PostRestartDelay time.Duration `yaml:"post_restart_delay"`
	StopQuiescence   time.Duration `yaml:"stop_quiescence"`
}

// ReportingConfig contains reporting and artifact retention settings,
// unchanged from the teacher.
type ReportingConfig struct {
	OutputDir string   `yaml:"output_dir"`
	KeepLastN int      `yaml:"keep_last_n"`
	Formats   []string `yaml:"formats"`
}

// EmergencyConfig contains emergency stop settings, unchanged from the
// teacher.
type EmergencyConfig struct {
	StopFile           string        `yaml:"stop_file"`
	AutoCleanupTimeout time.Duration `yaml:"auto_cleanup_timeout"`
}

// MetricsConfig backs the optional Prometheus exporter of spec §11.3.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			Version:   "v1",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Fuzz: FuzzConfig{
			ExplorationWorkers:  1,
			ReportInterval:      20,
			ConsistentThreshold: 10,
		},
		Node: NodeConfig{
			Runtime: RuntimeProcess,
		},
		Timing: TimingConfig{
			CheckTimes:       5,
			RunTimeForCrash:  20 * time.Second,
			PostRestartDelay: 5 * time.Second,
			StopQuiescence:   3 * time.Second,
		},
		Reporting: ReportingConfig{
			OutputDir: "./results",
			KeepLastN: 50,
			Formats:   []string{"text"},
		},
		Emergency: EmergencyConfig{
			StopFile:           "/tmp/cfgfuzz-emergency-stop",
			AutoCleanupTimeout: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9091",
		},
	}
}

// Load loads configuration from a YAML file, applying os.ExpandEnv the same
// way the teacher's config.Load does.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", path, err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %q: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %q: %w", path, err)
	}
	return nil
}

// Validate checks required fields (spec §10.2): every node directory must
// exist, the config-type map must exist when a path is set, and the
// exploration-worker count
// must leave at least one fuzzing worker.
func (c *Config) Validate() error {
	if len(c.NodeDirs) == 0 {
		return fmt.Errorf("config: at least one node_dirs entry is required")
	}
	for _, dir := range c.NodeDirs {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("config: node_dirs entry %q: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("config: node_dirs entry %q is not a directory", dir)
		}
	}
	if c.Fuzz.ConfigMapPath != "" {
		if _, err := os.Stat(c.Fuzz.ConfigMapPath); err != nil {
			return fmt.Errorf("config: fuzz.config_map_path %q: %w", c.Fuzz.ConfigMapPath, err)
		}
	}
	if c.Fuzz.ExplorationWorkers < 0 || c.Fuzz.ExplorationWorkers >= len(c.NodeDirs) {
		return fmt.Errorf("config: fuzz.exploration_workers (%d) must be less than the number of nodes (%d)", c.Fuzz.ExplorationWorkers, len(c.NodeDirs))
	}
	if c.Node.Runtime != RuntimeProcess && c.Node.Runtime != RuntimeDocker {
		return fmt.Errorf("config: node.runtime must be %q or %q, got %q", RuntimeProcess, RuntimeDocker, c.Node.Runtime)
	}
	return nil
}
