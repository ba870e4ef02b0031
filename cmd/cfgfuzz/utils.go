package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jihwankim/cfgfuzz/pkg/config"
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
)

// loadConfig loads the orchestrator configuration from file, auto-generating
// a default one if it does not yet exist, matching the teacher's own
// loadConfig in cmd/chaos-runner/utils.go. Unlike the teacher's version,
// Validate is not called here: NodeDirs is still unpopulated at this point,
// since it comes from --node-dir/--nodes-root flags, not the config file
// alone.
func loadConfig() (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = "config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf("config file not found, creating default configuration at: %s\n", configPath)

		cfg := config.DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// discoverNodeDirs resolves the --node-dir/--nodes-root flags into the final
// ordered list of per-worker directories (spec §10.1).
func discoverNodeDirs(nodeDirs []string, nodesRoot string) ([]string, error) {
	if len(nodeDirs) > 0 {
		return nodeDirs, nil
	}
	if nodesRoot == "" {
		return nil, fmt.Errorf("one of --node-dir or --nodes-root is required")
	}
	entries, err := os.ReadDir(nodesRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning --nodes-root %q: %w", nodesRoot, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(nodesRoot, e.Name()))
		}
	}
	sort.Strings(dirs)
	if len(dirs) == 0 {
		return nil, fmt.Errorf("--nodes-root %q contains no subdirectories", nodesRoot)
	}
	return dirs, nil
}

// discoverNodeConfig finds the single config file under nodeDir and its
// dialect. If dialectOverride is non-empty every node is assumed to use it
// and the file is expected at nodeDir/config.<ext>; otherwise every regular
// file in nodeDir is sniffed and the first recognized one wins (spec §6: the
// live config path lives under the worker's own subdirectory).
func discoverNodeConfig(nodeDir string, dialectOverride configtree.Dialect) (path string, dialect configtree.Dialect, err error) {
	if dialectOverride != "" {
		ext := dialectExtension(dialectOverride)
		candidate := filepath.Join(nodeDir, "config"+ext)
		if _, statErr := os.Stat(candidate); statErr != nil {
			return "", "", fmt.Errorf("node dir %q: expected %s (dialect %q): %w", nodeDir, candidate, dialectOverride, statErr)
		}
		return candidate, dialectOverride, nil
	}

	entries, err := os.ReadDir(nodeDir)
	if err != nil {
		return "", "", fmt.Errorf("scanning node dir %q: %w", nodeDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		candidate := filepath.Join(nodeDir, e.Name())
		if d, sniffErr := configtree.SniffDialect(candidate); sniffErr == nil {
			return candidate, d, nil
		}
	}
	return "", "", fmt.Errorf("node dir %q: no recognizable config file (pass --dialect explicitly)", nodeDir)
}

func dialectExtension(d configtree.Dialect) string {
	switch d {
	case configtree.DialectYAML:
		return ".yaml"
	case configtree.DialectTOML:
		return ".toml"
	case configtree.DialectINI:
		return ".conf"
	default:
		return ""
	}
}
