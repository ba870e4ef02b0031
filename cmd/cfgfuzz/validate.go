package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jihwankim/cfgfuzz/pkg/category"
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Args:  cobra.NoArgs,
	Short: "Validate config_type_map.json and every node's config dialect",
	Long: `validate loads config_type_map.json and, for every discovered node
directory, parses its configuration file under its dialect and reports any
parse error — the dialect-validation half of fuzz --dry-run, exposed
standalone so it can run without a full orchestrator config (spec §10.1).`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringArray("node-dir", nil, "a node's working directory (repeatable)")
	validateCmd.Flags().String("nodes-root", "", "scan this directory's immediate subdirectories, one per node")
	validateCmd.Flags().String("config-map", "", "path to config_type_map.json (overrides config.yaml)")
	validateCmd.Flags().String("dialect", "", "ini|yaml|toml (default: sniff per node from its file extension)")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	nodeDirFlag, _ := cmd.Flags().GetStringArray("node-dir")
	nodesRoot, _ := cmd.Flags().GetString("nodes-root")
	configMap, _ := cmd.Flags().GetString("config-map")
	dialectFlag, _ := cmd.Flags().GetString("dialect")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if configMap != "" {
		cfg.Fuzz.ConfigMapPath = configMap
	}

	nodeDirs, err := discoverNodeDirs(nodeDirFlag, nodesRoot)
	if err != nil {
		return fmt.Errorf("discovering node directories: %w", err)
	}

	failed := false

	if cfg.Fuzz.ConfigMapPath != "" {
		if _, err := category.Load(cfg.Fuzz.ConfigMapPath); err != nil {
			fmt.Printf("FAIL config_type_map %s: %v\n", cfg.Fuzz.ConfigMapPath, err)
			failed = true
		} else {
			fmt.Printf("OK   config_type_map %s\n", cfg.Fuzz.ConfigMapPath)
		}
	}

	var dialectOverride configtree.Dialect
	if dialectFlag != "" {
		dialectOverride = configtree.Dialect(dialectFlag)
	}

	for _, nodeDir := range nodeDirs {
		configPath, dialect, err := discoverNodeConfig(nodeDir, dialectOverride)
		if err != nil {
			fmt.Printf("FAIL %s: %v\n", nodeDir, err)
			failed = true
			continue
		}
		store, err := configtree.NewStore(dialect)
		if err != nil {
			fmt.Printf("FAIL %s: %v\n", nodeDir, err)
			failed = true
			continue
		}
		tree, err := store.Load(configPath)
		if err != nil {
			fmt.Printf("FAIL %s (%s, %s): %v\n", nodeDir, configPath, dialect, err)
			failed = true
			continue
		}
		roundTripPath := configPath + ".validate.tmp"
		roundTripErr := store.Save(tree, roundTripPath)
		os.Remove(roundTripPath)
		if roundTripErr != nil {
			fmt.Printf("FAIL %s (%s, %s): round-trip save: %v\n", nodeDir, configPath, dialect, roundTripErr)
			failed = true
			continue
		}
		fmt.Printf("OK   %s (%s, %s, %d keys)\n", nodeDir, configPath, dialect, len(tree.AllKeys()))
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}
