package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "cfgfuzz",
	Short:   "Configuration-aware fuzzing orchestrator for long-lived node binaries",
	Long: `cfgfuzz repeatedly mutates a node's configuration file, restarts the
node under a mutated config, probes whether it survives a stabilization
window, and records the verdict into a shared knowledge base of tolerated
and fatal mutations across a pool of concurrent per-node workers.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the orchestrator config file (default: config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(fuzzCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
