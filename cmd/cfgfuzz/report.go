package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Args:  cobra.NoArgs,
	Short: "Print the most recently written knowledge-base report",
	Long: `report prints the on-disk report file the fuzz loop's periodic
reporter last wrote (spec §6): a single overwritten text file, not an
append log, so this always reflects the latest snapshot.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("results-dir", "", "results directory holding report.txt (overrides config.yaml)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	resultsDir, _ := cmd.Flags().GetString("results-dir")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if resultsDir != "" {
		cfg.Reporting.OutputDir = resultsDir
	}

	reportPath := filepath.Join(cfg.Reporting.OutputDir, "report.txt")
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("reading %q: %w (has the fuzz loop completed at least %d rounds yet?)", reportPath, err, cfg.Fuzz.ReportInterval)
	}

	fmt.Print(string(data))
	return nil
}
