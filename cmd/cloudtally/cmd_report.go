package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudtally/cloudtally/storage"
)

var (
	reportStore string
	reportLimit int
	reportJSON  bool
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show recent inventory runs",
	Long: `Show per-account counters from recorded inventory runs.

Reads the local run history written by scan and prints the most recent
runs, newest first.`,
	Example: `  cloudtally report                        # Most recent run
  cloudtally report --limit 5              # Last five runs
  cloudtally report --json                 # Machine-readable output`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportStore, "store", "cloudtally.db", "Run history database path")
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 1, "Number of runs to show")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Emit runs as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	store, err := storage.Open(reportStore)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(reportLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet. Run `cloudtally scan` first.")
		return nil
	}

	if reportJSON {
		return json.NewEncoder(os.Stdout).Encode(runs)
	}

	for _, run := range runs {
		printRun(run)
	}
	return nil
}

func printRun(run storage.RunRecord) {
	fmt.Printf("Run completed %s (took %s)\n",
		run.CompletedAt.Format(time.RFC3339),
		run.CompletedAt.Sub(run.StartedAt).Round(time.Second))
	fmt.Printf("  resources: %d  units: %d  succeeded: %d  failed: %d\n",
		run.Summary.TotalResources, run.Summary.Units, run.Summary.Succeeded, run.Summary.Failed)

	accountIDs := make([]string, 0, len(run.Summary.Accounts))
	for accountID := range run.Summary.Accounts {
		accountIDs = append(accountIDs, accountID)
	}
	sort.Strings(accountIDs)
	for _, accountID := range accountIDs {
		account := run.Summary.Accounts[accountID]
		fmt.Printf("  account %s: %d resources (%d ok, %d failed)\n",
			accountID, account.Resources, account.Succeeded, account.Failed)
	}

	for _, unit := range run.Units {
		if unit.Error == "" {
			continue
		}
		fmt.Printf("  FAILED %s/%s/%s: %s\n", unit.AccountID, unit.Region, unit.Service, unit.Error)
	}
	fmt.Println()
}
