package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "cloudtally",
		Short: "Multi-Account Cloud Inventory",
		Long: `Cloudtally - Multi-Account Cloud Inventory

Cloudtally assumes a delegated role in each configured account, lists
cloud resources across services and regions in parallel, and writes a
partitioned spreadsheet inventory.

One credential per account, one worksheet per service per day.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`Cloudtally {{.Version}} - Multi-Account Cloud Inventory
`)
}
