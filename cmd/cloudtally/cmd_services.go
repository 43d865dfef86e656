package main

import (
	"fmt"

	"github.com/spf13/cobra"

	awsprovider "github.com/cloudtally/cloudtally/providers/aws"
)

// servicesCmd represents the services command
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List services with a collector",
	Long: `List the services cloudtally can inventory and whether each is
global (listed once per account) or regional (listed per region).`,
	RunE: runServices,
}

func init() {
	rootCmd.AddCommand(servicesCmd)
}

func runServices(cmd *cobra.Command, args []string) error {
	for _, service := range awsprovider.Supported() {
		scope := "regional"
		if awsprovider.IsGlobal(service) {
			scope = "global"
		}
		fmt.Printf("%-12s %s\n", service, scope)
	}
	return nil
}
