package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	dryRun       bool
	force        bool
	metricsFile  string
	statusFilter []string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "textqueue <csv-file>",
	Short: "Queue the weekly SMS export",
	Long: `textqueue reads a CSV export of weekly texts, rebuilds one outbound
message per recipient group and stores the batch for the SMS processor.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runImport,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored message counts by status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "textqueue version %s\n", version)
		if commit != "unknown" {
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without storing or queueing")
	rootCmd.Flags().BoolVar(&force, "force", false, "queue the export even if it was imported recently")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")

	statusCmd.Flags().StringSliceVar(&statusFilter, "status", nil, "only count these statuses, e.g. --status queued,failed")

	rootCmd.AddCommand(statusCmd, versionCmd)
}
