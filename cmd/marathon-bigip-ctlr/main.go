package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marathon-bigip-ctlr",
	Short: "Sync BIG-IP configuration from orchestrator state",
	Long: `marathon-bigip-ctlr keeps a BIG-IP in sync with the services an
orchestrator schedules. It polls Marathon or a Kubernetes state endpoint,
computes the virtual servers, pools, members, and health monitors those
services need, and converges the managed partitions toward that state.`,
	Version: Version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("marathon-bigip-ctlr version %s\nCommit: %s\nBuilt: %s\n",
			Version, Commit, BuildTime)
	},
}

func init() {
	metrics.SetVersion(Version)

	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"marathon-bigip-ctlr version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "/etc/marathon-bigip-ctlr/config.yaml", "Path to the config file")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(versionCmd)
}
