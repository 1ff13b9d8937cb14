package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Version is set by main.
	Version = "0.0.0"
	// Commit is set by main.
	Commit = ""
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wormhole-host",
	Short: "Host for private wormhole withdrawals",
	Long: `wormhole-host builds the state sketch of a dead address, runs the
withdrawal guest and, with --prove, produces a verifiable proof and its fixture.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	rootCmd.Version = Version
	if Commit != "" {
		rootCmd.Version = Version + " (" + Commit + ")"
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default config.local.yaml or config.yaml)")
}
