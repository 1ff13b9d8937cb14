package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/app"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/guest"
)

var vkeyFlags struct {
	deployment      string
	deploymentsFile string
}

// vkeyCmd prints the verifying key the verifier contract must be deployed with.
var vkeyCmd = &cobra.Command{
	Use:   "vkey",
	Short: "Print the verifying key of the configured guest",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(vkeyFlags.deployment, vkeyFlags.deploymentsFile)
		if err != nil {
			return err
		}
		version, err := cfg.ProtocolVersion()
		if err != nil {
			return err
		}

		program := guest.New(version, cfg.SaltPolicy())
		_, vk, err := app.NewEngine(cfg.ZKVM).Setup(cmd.Context(), program)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), vk.Bytes32())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vkeyCmd)

	vkeyCmd.Flags().StringVar(&vkeyFlags.deployment, "deployment", "", "named deployment to use")
	vkeyCmd.Flags().StringVar(&vkeyFlags.deploymentsFile, "deployments-file", "", "yaml file with extra deployments")
}
