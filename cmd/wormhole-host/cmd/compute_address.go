package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
)

var addressFlags struct {
	secret     string
	nonce      string
	amount     uint64
	omitAmount bool
}

// computeAddressCmd prints the dead address of a secret/nonce pair.
var computeAddressCmd = &cobra.Command{
	Use:   "compute-address",
	Short: "Print the dead address to fund for a secret and nonce",
	Long: `compute-address derives the dead address offline. With the default
salt policy the amount is bound into the address, so fund it with exactly
that amount.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := types.ParseBytes32("secret", addressFlags.secret)
		if err != nil {
			return err
		}
		nonce, err := types.ParseBytes32("nonce", addressFlags.nonce)
		if err != nil {
			return err
		}
		policy := wormhole.SaltBindsAmount
		if addressFlags.omitAmount {
			policy = wormhole.SaltOmitsAmount
		}

		dead := wormhole.DeriveDeadAddress(secret, nonce, addressFlags.amount, policy)
		fmt.Fprintf(cmd.OutOrStdout(), "Dead address: %s\n", dead.Hex())
		fmt.Fprintf(cmd.OutOrStdout(), "Dead address hash: %s\n", wormhole.DeadAddressHash(dead).Hex())
		fmt.Fprintf(cmd.OutOrStdout(), "Salt policy: %s\n", policy)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(computeAddressCmd)

	f := computeAddressCmd.Flags()
	f.StringVar(&addressFlags.secret, "secret", defaultSecret, "32-byte secret (hex)")
	f.StringVar(&addressFlags.nonce, "nonce", defaultNonce, "32-byte nonce (hex)")
	f.Uint64Var(&addressFlags.amount, "amount", 1000, "amount bound into the salt")
	f.BoolVar(&addressFlags.omitAmount, "omit-amount", false, "derive with the amount-free salt")
}
