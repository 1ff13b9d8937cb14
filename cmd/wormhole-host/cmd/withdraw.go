package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/app"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/logger"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/services"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

const (
	defaultReceiver = "0xABABABABABABABABABABABABABABABABABABABAB"
	defaultSecret   = "0x4242424242424242424242424242424242424242424242424242424242424242"
	defaultNonce    = "0x9999999999999999999999999999999999999999999999999999999999999999"
)

type withdrawFlags struct {
	prove           bool
	contractAddress string
	amount          uint64
	receiver        string
	secret          string
	nonce           string
	data            string
	system          string
	deployment      string
	deploymentsFile string
}

var wf withdrawFlags

// withdrawCmd runs one withdrawal against the configured chain.
var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Execute (default) or prove a withdrawal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithdraw(cmd, &wf)
	},
}

func init() {
	rootCmd.AddCommand(withdrawCmd)

	f := withdrawCmd.Flags()
	f.BoolVar(&wf.prove, "prove", false, "generate a proof instead of a dry run")
	f.StringVar(&wf.contractAddress, "contract-address", "", "token contract (default from config)")
	f.Uint64Var(&wf.amount, "amount", 1000, "amount to withdraw")
	f.StringVar(&wf.receiver, "receiver", defaultReceiver, "receiver address")
	f.StringVar(&wf.secret, "secret", defaultSecret, "32-byte secret (hex)")
	f.StringVar(&wf.nonce, "nonce", defaultNonce, "32-byte nonce (hex)")
	f.StringVar(&wf.data, "data", "", "auxiliary data bound into the nullifier (hex)")
	f.StringVar(&wf.system, "system", "", "proof system: groth16 | plonk (default from config)")
	f.StringVar(&wf.deployment, "deployment", "", "named deployment to use (e.g. holesky)")
	f.StringVar(&wf.deploymentsFile, "deployments-file", "", "yaml file with extra deployments")
}

func loadConfig(deployment, deploymentsFile string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if deployment != "" {
		registry, err := config.NewDeploymentRegistry(deploymentsFile)
		if err != nil {
			return nil, err
		}
		if err := registry.Apply(cfg, deployment); err != nil {
			return nil, err
		}
	}
	config.AppConfig = cfg
	return cfg, nil
}

func runWithdraw(cmd *cobra.Command, f *withdrawFlags) error {
	cfg, err := loadConfig(f.deployment, f.deploymentsFile)
	if err != nil {
		return err
	}
	params, err := f.params(cfg.ContractAddress())
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.InitializeContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Cleanup()

	mode := services.ModeExecute
	if f.prove {
		mode = services.ModeProve
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checking dead address for amount %d, receiver %s, contract %s\n",
		params.Amount, params.Receiver.Hex(), params.ContractAddress.Hex())

	result, err := container.ProofService.Run(ctx, params, mode)
	if err != nil {
		return err
	}
	printResult(out, result)
	return nil
}

func (f *withdrawFlags) params(defaultContract common.Address) (*services.WithdrawParams, error) {
	secret, err := types.ParseBytes32("secret", f.secret)
	if err != nil {
		return nil, err
	}
	nonce, err := types.ParseBytes32("nonce", f.nonce)
	if err != nil {
		return nil, err
	}
	receiver, err := types.ParseAddress("receiver", f.receiver)
	if err != nil {
		return nil, err
	}
	contract := defaultContract
	if f.contractAddress != "" {
		if contract, err = types.ParseAddress("contract-address", f.contractAddress); err != nil {
			return nil, err
		}
	}
	data, err := types.ParseHexData("data", f.data)
	if err != nil {
		return nil, err
	}
	var system zkvm.ProofSystem
	if f.system != "" {
		if system, err = zkvm.ParseProofSystem(f.system); err != nil {
			return nil, err
		}
	}
	return &services.WithdrawParams{
		Secret:          secret,
		Nonce:           nonce,
		Amount:          f.amount,
		Receiver:        receiver,
		ContractAddress: contract,
		Data:            data,
		System:          system,
	}, nil
}

func printResult(w io.Writer, result *services.WithdrawResult) {
	fmt.Fprintf(w, "Dead address: %s\n", result.DeadAddress.Hex())
	if result.BlockHash != (common.Hash{}) {
		fmt.Fprintf(w, "Block: %d (%s)\n", result.BlockNumber, result.BlockHash.Hex())
	}
	if result.Mode == services.ModeExecute {
		fmt.Fprintf(w, "Program executed successfully with %d cycles\n", result.Cycles)
	} else {
		fmt.Fprintf(w, "Generated %s proof\n", result.Proof.System)
	}

	pv := result.Decoded
	fmt.Fprintf(w, "Amount: %d\n", pv.Amount)
	fmt.Fprintf(w, "Receiver: %s\n", pv.Receiver.Hex())
	if pv.Version == types.ProtocolV1ProofHash {
		fmt.Fprintf(w, "Proof hash: %s\n", pv.ProofHash.Hex())
	} else {
		fmt.Fprintf(w, "Nullifier: %s\n", pv.Nullifier.Hex())
		fmt.Fprintf(w, "Dead address hash: %s\n", pv.DeadAddressHash.Hex())
		fmt.Fprintf(w, "Block hash: %s\n", pv.BlockHash.Hex())
		fmt.Fprintf(w, "Contract address: %s\n", pv.ContractAddress.Hex())
		fmt.Fprintf(w, "Data: %s\n", hexutil.Encode(pv.Data))
	}

	if result.Mode == services.ModeProve {
		fmt.Fprintf(w, "Verifying key: %s\n", result.VKey.Bytes32())
		if result.FixturePath != "" {
			fmt.Fprintf(w, "Saved proof to %s\n", result.FixturePath)
		}
	}
}
