package app

import (
	"context"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/clients"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/sketch"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/sketch/sketchtest"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewEngine(t *testing.T) {
	local := NewEngine(config.ZKVMConfig{Mode: config.ZKVMModeLocal, MaxCycles: 42})
	require.IsType(t, &zkvm.LocalEngine{}, local)
	assert.Equal(t, uint64(42), local.(*zkvm.LocalEngine).MaxCycles)

	remote := NewEngine(config.ZKVMConfig{Mode: config.ZKVMModeRemote, BaseURL: "http://prover:3000/"})
	require.IsType(t, &clients.ProverClient{}, remote)
	assert.Equal(t, "http://prover:3000", remote.(*clients.ProverClient).BaseURL)
}

func TestServiceOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Protocol.Version = "v1"
	cfg.Protocol.BindAmountInSalt = false
	cfg.ZKVM.ProofSystem = "plonk"
	cfg.Chain.BlockTag = "finalized"

	opts, err := ServiceOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, types.ProtocolV1ProofHash, opts.Version)
	assert.Equal(t, wormhole.SaltOmitsAmount, opts.Salt)
	assert.Equal(t, zkvm.Plonk, opts.ProofSystem)
	assert.Equal(t, sketch.BlockTag("finalized"), opts.BlockTag)
	assert.Equal(t, "contracts/src/fixtures", opts.FixturesDir)

	cfg.Protocol.Version = "v9"
	_, err = ServiceOptions(cfg)
	assert.Error(t, err)
}

func TestNewServiceContainerWithoutLedgerOrEvents(t *testing.T) {
	chain, err := sketchtest.NewTokenChain(common.HexToAddress(config.DefaultContractAddress), common.Address{}, common.Hash{}, 0, 0)
	require.NoError(t, err)

	c, err := NewServiceContainer(config.Default(), quietLogger(), chain)
	require.NoError(t, err)
	defer c.Cleanup()

	assert.NotNil(t, c.ProofService)
	assert.Nil(t, c.DB)
	assert.Nil(t, c.RunRepo)
	assert.Nil(t, c.NATSClient)
	assert.Equal(t, "zk-wormhole/v2/bind-amount", c.ProofService.Program().ID())
}

func TestInitializeContainerRequiresRPC(t *testing.T) {
	cfg := config.Default()
	cfg.Chain.RPCURL = ""
	_, err := InitializeContainer(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "rpcUrl")
}
