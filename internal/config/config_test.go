package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
chain:
  rpcUrl: http://localhost:8545
  blockTag: finalized
protocol:
  version: v1
  bindAmountInSalt: false
zkvm:
  mode: remote
  baseUrl: http://prover:18081
  proofSystem: plonk
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.Chain.RPCURL)
	v, err := cfg.ProtocolVersion()
	require.NoError(t, err)
	assert.Equal(t, types.ProtocolV1ProofHash, v)
	assert.Equal(t, wormhole.SaltOmitsAmount, cfg.SaltPolicy())
	system, err := cfg.ProofSystem()
	require.NoError(t, err)
	assert.Equal(t, zkvm.Plonk, system)

	// untouched sections keep their defaults
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultContractAddress, cfg.Chain.ContractAddress)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
chain:
  rpcUrl: http://from-file:8545
`)
	t.Setenv("ETH_RPC_URL", "http://from-env:8545")
	t.Setenv("BIND_AMOUNT_IN_SALT", "false")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:8545", cfg.Chain.RPCURL)
	assert.Equal(t, wormhole.SaltOmitsAmount, cfg.SaltPolicy())
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestDefaultsBindAmount(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, wormhole.SaltBindsAmount, cfg.SaltPolicy())
	v, err := cfg.ProtocolVersion()
	require.NoError(t, err)
	assert.Equal(t, types.ProtocolV2Nullifier, v)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"bad version":   func(c *Config) { c.Protocol.Version = "v3" },
		"bad system":    func(c *Config) { c.ZKVM.ProofSystem = "stark" },
		"bad tag":       func(c *Config) { c.Chain.BlockTag = "soon" },
		"bad contract":  func(c *Config) { c.Chain.ContractAddress = "0x1234" },
		"remote no url": func(c *Config) { c.ZKVM.Mode = ZKVMModeRemote },
		"unknown mode":  func(c *Config) { c.ZKVM.Mode = "gpu" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDeploymentRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
deployments:
  devnet:
    chain_id: 31337
    rpc_url: http://127.0.0.1:8545
    contract_address: "0x00000000000000000000000000000000000000aa"
    protocol_version: v1
    bind_amount_in_salt: true
`), 0o600))

	registry, err := NewDeploymentRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"devnet", "holesky"}, registry.Names())

	cfg := Default()
	require.NoError(t, registry.Apply(cfg, "devnet"))
	assert.Equal(t, "http://127.0.0.1:8545", cfg.Chain.RPCURL)
	assert.Equal(t, "v1", cfg.Protocol.Version)

	assert.Error(t, registry.Apply(cfg, "mainnet"))
}
