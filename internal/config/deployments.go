// Wormhole deployment registry
package config

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Deployment is one wormhole-enabled token deployment
type Deployment struct {
	ChainID          uint64 `yaml:"chain_id" json:"chain_id"`
	Name             string `yaml:"name" json:"name"`
	Explorer         string `yaml:"explorer" json:"explorer"`
	RPCURL           string `yaml:"rpc_url" json:"rpc_url"`
	ContractAddress  string `yaml:"contract_address" json:"contract_address"`
	ProtocolVersion  string `yaml:"protocol_version" json:"protocol_version"`
	BindAmountInSalt bool   `yaml:"bind_amount_in_salt" json:"bind_amount_in_salt"`
	Verifier         string `yaml:"verifier" json:"verifier"`
}

// DeploymentsConfig deployments keyed by network name
type DeploymentsConfig struct {
	Version     string                `yaml:"version" json:"version"`
	Deployments map[string]Deployment `yaml:"deployments" json:"deployments"`
}

// DeploymentRegistry deployment lookup
type DeploymentRegistry struct {
	config DeploymentsConfig
	mu     sync.RWMutex
}

// NewDeploymentRegistry loads the registry from path, falling back to the
// built-in deployments when path is empty
func NewDeploymentRegistry(path string) (*DeploymentRegistry, error) {
	r := &DeploymentRegistry{config: defaultDeployments()}
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployments file: %w", err)
	}
	var loaded DeploymentsConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse deployments file: %w", err)
	}
	for name, d := range loaded.Deployments {
		r.config.Deployments[name] = d
	}
	return r, nil
}

func defaultDeployments() DeploymentsConfig {
	return DeploymentsConfig{
		Version: "1",
		Deployments: map[string]Deployment{
			"holesky": {
				ChainID:          17000,
				Name:             "Holesky",
				Explorer:         "https://holesky.etherscan.io",
				ContractAddress:  DefaultContractAddress,
				ProtocolVersion:  "v2",
				BindAmountInSalt: true,
			},
		},
	}
}

// Get returns the named deployment
func (r *DeploymentRegistry) Get(name string) (Deployment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.config.Deployments[name]
	return d, ok
}

// Names lists known deployments in sorted order
func (r *DeploymentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.config.Deployments))
	for name := range r.config.Deployments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply copies the deployment's chain and protocol settings into cfg.
// An empty RPC URL in the deployment keeps the configured one.
func (r *DeploymentRegistry) Apply(cfg *Config, name string) error {
	d, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("unknown deployment %q (known: %v)", name, r.Names())
	}
	if d.RPCURL != "" {
		cfg.Chain.RPCURL = d.RPCURL
	}
	cfg.Chain.ContractAddress = d.ContractAddress
	cfg.Protocol.Version = d.ProtocolVersion
	cfg.Protocol.BindAmountInSalt = d.BindAmountInSalt
	return cfg.Validate()
}
