package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

// ProofFixture is the artifact consumed by the verifier contract tests
type ProofFixture struct {
	VKey         string `json:"vkey"`
	PublicValues string `json:"publicValues"`
	Proof        string `json:"proof"`
}

// NewProofFixture builds the fixture of a proof
func NewProofFixture(proof *zkvm.ProofWithPublicValues, vk *zkvm.VerifyingKey) *ProofFixture {
	return &ProofFixture{
		VKey:         vk.Bytes32(),
		PublicValues: hexutil.Encode(proof.PublicValues),
		Proof:        hexutil.Encode(proof.Proof),
	}
}

// FixturePath returns <dir>/<system>-fixture.json
func FixturePath(dir string, system zkvm.ProofSystem) string {
	return filepath.Join(dir, fmt.Sprintf("%s-fixture.json", system))
}

// WriteFixture writes the fixture of proof under dir and returns its path
func WriteFixture(dir string, proof *zkvm.ProofWithPublicValues, vk *zkvm.VerifyingKey) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create fixtures dir: %w", err)
	}
	data, err := json.MarshalIndent(NewProofFixture(proof, vk), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal fixture: %w", err)
	}
	path := FixturePath(dir, proof.System)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write fixture: %w", err)
	}
	return path, nil
}
