package zkvm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ProofSystem selects the final proof wrapping
type ProofSystem string

const (
	Groth16 ProofSystem = "groth16"
	Plonk   ProofSystem = "plonk"
)

// ParseProofSystem accepts groth16 or plonk (case-insensitive)
func ParseProofSystem(s string) (ProofSystem, error) {
	switch ProofSystem(strings.ToLower(strings.TrimSpace(s))) {
	case Groth16, "":
		return Groth16, nil
	case Plonk:
		return Plonk, nil
	}
	return "", fmt.Errorf("unsupported proof system %q (want groth16 or plonk)", s)
}

// VerifyingKey identifies a guest program to a verifier
type VerifyingKey struct {
	Hash common.Hash `json:"hash"`
}

// Bytes32 is the hex form embedded in fixtures and on-chain verifiers
func (vk *VerifyingKey) Bytes32() string {
	return vk.Hash.Hex()
}

// ProvingKey holds what an engine needs to prove a specific guest
type ProvingKey struct {
	GuestID string       `json:"guest_id"`
	VKey    VerifyingKey `json:"vkey"`

	guest Guest
}

// ProofWithPublicValues is the output of Prove
type ProofWithPublicValues struct {
	Proof        hexutil.Bytes `json:"proof"`
	PublicValues hexutil.Bytes `json:"public_values"`
	System       ProofSystem   `json:"system"`
	VKey         common.Hash   `json:"vkey"`
}

// Marshal encodes the proof as indented JSON
func (p *ProofWithPublicValues) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// ExecutionReport summarizes a dry run
type ExecutionReport struct {
	Cycles   uint64        `json:"cycles"`
	Duration time.Duration `json:"duration"`
}

// Engine is the proving engine boundary. Implementations: LocalEngine
// (in-process, mock proofs) and clients.ProverClient (remote service).
type Engine interface {
	Setup(ctx context.Context, guest Guest) (*ProvingKey, *VerifyingKey, error)
	Execute(ctx context.Context, guest Guest, stdin *Stdin) ([]byte, *ExecutionReport, error)
	Prove(ctx context.Context, pk *ProvingKey, stdin *Stdin, system ProofSystem) (*ProofWithPublicValues, error)
	Verify(ctx context.Context, proof *ProofWithPublicValues, vk *VerifyingKey) error
}
