package zkvm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	sha256 "github.com/minio/sha256-simd"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
)

// ErrInvalidProof is returned by Verify when a proof does not check out
var ErrInvalidProof = errors.New("invalid proof")

const vkeyDomain = "zk-wormhole/guest/"

// LocalEngine runs guests in-process. Its proofs are mock proofs: a digest
// binding the verifying key, the proof system and the public values. They
// are only meaningful to another LocalEngine.
type LocalEngine struct {
	// MaxCycles bounds a single run; 0 disables the limit
	MaxCycles uint64
}

// NewLocalEngine creates an in-process engine
func NewLocalEngine(maxCycles uint64) *LocalEngine {
	return &LocalEngine{MaxCycles: maxCycles}
}

// VerifyingKeyFor derives the verifying key of a guest from its identifier
func VerifyingKeyFor(guest Guest) *VerifyingKey {
	sum := sha256.Sum256([]byte(vkeyDomain + guest.ID()))
	return &VerifyingKey{Hash: common.Hash(sum)}
}

func (e *LocalEngine) Setup(ctx context.Context, guest Guest) (*ProvingKey, *VerifyingKey, error) {
	if guest == nil {
		return nil, nil, wormhole.NewError(wormhole.KindExternalService, "setup", errors.New("nil guest"))
	}
	vk := VerifyingKeyFor(guest)
	return &ProvingKey{GuestID: guest.ID(), VKey: *vk, guest: guest}, vk, nil
}

func (e *LocalEngine) Execute(ctx context.Context, guest Guest, stdin *Stdin) ([]byte, *ExecutionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	start := time.Now()
	pv, cycles, err := RunGuest(guest, stdin, e.MaxCycles)
	report := &ExecutionReport{Cycles: cycles, Duration: time.Since(start)}
	if err != nil {
		return nil, report, err
	}
	return pv, report, nil
}

func (e *LocalEngine) Prove(ctx context.Context, pk *ProvingKey, stdin *Stdin, system ProofSystem) (*ProofWithPublicValues, error) {
	if pk == nil || pk.guest == nil {
		return nil, wormhole.NewError(wormhole.KindExternalService, "prove", errors.New("proving key was not produced by this engine"))
	}
	if system != Groth16 && system != Plonk {
		return nil, wormhole.Errorf(wormhole.KindExternalService, "prove", "unsupported proof system %q", system)
	}
	pv, _, err := e.Execute(ctx, pk.guest, stdin)
	if err != nil {
		return nil, err
	}
	return &ProofWithPublicValues{
		Proof:        mockProof(pk.VKey.Hash, system, pv),
		PublicValues: pv,
		System:       system,
		VKey:         pk.VKey.Hash,
	}, nil
}

func (e *LocalEngine) Verify(ctx context.Context, proof *ProofWithPublicValues, vk *VerifyingKey) error {
	if proof == nil || vk == nil {
		return fmt.Errorf("%w: missing proof or verifying key", ErrInvalidProof)
	}
	if proof.VKey != vk.Hash {
		return fmt.Errorf("%w: proof was made for vkey %s, expected %s", ErrInvalidProof, proof.VKey.Hex(), vk.Hash.Hex())
	}
	want := mockProof(vk.Hash, proof.System, proof.PublicValues)
	if string(want) != string(proof.Proof) {
		return fmt.Errorf("%w: proof bytes do not match public values", ErrInvalidProof)
	}
	return nil
}

func mockProof(vkey common.Hash, system ProofSystem, publicValues []byte) []byte {
	h := sha256.New()
	h.Write(vkey.Bytes())
	h.Write([]byte(system))
	h.Write(publicValues)
	return h.Sum(nil)
}
