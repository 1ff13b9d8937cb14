// Package guest is the deterministic withdrawal program run inside the
// proving engine. It reads the input vector, checks identity, state and
// balance, and commits one public values record. Every check is fatal.
package guest

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/sketch"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

// Program is the withdrawal guest. Version selects the public values
// schema; Salt must match the deployment's salt policy.
type Program struct {
	Version types.ProtocolVersion
	Salt    wormhole.SaltPolicy
}

// New returns a guest for the given deployment settings
func New(version types.ProtocolVersion, salt wormhole.SaltPolicy) *Program {
	return &Program{Version: version, Salt: salt}
}

// ID names the program; the verifying key is derived from it
func (p *Program) ID() string {
	return fmt.Sprintf("zk-wormhole/%s/%s", p.Version, p.Salt)
}

// Run implements zkvm.Guest
func (p *Program) Run(env *zkvm.Env) error {
	switch p.Version {
	case types.ProtocolV1ProofHash:
		return p.runV1(env)
	case types.ProtocolV2Nullifier:
		return p.runV2(env)
	default:
		return wormhole.Errorf(wormhole.KindMalformedInput, "guest", "unsupported protocol version %d", p.Version)
	}
}

func read(env *zkvm.Env, values ...interface{}) error {
	for _, v := range values {
		if err := env.Read(v); err != nil {
			return wormhole.NewError(wormhole.KindMalformedInput, "read input", fmt.Errorf("%w: %v", wormhole.ErrMalformedInput, err))
		}
	}
	return nil
}

func (p *Program) runV1(env *zkvm.Env) error {
	var in Inputs
	if err := read(env, &in.Secret, &in.Nonce, &in.DeadAddress, &in.Amount, &in.Receiver); err != nil {
		return err
	}
	if err := wormhole.VerifyDeadAddress(in.DeadAddress, in.Secret, in.Nonce, in.Amount, p.Salt); err != nil {
		return err
	}

	pv := &types.PublicValues{
		Version:   types.ProtocolV1ProofHash,
		Amount:    in.Amount,
		Receiver:  in.Receiver,
		ProofHash: wormhole.ComputeProofHash(in.DeadAddress, in.Receiver, in.Amount),
	}
	return commit(env, pv)
}

func (p *Program) runV2(env *zkvm.Env) error {
	var in Inputs
	if err := read(env,
		&in.Secret, &in.Nonce, &in.DeadAddress, &in.Amount, &in.Receiver,
		&in.BlockHash, &in.ContractAddress, &in.Data, &in.Sketch, &in.Bundle,
	); err != nil {
		return err
	}

	if err := wormhole.VerifyDeadAddress(in.DeadAddress, in.Secret, in.Nonce, in.Amount, p.Salt); err != nil {
		return err
	}

	bundle, err := DecodeBundle(in.Bundle)
	if err != nil {
		return wormhole.NewError(wormhole.KindMalformedInput, "check bundle", fmt.Errorf("%w: %v", wormhole.ErrMalformedInput, err))
	}
	if err := checkBundle(bundle, &in); err != nil {
		return err
	}

	s, err := sketch.DecodeSketch(in.Sketch)
	if err != nil {
		return wormhole.NewError(wormhole.KindSketchMismatch, "load sketch", fmt.Errorf("%w: %v", wormhole.ErrSketchMismatch, err))
	}
	executor, err := sketch.NewExecutor(s)
	if err != nil {
		return err
	}
	if err := executor.BindBlockHash(in.BlockHash); err != nil {
		return err
	}

	deadHash := wormhole.DeadAddressHash(in.DeadAddress)
	balance, err := viewUint(executor, "balanceOf", func() (sketch.ContractCall, error) {
		return BalanceOfCall(in.ContractAddress, in.DeadAddress)
	})
	if err != nil {
		return err
	}
	claimed, err := viewUint(executor, "getDeadHashAmount", func() (sketch.ContractCall, error) {
		return DeadHashAmountCall(in.ContractAddress, deadHash)
	})
	if err != nil {
		return err
	}
	if err := env.Charge(executor.GasUsed()); err != nil {
		return err
	}

	if err := wormhole.AuditBalance(balance, in.Amount, claimed); err != nil {
		return err
	}

	pv := &types.PublicValues{
		Version:         types.ProtocolV2Nullifier,
		Amount:          in.Amount,
		Receiver:        in.Receiver,
		Nullifier:       wormhole.ComputeNullifier(in.DeadAddress, in.Receiver, in.Amount, in.BlockHash, in.ContractAddress, in.Data),
		DeadAddressHash: deadHash,
		BlockHash:       in.BlockHash,
		ContractAddress: in.ContractAddress,
		Data:            in.Data,
	}
	return commit(env, pv)
}

// checkBundle requires the bundle to describe this exact withdrawal
func checkBundle(b *Bundle, in *Inputs) error {
	mismatch := func(field string, got, want interface{}) error {
		return wormhole.Errorf(wormhole.KindMalformedInput, "check bundle",
			"%w: bundle %s %v does not match %v", wormhole.ErrMalformedInput, field, got, want)
	}
	if b.Contract != in.ContractAddress {
		return mismatch("contract", b.Contract.Hex(), in.ContractAddress.Hex())
	}
	if b.Target != in.DeadAddress {
		return mismatch("target", b.Target.Hex(), in.DeadAddress.Hex())
	}
	if b.MinAmount != in.Amount {
		return mismatch("min amount", b.MinAmount, in.Amount)
	}
	return nil
}

func viewUint(executor *sketch.Executor, method string, build func() (sketch.ContractCall, error)) (*uint256.Int, error) {
	call, err := build()
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindMalformedInput, method, err)
	}
	out, err := executor.Execute(call)
	if err != nil {
		return nil, err
	}
	v, err := DecodeUint256(method, out)
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindSketchMismatch, method, fmt.Errorf("%w: %v", wormhole.ErrSketchMismatch, err))
	}
	return v, nil
}

func commit(env *zkvm.Env, pv *types.PublicValues) error {
	encoded, err := pv.Encode()
	if err != nil {
		return err
	}
	return env.Commit(encoded)
}

var _ zkvm.Guest = (*Program)(nil)
