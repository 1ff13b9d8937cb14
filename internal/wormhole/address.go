// Package wormhole holds the pure protocol logic shared by the host and the guest:
// dead address derivation, balance audit, nullifier computation and the error taxonomy.
package wormhole

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// The derivation mimics a CREATE2 address formula on purpose but hashes with
// SHA-256 instead of keccak256, so the result is never a deployable contract
// address. These values are fixed for every deployment.
const (
	// Create2Prefix is the leading byte of the candidate preimage
	Create2Prefix byte = 0xFF
)

var (
	// SenderPlaceholder stands in for the deployer address: 20 bytes of 0x01
	SenderPlaceholder = [20]byte{
		0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
		0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	}
	// ZeroCodeHash stands in for the init code hash: 32 zero bytes
	ZeroCodeHash = [32]byte{}
)

// SaltPolicy decides whether the withdrawal amount participates in the salt.
// It is a deployment-wide setting: binding the amount yields one dead address
// per (secret, nonce, amount), omitting it yields one address for every amount.
type SaltPolicy uint8

const (
	SaltBindsAmount SaltPolicy = iota
	SaltOmitsAmount
)

func (p SaltPolicy) String() string {
	if p == SaltOmitsAmount {
		return "omit-amount"
	}
	return "bind-amount"
}

// ParseSaltPolicy accepts "bind-amount" / "omit-amount" (and true/false)
func ParseSaltPolicy(s string) (SaltPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bind-amount", "bind", "true":
		return SaltBindsAmount, nil
	case "omit-amount", "omit", "false":
		return SaltOmitsAmount, nil
	}
	return SaltBindsAmount, fmt.Errorf("unknown salt policy %q", s)
}

func amountBytes(amount uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], amount)
	return b[:]
}

// DeriveSalt computes H(H(secret) || nonce [|| amount_be8]).
func DeriveSalt(secret, nonce [32]byte, amount uint64, policy SaltPolicy) [32]byte {
	secretHash := hashConcat(secret[:])
	if policy == SaltBindsAmount {
		return hashConcat(secretHash[:], nonce[:], amountBytes(amount))
	}
	return hashConcat(secretHash[:], nonce[:])
}

// DeriveDeadAddress maps secret material to its key-less deposit address:
// the low 20 bytes of H(0xFF || SenderPlaceholder || salt || ZeroCodeHash).
func DeriveDeadAddress(secret, nonce [32]byte, amount uint64, policy SaltPolicy) common.Address {
	salt := DeriveSalt(secret, nonce, amount, policy)
	candidate := hashConcat([]byte{Create2Prefix}, SenderPlaceholder[:], salt[:], ZeroCodeHash[:])
	return common.BytesToAddress(candidate[12:])
}

// VerifyDeadAddress recomputes the dead address and compares it with the claimed one.
func VerifyDeadAddress(claimed common.Address, secret, nonce [32]byte, amount uint64, policy SaltPolicy) error {
	computed := DeriveDeadAddress(secret, nonce, amount, policy)
	if computed != claimed {
		return NewError(KindIdentityMismatch, "verify dead address", ErrIdentityMismatch)
	}
	return nil
}

// DeadAddressHash is the lookup key of the contract's already-claimed accounting.
func DeadAddressHash(addr common.Address) common.Hash {
	return common.Hash(hashConcat(addr.Bytes()))
}
