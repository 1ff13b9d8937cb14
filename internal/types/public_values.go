// Package types provides common type definitions used across the backend
package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ProtocolVersion selects the public values schema a guest commits to
type ProtocolVersion uint8

const (
	// ProtocolV1ProofHash: amount | receiver | proofHash
	ProtocolV1ProofHash ProtocolVersion = 1
	// ProtocolV2Nullifier: amount | receiver | nullifier | deadAddressHash | blockHash | contractAddress | data
	ProtocolV2Nullifier ProtocolVersion = 2
)

// Fixed field sizes of the packed record (big-endian integers, no padding)
const (
	amountLen  = 8
	addressLen = common.AddressLength
	hashLen    = common.HashLength

	// PublicValuesV1Len is the exact length of a v1 record
	PublicValuesV1Len = amountLen + addressLen + hashLen
	// PublicValuesV2PrefixLen is the fixed part of a v2 record; data trails it
	PublicValuesV2PrefixLen = amountLen + addressLen + hashLen + hashLen + hashLen + addressLen
)

func (v ProtocolVersion) String() string {
	switch v {
	case ProtocolV1ProofHash:
		return "v1"
	case ProtocolV2Nullifier:
		return "v2"
	default:
		return "v" + strconv.Itoa(int(v))
	}
}

// Valid reports whether v is a known schema
func (v ProtocolVersion) Valid() bool {
	return v == ProtocolV1ProofHash || v == ProtocolV2Nullifier
}

// ParseProtocolVersion accepts "1", "2", "v1", "v2"
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v"))
	if err != nil {
		return 0, fmt.Errorf("invalid protocol version %q: %w", s, err)
	}
	v := ProtocolVersion(n)
	if !v.Valid() {
		return 0, fmt.Errorf("unsupported protocol version %d", n)
	}
	return v, nil
}

// PublicValues is the record committed as a proof's public output.
// Fields not part of Version's schema are zero.
type PublicValues struct {
	Version ProtocolVersion

	Amount   uint64
	Receiver common.Address

	// v1
	ProofHash common.Hash

	// v2
	Nullifier       common.Hash
	DeadAddressHash common.Hash
	BlockHash       common.Hash
	ContractAddress common.Address
	Data            []byte
}

// Encode serializes the record in its version's fixed field order
func (pv *PublicValues) Encode() ([]byte, error) {
	switch pv.Version {
	case ProtocolV1ProofHash:
		out := make([]byte, 0, PublicValuesV1Len)
		out = binary.BigEndian.AppendUint64(out, pv.Amount)
		out = append(out, pv.Receiver.Bytes()...)
		out = append(out, pv.ProofHash.Bytes()...)
		return out, nil
	case ProtocolV2Nullifier:
		out := make([]byte, 0, PublicValuesV2PrefixLen+len(pv.Data))
		out = binary.BigEndian.AppendUint64(out, pv.Amount)
		out = append(out, pv.Receiver.Bytes()...)
		out = append(out, pv.Nullifier.Bytes()...)
		out = append(out, pv.DeadAddressHash.Bytes()...)
		out = append(out, pv.BlockHash.Bytes()...)
		out = append(out, pv.ContractAddress.Bytes()...)
		out = append(out, pv.Data...)
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported protocol version %d", pv.Version)
	}
}

// DecodePublicValues parses a packed record of the given version
func DecodePublicValues(version ProtocolVersion, b []byte) (*PublicValues, error) {
	pv := &PublicValues{Version: version}
	switch version {
	case ProtocolV1ProofHash:
		if len(b) != PublicValuesV1Len {
			return nil, fmt.Errorf("public values v1 must be %d bytes, got %d", PublicValuesV1Len, len(b))
		}
	case ProtocolV2Nullifier:
		if len(b) < PublicValuesV2PrefixLen {
			return nil, fmt.Errorf("public values v2 too short: need at least %d bytes, got %d", PublicValuesV2PrefixLen, len(b))
		}
	default:
		return nil, fmt.Errorf("unsupported protocol version %d", version)
	}

	off := 0
	next := func(n int) []byte {
		s := b[off : off+n]
		off += n
		return s
	}
	pv.Amount = binary.BigEndian.Uint64(next(amountLen))
	pv.Receiver = common.BytesToAddress(next(addressLen))
	if version == ProtocolV1ProofHash {
		pv.ProofHash = common.BytesToHash(next(hashLen))
		return pv, nil
	}
	pv.Nullifier = common.BytesToHash(next(hashLen))
	pv.DeadAddressHash = common.BytesToHash(next(hashLen))
	pv.BlockHash = common.BytesToHash(next(hashLen))
	pv.ContractAddress = common.BytesToAddress(next(addressLen))
	pv.Data = append([]byte{}, b[off:]...)
	return pv, nil
}

// PublicValuesView is the JSON-friendly form returned by the API and CLIs
type PublicValuesView struct {
	Version         string `json:"version"`
	Amount          uint64 `json:"amount"`
	Receiver        string `json:"receiver"`
	ProofHash       string `json:"proof_hash,omitempty"`
	Nullifier       string `json:"nullifier,omitempty"`
	DeadAddressHash string `json:"dead_address_hash,omitempty"`
	BlockHash       string `json:"block_hash,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	Data            string `json:"data,omitempty"`
}

// View converts the record to its JSON-friendly form
func (pv *PublicValues) View() *PublicValuesView {
	view := &PublicValuesView{
		Version:  pv.Version.String(),
		Amount:   pv.Amount,
		Receiver: pv.Receiver.Hex(),
	}
	if pv.Version == ProtocolV1ProofHash {
		view.ProofHash = pv.ProofHash.Hex()
		return view
	}
	view.Nullifier = pv.Nullifier.Hex()
	view.DeadAddressHash = pv.DeadAddressHash.Hex()
	view.BlockHash = pv.BlockHash.Hex()
	view.ContractAddress = pv.ContractAddress.Hex()
	view.Data = "0x" + hex.EncodeToString(pv.Data)
	return view
}

// ParsePublicValuesHex parses public values from a hex string (0x prefix optional)
func ParsePublicValuesHex(version ProtocolVersion, publicValuesHex string) (*PublicValues, error) {
	cleanHex := strings.TrimPrefix(strings.TrimSpace(publicValuesHex), "0x")

	publicValuesBytes, err := hex.DecodeString(cleanHex)
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w", err)
	}
	return DecodePublicValues(version, publicValuesBytes)
}

// ExtractNullifier returns the nullifier of a v2 record given as hex
func ExtractNullifier(publicValuesHex string) (string, error) {
	parsed, err := ParsePublicValuesHex(ProtocolV2Nullifier, publicValuesHex)
	if err != nil {
		return "", err
	}
	return parsed.Nullifier.Hex(), nil
}
