// Package sketch captures the slice of Ethereum state needed to replay a set
// of read-only contract calls, and replays them offline against that slice.
//
// The host side (Builder) talks to an RPC node: it runs each call, discovers
// the accounts and storage slots it touches, and collects Merkle proofs for
// them at one pinned block. The guest side (Executor) trusts nothing but the
// block header: every account and slot is checked against the header's state
// root before the call is re-executed in a local EVM.
package sketch

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultCaller is the msg.sender used for sketch calls
var DefaultCaller = common.Address{}

// ContractCall is a read-only call: contract, caller and ABI-encoded input
type ContractCall struct {
	Contract common.Address
	Caller   common.Address
	Input    []byte
}

// StorageWitness is the storage proof of one slot
type StorageWitness struct {
	Key   common.Hash
	Proof [][]byte
}

// AccountWitness is the account proof of one address plus its code and slots
type AccountWitness struct {
	Address common.Address
	Proof   [][]byte
	Code    []byte
	Storage []StorageWitness
}

// CallRecord is a call executed on the host together with its output
type CallRecord struct {
	Contract common.Address
	Caller   common.Address
	Input    []byte
	Output   []byte
}

func (r *CallRecord) matches(call ContractCall) bool {
	return r.Contract == call.Contract && r.Caller == call.Caller && bytes.Equal(r.Input, call.Input)
}

// Sketch is the serializable witness for one block
type Sketch struct {
	Header   []byte // RLP-encoded block header
	Accounts []AccountWitness
	Calls    []CallRecord
}

// Encode serializes the sketch with RLP
func (s *Sketch) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(s)
}

// DecodeSketch parses an RLP-encoded sketch
func DecodeSketch(b []byte) (*Sketch, error) {
	var s Sketch
	if err := rlp.DecodeBytes(b, &s); err != nil {
		return nil, fmt.Errorf("decode sketch: %w", err)
	}
	return &s, nil
}

// DecodeHeader returns the block header the sketch is anchored to
func (s *Sketch) DecodeHeader() (*types.Header, error) {
	var header types.Header
	if err := rlp.DecodeBytes(s.Header, &header); err != nil {
		return nil, fmt.Errorf("decode sketch header: %w", err)
	}
	return &header, nil
}

// BlockHash returns the hash of the anchoring header
func (s *Sketch) BlockHash() (common.Hash, error) {
	header, err := s.DecodeHeader()
	if err != nil {
		return common.Hash{}, err
	}
	return header.Hash(), nil
}

// BlockTag picks the block a builder pins to
type BlockTag string

const (
	TagLatest    BlockTag = "latest"
	TagSafe      BlockTag = "safe"
	TagFinalized BlockTag = "finalized"
)

// ParseBlockTag accepts latest, safe, finalized or a decimal/0x block number
func ParseBlockTag(s string) (BlockTag, error) {
	tag := BlockTag(strings.ToLower(strings.TrimSpace(s)))
	switch tag {
	case "":
		return TagLatest, nil
	case TagLatest, TagSafe, TagFinalized:
		return tag, nil
	}
	if _, err := tag.number(); err != nil {
		return "", err
	}
	return tag, nil
}

// number converts the tag into the argument ethclient expects
func (t BlockTag) number() (*big.Int, error) {
	switch t {
	case TagLatest, "":
		return big.NewInt(int64(rpc.LatestBlockNumber)), nil
	case TagSafe:
		return big.NewInt(int64(rpc.SafeBlockNumber)), nil
	case TagFinalized:
		return big.NewInt(int64(rpc.FinalizedBlockNumber)), nil
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(string(t), "0x"), base(string(t)), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid block tag %q", string(t))
	}
	return new(big.Int).SetUint64(n), nil
}

func base(s string) int {
	if strings.HasPrefix(s, "0x") {
		return 16
	}
	return 10
}
