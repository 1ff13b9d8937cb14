package guest

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/types"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/zkvm"
)

// Bundle is the transfer intent the proof is produced for
type Bundle struct {
	Contract  common.Address
	Target    common.Address
	MinAmount uint64
}

// EncodeBundle serializes b with RLP
func EncodeBundle(b *Bundle) ([]byte, error) {
	return rlp.EncodeToBytes(b)
}

// DecodeBundle parses an RLP bundle
func DecodeBundle(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := rlp.DecodeBytes(raw, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// Inputs is the full input vector of a withdrawal, in read order.
// v1 guests only read the first five fields.
type Inputs struct {
	Secret          [32]byte
	Nonce           [32]byte
	DeadAddress     common.Address
	Amount          uint64
	Receiver        common.Address
	BlockHash       common.Hash
	ContractAddress common.Address
	Data            []byte
	Sketch          []byte
	Bundle          []byte
}

// Stdin writes the vector for the given protocol version
func (in *Inputs) Stdin(version types.ProtocolVersion) (*zkvm.Stdin, error) {
	items := []interface{}{in.Secret, in.Nonce, in.DeadAddress, in.Amount, in.Receiver}
	switch version {
	case types.ProtocolV1ProofHash:
	case types.ProtocolV2Nullifier:
		data := in.Data
		if data == nil {
			data = []byte{}
		}
		items = append(items, in.BlockHash, in.ContractAddress, data, in.Sketch, in.Bundle)
	default:
		return nil, fmt.Errorf("unsupported protocol version %d", version)
	}

	stdin := zkvm.NewStdin()
	for _, item := range items {
		if err := stdin.Write(item); err != nil {
			return nil, err
		}
	}
	return stdin, nil
}
