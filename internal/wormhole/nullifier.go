package wormhole

import (
	"github.com/ethereum/go-ethereum/common"
)

// ComputeNullifier binds every withdrawal parameter into one commitment:
// H(deadAddress || receiver || amount_be8 || blockHash || contractAddress || data).
// data is appended raw, with no length prefix.
func ComputeNullifier(
	deadAddress common.Address,
	receiver common.Address,
	amount uint64,
	blockHash common.Hash,
	contractAddress common.Address,
	data []byte,
) common.Hash {
	return common.Hash(hashConcat(
		deadAddress.Bytes(),
		receiver.Bytes(),
		amountBytes(amount),
		blockHash.Bytes(),
		contractAddress.Bytes(),
		data,
	))
}

// ComputeProofHash is the protocol v1 commitment: H(deadAddress || receiver || amount_be8).
func ComputeProofHash(deadAddress, receiver common.Address, amount uint64) common.Hash {
	return common.Hash(hashConcat(deadAddress.Bytes(), receiver.Bytes(), amountBytes(amount)))
}
