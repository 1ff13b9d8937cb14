package guest

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/sketch"
)

// WormholeTokenABI covers the two views a withdrawal reads
const WormholeTokenABI = `[
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "bytes32", "name": "deadHash", "type": "bytes32"}],
		"name": "getDeadHashAmount",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var tokenABI = mustParseABI(WormholeTokenABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid token ABI: %v", err))
	}
	return parsed
}

// BalanceOfCall builds balanceOf(account) against contract
func BalanceOfCall(contract, account common.Address) (sketch.ContractCall, error) {
	input, err := tokenABI.Pack("balanceOf", account)
	if err != nil {
		return sketch.ContractCall{}, fmt.Errorf("pack balanceOf: %w", err)
	}
	return sketch.ContractCall{Contract: contract, Caller: sketch.DefaultCaller, Input: input}, nil
}

// DeadHashAmountCall builds getDeadHashAmount(deadHash) against contract
func DeadHashAmountCall(contract common.Address, deadHash common.Hash) (sketch.ContractCall, error) {
	input, err := tokenABI.Pack("getDeadHashAmount", deadHash)
	if err != nil {
		return sketch.ContractCall{}, fmt.Errorf("pack getDeadHashAmount: %w", err)
	}
	return sketch.ContractCall{Contract: contract, Caller: sketch.DefaultCaller, Input: input}, nil
}

// DecodeUint256 unpacks the single uint256 returned by method
func DecodeUint256(method string, output []byte) (*uint256.Int, error) {
	values, err := tokenABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}
	n, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method, values[0])
	}
	v, overflow := uint256.FromBig(n)
	if overflow {
		return nil, fmt.Errorf("unpack %s: value overflows uint256", method)
	}
	return v, nil
}
