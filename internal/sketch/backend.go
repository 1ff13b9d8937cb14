package sketch

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Backend is the chain access the builder needs. Every method is pinned to
// an explicit block number.
type Backend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	GetProof(ctx context.Context, account common.Address, keys []string, blockNumber *big.Int) (*gethclient.AccountResult, error)
	CreateAccessList(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) (types.AccessList, error)
}

// RPCBackend implements Backend against a JSON-RPC node
type RPCBackend struct {
	*ethclient.Client
	geth *gethclient.Client
	rpc  *rpc.Client
}

// DialRPC connects to an Ethereum node
func DialRPC(ctx context.Context, url string) (*RPCBackend, error) {
	if url == "" {
		return nil, errors.New("rpc url is empty")
	}
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum client: %w", err)
	}
	return NewRPCBackend(client), nil
}

// NewRPCBackend wraps an existing rpc client
func NewRPCBackend(client *rpc.Client) *RPCBackend {
	return &RPCBackend{
		Client: ethclient.NewClient(client),
		geth:   gethclient.New(client),
		rpc:    client,
	}
}

// GetProof returns the eth_getProof result for account and storage keys
func (b *RPCBackend) GetProof(ctx context.Context, account common.Address, keys []string, blockNumber *big.Int) (*gethclient.AccountResult, error) {
	return b.geth.GetProof(ctx, account, keys, blockNumber)
}

type accessListResult struct {
	AccessList *types.AccessList `json:"accessList"`
	Error      string            `json:"error,omitempty"`
	GasUsed    hexutil.Uint64    `json:"gasUsed"`
}

// CreateAccessList calls eth_createAccessList at a fixed block. gethclient's
// helper does not take a block argument, so the raw client is used.
func (b *RPCBackend) CreateAccessList(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) (types.AccessList, error) {
	var result accessListResult
	if err := b.rpc.CallContext(ctx, &result, "eth_createAccessList", toCallArg(msg), toBlockNumArg(blockNumber)); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("eth_createAccessList: %s", result.Error)
	}
	if result.AccessList == nil {
		return types.AccessList{}, nil
	}
	return *result.AccessList, nil
}

func toCallArg(msg ethereum.CallMsg) interface{} {
	arg := map[string]interface{}{
		"from": msg.From,
		"to":   msg.To,
	}
	if len(msg.Data) > 0 {
		arg["input"] = hexutil.Bytes(msg.Data)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	return arg
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	if number.Sign() >= 0 {
		return hexutil.EncodeBig(number)
	}
	return rpc.BlockNumber(number.Int64()).String()
}
