// Package sketchtest provides an in-memory chain implementing sketch.Backend,
// with real Merkle-Patricia proofs, for tests that need a state sketch.
package sketchtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/core/vm/runtime"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
)

// TokenCode is a minimal token contract. balanceOf(address) (selector
// 0x70a08231) returns mapping slot 0 keyed by the argument; any other
// selector, getDeadHashAmount(bytes32) in practice, returns mapping slot 1
// keyed by the first argument word.
var TokenCode = common.FromHex(
	"600435600052" + // mstore(0, calldataload(4))
		"60003560e01c" + // selector
		"6370a0823114601d57" + // jumpi if balanceOf
		"6001602052602356" + // mstore(0x20, 1); jump
		"5b6000602052" + // mstore(0x20, 0)
		"5b604060002054" + // sload(keccak(0, 0x40))
		"60005260206000f3", // return 32 bytes
)

const (
	BalancesSlot    = 0
	DeadHashesSlot  = 1
	DefaultBlockNum = 100
)

// MappingSlot returns the storage slot of mapping[key] declared at index
func MappingSlot(key common.Hash, index uint64) common.Hash {
	return crypto.Keccak256Hash(key.Bytes(), common.BigToHash(new(big.Int).SetUint64(index)).Bytes())
}

// AddressKey left-pads an address to a mapping key
func AddressKey(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// Account is the genesis state of one address
type Account struct {
	Balance *uint256.Int
	Nonce   uint64
	Code    []byte
	Storage map[common.Hash]common.Hash
}

// Chain is a single-block chain served from memory
type Chain struct {
	mu     sync.Mutex
	alloc  map[common.Address]*Account
	header *types.Header

	accountTrie  *trie.Trie
	storageTries map[common.Address]*trie.Trie

	// FailCalls makes CallContract return an error, simulating an unreachable node
	FailCalls bool
}

// NewChain commits alloc into a state trie and builds the block header
func NewChain(alloc map[common.Address]*Account) (*Chain, error) {
	c := &Chain{alloc: alloc, storageTries: make(map[common.Address]*trie.Trie)}

	c.accountTrie = newTrie()
	for addr, acct := range alloc {
		storage := newTrie()
		for slot, val := range acct.Storage {
			if val == (common.Hash{}) {
				continue
			}
			enc, err := rlp.EncodeToBytes(common.TrimLeftZeroes(val[:]))
			if err != nil {
				return nil, err
			}
			if err := storage.Update(crypto.Keccak256(slot.Bytes()), enc); err != nil {
				return nil, err
			}
		}
		c.storageTries[addr] = storage

		balance := acct.Balance
		if balance == nil {
			balance = new(uint256.Int)
		}
		enc, err := rlp.EncodeToBytes(&types.StateAccount{
			Nonce:    acct.Nonce,
			Balance:  balance,
			Root:     storage.Hash(),
			CodeHash: crypto.Keccak256(acct.Code),
		})
		if err != nil {
			return nil, err
		}
		if err := c.accountTrie.Update(crypto.Keccak256(addr.Bytes()), enc); err != nil {
			return nil, err
		}
	}

	c.header = &types.Header{
		ParentHash: common.HexToHash("0x01"),
		Root:       c.accountTrie.Hash(),
		Number:     big.NewInt(DefaultBlockNum),
		GasLimit:   30_000_000,
		Time:       1_700_000_000,
		Difficulty: big.NewInt(0),
		BaseFee:    big.NewInt(7),
	}
	return c, nil
}

func newTrie() *trie.Trie {
	return trie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
}

// Header returns a copy of the only block header
func (c *Chain) Header() *types.Header {
	return types.CopyHeader(c.header)
}

func (c *Chain) checkBlock(number *big.Int) error {
	if number == nil || number.Sign() < 0 || number.Cmp(c.header.Number) == 0 {
		return nil
	}
	return fmt.Errorf("unknown block %s", number)
}

func (c *Chain) stateDB() (*state.StateDB, error) {
	st, err := state.New(types.EmptyRootHash, state.NewDatabaseForTesting())
	if err != nil {
		return nil, err
	}
	for addr, acct := range c.alloc {
		if acct.Balance != nil {
			st.SetBalance(addr, acct.Balance, tracing.BalanceChangeUnspecified)
		}
		st.SetNonce(addr, acct.Nonce, tracing.NonceChangeUnspecified)
		if len(acct.Code) > 0 {
			st.SetCode(addr, acct.Code)
		}
		for slot, val := range acct.Storage {
			st.SetState(addr, slot, val)
		}
	}
	return st, nil
}

func (c *Chain) call(msg ethereum.CallMsg, hooks *tracing.Hooks) ([]byte, error) {
	if msg.To == nil {
		return nil, errors.New("contract creation not supported")
	}
	st, err := c.stateDB()
	if err != nil {
		return nil, err
	}
	out, _, err := runtime.Call(*msg.To, msg.Data, &runtime.Config{
		State:       st,
		BlockNumber: new(big.Int).Set(c.header.Number),
		Time:        c.header.Time,
		BaseFee:     c.header.BaseFee,
		GasLimit:    c.header.GasLimit,
		Origin:      msg.From,
		EVMConfig:   vm.Config{Tracer: hooks},
	})
	return out, err
}

func (c *Chain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := c.checkBlock(number); err != nil {
		return nil, err
	}
	return c.Header(), nil
}

func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if c.FailCalls {
		return nil, errors.New("connection refused")
	}
	if err := c.checkBlock(blockNumber); err != nil {
		return nil, err
	}
	return c.call(msg, nil)
}

func (c *Chain) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	if err := c.checkBlock(blockNumber); err != nil {
		return nil, err
	}
	if acct, ok := c.alloc[account]; ok {
		return common.CopyBytes(acct.Code), nil
	}
	return nil, nil
}

func (c *Chain) CreateAccessList(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) (types.AccessList, error) {
	if err := c.checkBlock(blockNumber); err != nil {
		return nil, err
	}
	touched := make(map[common.Address][]common.Hash)
	var order []common.Address
	hooks := &tracing.Hooks{
		OnOpcode: func(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, rData []byte, depth int, err error) {
			if vm.OpCode(op) != vm.SLOAD {
				return
			}
			stack := scope.StackData()
			if len(stack) == 0 {
				return
			}
			addr := scope.Address()
			if _, ok := touched[addr]; !ok {
				order = append(order, addr)
			}
			touched[addr] = append(touched[addr], common.Hash(stack[len(stack)-1].Bytes32()))
		},
	}
	if _, err := c.call(msg, hooks); err != nil {
		return nil, err
	}
	list := make(types.AccessList, 0, len(order))
	for _, addr := range order {
		list = append(list, types.AccessTuple{Address: addr, StorageKeys: touched[addr]})
	}
	return list, nil
}

type proofList []string

func (p *proofList) Put(key []byte, value []byte) error {
	*p = append(*p, hexutil.Encode(value))
	return nil
}

func (p *proofList) Delete(key []byte) error {
	return errors.New("not supported")
}

func (c *Chain) GetProof(ctx context.Context, account common.Address, keys []string, blockNumber *big.Int) (*gethclient.AccountResult, error) {
	if err := c.checkBlock(blockNumber); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var accountProof proofList
	if err := c.accountTrie.Prove(crypto.Keccak256(account.Bytes()), &accountProof); err != nil {
		return nil, err
	}
	res := &gethclient.AccountResult{
		Address:      account,
		AccountProof: accountProof,
		Balance:      new(big.Int),
		StorageHash:  types.EmptyRootHash,
	}
	acct, exists := c.alloc[account]
	if exists {
		if acct.Balance != nil {
			res.Balance = acct.Balance.ToBig()
		}
		res.Nonce = acct.Nonce
		res.CodeHash = crypto.Keccak256Hash(acct.Code)
		res.StorageHash = c.storageTries[account].Hash()
	}

	for _, key := range keys {
		slot := common.HexToHash(key)
		sp := gethclient.StorageResult{Key: key, Value: new(big.Int), Proof: []string{}}
		if exists {
			var proof proofList
			if err := c.storageTries[account].Prove(crypto.Keccak256(slot.Bytes()), &proof); err != nil {
				return nil, err
			}
			sp.Proof = proof
			sp.Value = acct.Storage[slot].Big()
		}
		res.StorageProof = append(res.StorageProof, sp)
	}
	return res, nil
}

// NewTokenChain deploys TokenCode at token with holder's balance and the
// amount already claimed under H(holder) preset
func NewTokenChain(token, holder common.Address, holderHash common.Hash, balance, claimed uint64) (*Chain, error) {
	return NewChain(map[common.Address]*Account{
		token: {
			Code: TokenCode,
			Storage: map[common.Hash]common.Hash{
				MappingSlot(AddressKey(holder), BalancesSlot): common.Hash(uint256.NewInt(balance).Bytes32()),
				MappingSlot(holderHash, DeadHashesSlot):       common.Hash(uint256.NewInt(claimed).Bytes32()),
			},
		},
	})
}
