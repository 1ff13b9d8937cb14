package sketch

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
)

// Builder records calls against one pinned block and packages the state
// they touched into a Sketch. It is safe for concurrent use; recording is
// additive.
type Builder struct {
	backend Backend
	header  *types.Header
	number  *big.Int

	mu      sync.Mutex
	touched map[common.Address]map[common.Hash]struct{}
	calls   []CallRecord
}

// NewBuilder resolves tag to a concrete header and pins every later request to it
func NewBuilder(ctx context.Context, backend Backend, tag BlockTag) (*Builder, error) {
	number, err := tag.number()
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindMalformedInput, "resolve block tag", err)
	}
	header, err := backend.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindExternalService, "fetch header",
			fmt.Errorf("failed to fetch %s header: %w", tag, err))
	}
	if header == nil || header.Number == nil {
		return nil, wormhole.Errorf(wormhole.KindExternalService, "fetch header", "node returned no header for %s", tag)
	}

	logrus.WithFields(logrus.Fields{
		"block_tag":    string(tag),
		"block_number": header.Number.String(),
		"block_hash":   header.Hash().Hex(),
	}).Debug("Sketch builder pinned block")

	return &Builder{
		backend: backend,
		header:  header,
		number:  new(big.Int).Set(header.Number),
		touched: make(map[common.Address]map[common.Hash]struct{}),
	}, nil
}

// Header returns the pinned header
func (b *Builder) Header() *types.Header {
	return b.header
}

// BlockHash returns the hash of the pinned header
func (b *Builder) BlockHash() common.Hash {
	return b.header.Hash()
}

// Execute runs call at the pinned block and records the state it touches
func (b *Builder) Execute(ctx context.Context, call ContractCall) ([]byte, error) {
	to := call.Contract
	msg := ethereum.CallMsg{From: call.Caller, To: &to, Data: call.Input}

	output, err := b.backend.CallContract(ctx, msg, b.number)
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindExternalService, "eth_call",
			fmt.Errorf("call %s at block %s: %w", call.Contract.Hex(), b.number, err))
	}
	accessList, err := b.backend.CreateAccessList(ctx, msg, b.number)
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindExternalService, "eth_createAccessList",
			fmt.Errorf("access list for %s at block %s: %w", call.Contract.Hex(), b.number, err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch(call.Contract)
	b.touch(call.Caller)
	for _, tuple := range accessList {
		slots := b.touch(tuple.Address)
		for _, key := range tuple.StorageKeys {
			slots[key] = struct{}{}
		}
	}
	b.calls = append(b.calls, CallRecord{
		Contract: call.Contract,
		Caller:   call.Caller,
		Input:    common.CopyBytes(call.Input),
		Output:   common.CopyBytes(output),
	})
	return output, nil
}

func (b *Builder) touch(addr common.Address) map[common.Hash]struct{} {
	slots, ok := b.touched[addr]
	if !ok {
		slots = make(map[common.Hash]struct{})
		b.touched[addr] = slots
	}
	return slots
}

// Finalize fetches proofs for everything touched so far and returns the sketch
func (b *Builder) Finalize(ctx context.Context) (*Sketch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	headerRLP, err := rlp.EncodeToBytes(b.header)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	addrs := make([]common.Address, 0, len(b.touched))
	for addr := range b.touched {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })

	accounts := make([]AccountWitness, 0, len(addrs))
	for _, addr := range addrs {
		witness, err := b.witness(ctx, addr, sortedSlots(b.touched[addr]))
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *witness)
	}

	calls := make([]CallRecord, len(b.calls))
	copy(calls, b.calls)

	logrus.WithFields(logrus.Fields{
		"block_number": b.number.String(),
		"accounts":     len(accounts),
		"calls":        len(calls),
	}).Debug("Sketch finalized")

	return &Sketch{Header: headerRLP, Accounts: accounts, Calls: calls}, nil
}

func (b *Builder) witness(ctx context.Context, addr common.Address, slots []common.Hash) (*AccountWitness, error) {
	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = slot.Hex()
	}
	res, err := b.backend.GetProof(ctx, addr, keys, b.number)
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindExternalService, "eth_getProof",
			fmt.Errorf("proof for %s at block %s: %w", addr.Hex(), b.number, err))
	}
	accountProof, err := decodeProof(res.AccountProof)
	if err != nil {
		return nil, wormhole.NewError(wormhole.KindExternalService, "eth_getProof", fmt.Errorf("account %s: %w", addr.Hex(), err))
	}
	if len(res.StorageProof) != len(slots) {
		return nil, wormhole.Errorf(wormhole.KindExternalService, "eth_getProof",
			"account %s: requested %d storage proofs, got %d", addr.Hex(), len(slots), len(res.StorageProof))
	}

	witness := &AccountWitness{Address: addr, Proof: accountProof}
	for i, slot := range slots {
		proof, err := decodeProof(res.StorageProof[i].Proof)
		if err != nil {
			return nil, wormhole.NewError(wormhole.KindExternalService, "eth_getProof",
				fmt.Errorf("account %s slot %s: %w", addr.Hex(), slot.Hex(), err))
		}
		witness.Storage = append(witness.Storage, StorageWitness{Key: slot, Proof: proof})
	}

	if res.CodeHash != types.EmptyCodeHash && res.CodeHash != (common.Hash{}) {
		code, err := b.backend.CodeAt(ctx, addr, b.number)
		if err != nil {
			return nil, wormhole.NewError(wormhole.KindExternalService, "eth_getCode",
				fmt.Errorf("code of %s at block %s: %w", addr.Hex(), b.number, err))
		}
		witness.Code = code
	}
	return witness, nil
}

func sortedSlots(set map[common.Hash]struct{}) []common.Hash {
	slots := make([]common.Hash, 0, len(set))
	for slot := range set {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return bytes.Compare(slots[i][:], slots[j][:]) < 0 })
	return slots
}

func decodeProof(nodes []string) ([][]byte, error) {
	out := make([][]byte, len(nodes))
	for i, node := range nodes {
		b, err := hexutil.Decode(node)
		if err != nil {
			return nil, fmt.Errorf("proof node %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}
