package sketch

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/core/vm/runtime"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/wormhole"
)

// DefaultCallGasLimit is used when the sketch header carries no gas limit
const DefaultCallGasLimit uint64 = 30_000_000

// Executor replays sketch calls offline. Construction verifies every
// witness against the header's state root; after that the in-memory state
// holds nothing the proofs did not establish.
type Executor struct {
	header   *types.Header
	state    *state.StateDB
	accounts map[common.Address]map[common.Hash]struct{}
	calls    []CallRecord
	gasUsed  uint64
}

func sketchErr(op, format string, args ...interface{}) error {
	return wormhole.NewError(wormhole.KindSketchMismatch, op,
		fmt.Errorf("%w: "+format, append([]interface{}{wormhole.ErrSketchMismatch}, args...)...))
}

// NewExecutor verifies s and loads its state
func NewExecutor(s *Sketch) (*Executor, error) {
	if s == nil {
		return nil, sketchErr("load sketch", "nil sketch")
	}
	header, err := s.DecodeHeader()
	if err != nil {
		return nil, sketchErr("load sketch", "%v", err)
	}
	statedb, err := state.New(types.EmptyRootHash, state.NewDatabaseForTesting())
	if err != nil {
		return nil, fmt.Errorf("create in-memory state: %w", err)
	}

	e := &Executor{
		header:   header,
		state:    statedb,
		accounts: make(map[common.Address]map[common.Hash]struct{}, len(s.Accounts)),
		calls:    s.Calls,
	}
	for i := range s.Accounts {
		if err := e.loadAccount(&s.Accounts[i]); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Executor) loadAccount(w *AccountWitness) error {
	if _, dup := e.accounts[w.Address]; dup {
		return sketchErr("verify account", "duplicate witness for %s", w.Address.Hex())
	}
	value, err := verifyProof(e.header.Root, crypto.Keccak256(w.Address.Bytes()), w.Proof)
	if err != nil {
		return sketchErr("verify account", "account %s: %v", w.Address.Hex(), err)
	}

	var account *types.StateAccount
	if value != nil {
		account = new(types.StateAccount)
		if err := rlp.DecodeBytes(value, account); err != nil {
			return sketchErr("verify account", "decode account %s: %v", w.Address.Hex(), err)
		}
	}

	storageRoot := types.EmptyRootHash
	codeHash := types.EmptyCodeHash
	if account != nil {
		storageRoot = account.Root
		codeHash = common.BytesToHash(account.CodeHash)
	}
	if crypto.Keccak256Hash(w.Code) != codeHash {
		return sketchErr("verify code", "code of %s does not match code hash %s", w.Address.Hex(), codeHash.Hex())
	}

	slots := make(map[common.Hash]struct{}, len(w.Storage))
	for _, sw := range w.Storage {
		raw, err := verifyProof(storageRoot, crypto.Keccak256(sw.Key.Bytes()), sw.Proof)
		if err != nil {
			return sketchErr("verify storage", "slot %s of %s: %v", sw.Key.Hex(), w.Address.Hex(), err)
		}
		var val common.Hash
		if len(raw) > 0 {
			_, content, _, err := rlp.Split(raw)
			if err != nil {
				return sketchErr("verify storage", "decode slot %s of %s: %v", sw.Key.Hex(), w.Address.Hex(), err)
			}
			val = common.BytesToHash(content)
		}
		if account != nil && val != (common.Hash{}) {
			e.state.SetState(w.Address, sw.Key, val)
		}
		slots[sw.Key] = struct{}{}
	}
	e.accounts[w.Address] = slots

	if account != nil {
		e.state.SetBalance(w.Address, account.Balance, tracing.BalanceChangeUnspecified)
		e.state.SetNonce(w.Address, account.Nonce, tracing.NonceChangeUnspecified)
		if len(w.Code) > 0 {
			e.state.SetCode(w.Address, w.Code)
		}
	}
	return nil
}

// verifyProof checks a Merkle-Patricia proof. A nil value with a nil error
// proves absence.
func verifyProof(root common.Hash, key []byte, proof [][]byte) ([]byte, error) {
	if root == types.EmptyRootHash && len(proof) == 0 {
		return nil, nil
	}
	db := memorydb.New()
	for _, node := range proof {
		if err := db.Put(crypto.Keccak256(node), node); err != nil {
			return nil, err
		}
	}
	return trie.VerifyProof(root, key, db)
}

// Header returns the verified anchor header
func (e *Executor) Header() *types.Header {
	return e.header
}

// BlockHash returns the hash of the anchor header
func (e *Executor) BlockHash() common.Hash {
	return e.header.Hash()
}

// GasUsed returns the gas consumed by all replays so far
func (e *Executor) GasUsed() uint64 {
	return e.gasUsed
}

// BindBlockHash checks that the sketch is anchored to the committed block
func (e *Executor) BindBlockHash(committed common.Hash) error {
	if got := e.header.Hash(); got != committed {
		return sketchErr("bind block hash", "sketch block %s does not match committed block %s", got.Hex(), committed.Hex())
	}
	return nil
}

// Execute replays a recorded call and returns its output. The call must be
// listed in the sketch and must produce the output the host recorded.
func (e *Executor) Execute(call ContractCall) ([]byte, error) {
	var record *CallRecord
	for i := range e.calls {
		if e.calls[i].matches(call) {
			record = &e.calls[i]
			break
		}
	}
	if record == nil {
		return nil, sketchErr("execute call", "call not covered: %s from %s", call.Contract.Hex(), call.Caller.Hex())
	}
	// target and caller must be proven even when the replay never reads them
	for _, addr := range []common.Address{call.Contract, call.Caller} {
		if _, ok := e.accounts[addr]; !ok {
			return nil, sketchErr("execute call", "account %s not in sketch", addr.Hex())
		}
	}

	guard := newWitnessGuard(e.accounts)
	gasLimit := e.header.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultCallGasLimit
	}
	cfg := &runtime.Config{
		State:       e.state.Copy(),
		BlockNumber: new(big.Int).Set(e.header.Number),
		Time:        e.header.Time,
		Coinbase:    e.header.Coinbase,
		BaseFee:     e.header.BaseFee,
		GasLimit:    gasLimit,
		Origin:      call.Caller,
		EVMConfig:   vm.Config{Tracer: guard.hooks()},
	}
	output, leftOver, err := runtime.Call(call.Contract, call.Input, cfg)
	if guard.violation != nil {
		return nil, sketchErr("execute call", "%v", guard.violation)
	}
	if err != nil {
		return nil, sketchErr("execute call", "replay of %s failed: %v", call.Contract.Hex(), err)
	}
	if !bytes.Equal(output, record.Output) {
		return nil, sketchErr("execute call", "replay output of %s differs from host output", call.Contract.Hex())
	}
	e.gasUsed += gasLimit - leftOver
	return output, nil
}
