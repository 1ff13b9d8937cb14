package sketch

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/vm"
)

// witnessGuard fails a replay that reads state the sketch does not prove.
// Without it, a missing slot would silently read as zero.
type witnessGuard struct {
	accounts  map[common.Address]map[common.Hash]struct{}
	violation error
}

func newWitnessGuard(accounts map[common.Address]map[common.Hash]struct{}) *witnessGuard {
	return &witnessGuard{accounts: accounts}
}

func (g *witnessGuard) hooks() *tracing.Hooks {
	return &tracing.Hooks{OnOpcode: g.onOpcode}
}

func (g *witnessGuard) onOpcode(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, rData []byte, depth int, err error) {
	if g.violation != nil {
		return
	}
	stack := scope.StackData()
	peek := func(n int) (common.Address, common.Hash, bool) {
		if len(stack) <= n {
			return common.Address{}, common.Hash{}, false
		}
		word := stack[len(stack)-1-n].Bytes32()
		return common.BytesToAddress(word[12:]), common.Hash(word), true
	}

	switch vm.OpCode(op) {
	case vm.SLOAD, vm.SSTORE:
		if _, slot, ok := peek(0); ok {
			g.checkSlot(scope.Address(), slot)
		}
	case vm.BALANCE, vm.EXTCODESIZE, vm.EXTCODECOPY, vm.EXTCODEHASH:
		if addr, _, ok := peek(0); ok {
			g.checkAccount(addr)
		}
	case vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.STATICCALL:
		if addr, _, ok := peek(1); ok {
			g.checkAccount(addr)
		}
	}
}

func (g *witnessGuard) checkAccount(addr common.Address) {
	if isPrecompile(addr) {
		return
	}
	if _, ok := g.accounts[addr]; !ok {
		g.violation = fmt.Errorf("account %s touched but not in sketch", addr.Hex())
	}
}

func (g *witnessGuard) checkSlot(addr common.Address, slot common.Hash) {
	slots, ok := g.accounts[addr]
	if !ok {
		g.violation = fmt.Errorf("storage of %s touched but account not in sketch", addr.Hex())
		return
	}
	if _, ok := slots[slot]; !ok {
		g.violation = fmt.Errorf("slot %s of %s touched but not in sketch", slot.Hex(), addr.Hex())
	}
}

// isPrecompile covers 0x01..0x11 and the secp256r1 verifier at 0x100
func isPrecompile(addr common.Address) bool {
	for _, b := range addr[:18] {
		if b != 0 {
			return false
		}
	}
	n := uint16(addr[18])<<8 | uint16(addr[19])
	return (n >= 0x01 && n <= 0x11) || n == 0x100
}
