package wormhole

import (
	"github.com/holiman/uint256"
)

// AuditBalance passes iff balance >= requested + alreadyClaimed.
// A nil balance or claimed counter is read as zero.
func AuditBalance(balance *uint256.Int, requested uint64, alreadyClaimed *uint256.Int) error {
	if balance == nil {
		balance = new(uint256.Int)
	}
	if alreadyClaimed == nil {
		alreadyClaimed = new(uint256.Int)
	}
	required, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(requested), alreadyClaimed)
	if overflow {
		return Errorf(KindInsufficientFunds, "audit balance",
			"required amount overflows: requested %d + claimed %s", requested, alreadyClaimed.Dec())
	}
	if balance.Lt(required) {
		return Errorf(KindInsufficientFunds, "audit balance",
			"%w: balance %s is less than required minimum %d + claimed amount %s",
			ErrInsufficientFunds, balance.Dec(), requested, alreadyClaimed.Dec())
	}
	return nil
}
