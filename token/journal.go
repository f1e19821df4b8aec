package token

import (
	"github.com/colorfulnotion/moonbase/common"
	"github.com/holiman/uint256"
)

// journal remembers everything a single mutation may touch so a failure
// half way through can be undone.
type journal struct {
	accounts       map[common.Address]*Account // nil: the account did not exist
	dirty          map[common.Address]bool
	supply         ScaledSupply
	totalFees      uint256.Int
	totalLiquidity uint256.Int
}

func (e *Engine) openJournal(addrs ...common.Address) *journal {
	j := &journal{
		accounts:       make(map[common.Address]*Account, len(addrs)),
		dirty:          make(map[common.Address]bool, len(addrs)),
		supply:         *e.supply,
		totalFees:      e.totalFees,
		totalLiquidity: e.totalLiquidity,
	}
	for _, addr := range addrs {
		if _, seen := j.accounts[addr]; seen {
			continue
		}
		_, j.dirty[addr] = e.ledger.dirty[addr]
		if acct, ok := e.ledger.accounts[addr]; ok {
			cp := *acct
			j.accounts[addr] = &cp
		} else {
			j.accounts[addr] = nil
		}
	}
	return j
}

func (e *Engine) revert(j *journal) {
	for addr, acct := range j.accounts {
		if acct == nil {
			e.ledger.remove(addr)
			continue
		}
		cp := *acct
		e.ledger.accounts[addr] = &cp
		if !j.dirty[addr] {
			delete(e.ledger.dirty, addr)
		}
	}
	*e.supply = j.supply
	e.totalFees = j.totalFees
	e.totalLiquidity = j.totalLiquidity
}
