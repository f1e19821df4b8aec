package token

import (
	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
	"golang.org/x/exp/slices"
)

// Ledger owns the account records. Units are debited and credited in the
// account's own mode; converting real amounts is the caller's job.
type Ledger struct {
	supply   *ScaledSupply
	accounts map[common.Address]*Account
	dirty    map[common.Address]struct{}
}

func NewLedger(supply *ScaledSupply) *Ledger {
	return &Ledger{
		supply:   supply,
		accounts: make(map[common.Address]*Account),
		dirty:    make(map[common.Address]struct{}),
	}
}

// Account returns a copy of the record for addr; unseen accounts get the defaults.
func (l *Ledger) Account(addr common.Address) Account {
	if acct, ok := l.accounts[addr]; ok {
		return *acct
	}
	return Account{}
}

// BalanceOf returns the real-unit balance of addr.
func (l *Ledger) BalanceOf(addr common.Address) *uint256.Int {
	return l.balanceAt(addr, l.supply.Rate())
}

func (l *Ledger) balanceAt(addr common.Address, rate *uint256.Int) *uint256.Int {
	acct, ok := l.accounts[addr]
	if !ok {
		return new(uint256.Int)
	}
	if acct.ExcludedFromReward() {
		return new(uint256.Int).Set(&acct.Units)
	}
	return new(uint256.Int).Div(&acct.Units, rate)
}

// Debit removes units from addr.
func (l *Ledger) Debit(addr common.Address, units *uint256.Int) error {
	acct := l.mutable(addr)
	if acct.Units.Lt(units) {
		return tokenerrors.ErrTInsufficientBalance
	}
	acct.Units.Sub(&acct.Units, units)
	return nil
}

// Credit adds units to addr.
func (l *Ledger) Credit(addr common.Address, units *uint256.Int) error {
	acct := l.mutable(addr)
	sum, overflow := new(uint256.Int).AddOverflow(&acct.Units, units)
	if overflow {
		return tokenerrors.ErrTArithmeticOverflow
	}
	acct.Units.Set(sum)
	return nil
}

// Len is the number of accounts that have ever been written.
func (l *Ledger) Len() int {
	return len(l.accounts)
}

// Addresses returns every known account, sorted by address bytes.
func (l *Ledger) Addresses() []common.Address {
	out := make([]common.Address, 0, len(l.accounts))
	for addr := range l.accounts {
		out = append(out, addr)
	}
	slices.SortFunc(out, compareAddress)
	return out
}

func (l *Ledger) mutable(addr common.Address) *Account {
	acct, ok := l.accounts[addr]
	if !ok {
		acct = &Account{}
		l.accounts[addr] = acct
	}
	l.dirty[addr] = struct{}{}
	return acct
}

func (l *Ledger) put(addr common.Address, acct Account) {
	cp := acct
	l.accounts[addr] = &cp
	l.dirty[addr] = struct{}{}
}

func (l *Ledger) remove(addr common.Address) {
	delete(l.accounts, addr)
	delete(l.dirty, addr)
}

func (l *Ledger) takeDirty() []common.Address {
	out := make([]common.Address, 0, len(l.dirty))
	for addr := range l.dirty {
		out = append(out, addr)
	}
	slices.SortFunc(out, compareAddress)
	return out
}

func (l *Ledger) clearDirty(addrs []common.Address) {
	for _, addr := range addrs {
		delete(l.dirty, addr)
	}
}

func compareAddress(a, b common.Address) int {
	for i := 0; i < common.AddressLength; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
