package token

import (
	"fmt"

	"github.com/colorfulnotion/moonbase/common"
	log "github.com/colorfulnotion/moonbase/log"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
)

// Globals is the mutable global state next to the account records.
type Globals struct {
	TotalReflection   *uint256.Int
	ExcludedReal      *uint256.Int
	ExcludedReflected *uint256.Int
	TotalFees         *uint256.Int
	TotalLiquidity    *uint256.Int
	Owner             common.Address
	Seq               uint64
}

// StateWriter receives the changes of one commit. Nothing is durable before Flush.
type StateWriter interface {
	WriteAccount(addr common.Address, acct Account) error
	WriteGlobals(g Globals) error
	Flush() error
}

// Dump is the full state in a JSON friendly form.
type Dump struct {
	Token    TokenInfo              `json:"token"`
	Accounts map[string]AccountInfo `json:"accounts"`
}

// Globals snapshots the global state.
func (e *Engine) Globals() Globals {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.globals()
}

func (e *Engine) globals() Globals {
	return Globals{
		TotalReflection:   e.supply.TotalReflection(),
		ExcludedReal:      e.supply.ExcludedReal(),
		ExcludedReflected: e.supply.ExcludedReflected(),
		TotalFees:         new(uint256.Int).Set(&e.totalFees),
		TotalLiquidity:    new(uint256.Int).Set(&e.totalLiquidity),
		Owner:             e.owner,
		Seq:               e.seq,
	}
}

// Commit writes the accounts changed since the last commit and the globals,
// returning the number of accounts written.
func (e *Engine) Commit(w StateWriter) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	addrs := e.ledger.takeDirty()
	for _, addr := range addrs {
		if err := w.WriteAccount(addr, e.ledger.Account(addr)); err != nil {
			return 0, fmt.Errorf("commit account %s: %w", addr.Short(), err)
		}
	}
	if err := w.WriteGlobals(e.globals()); err != nil {
		return 0, fmt.Errorf("commit globals: %w", err)
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("commit flush: %w", err)
	}
	e.ledger.clearDirty(addrs)
	log.Debug(module, "committed", "accounts", len(addrs), "seq", e.seq)
	return len(addrs), nil
}

// Restore rebuilds an engine from persisted state. The absolute balances must
// add up to the excluded aggregate and the reflection may only have shrunk.
func Restore(g Genesis, globals Globals, accounts map[common.Address]Account) (*Engine, error) {
	e, err := newEngine(g)
	if err != nil {
		return nil, err
	}
	if globals.TotalReflection == nil || globals.ExcludedReal == nil || globals.ExcludedReflected == nil ||
		globals.TotalFees == nil || globals.TotalLiquidity == nil {
		return nil, fmt.Errorf("restore: incomplete globals: %w", tokenerrors.ErrCInvalidGenesis)
	}
	if globals.TotalReflection.IsZero() || globals.TotalReflection.Gt(&e.supply.rTotal) {
		return nil, fmt.Errorf("restore: reflection %s out of range: %w", globals.TotalReflection.Dec(), tokenerrors.ErrCInvalidGenesis)
	}
	if globals.Owner.IsZero() {
		return nil, fmt.Errorf("restore: owner is the zero address: %w", tokenerrors.ErrCInvalidGenesis)
	}

	var absolute uint256.Int
	for addr, acct := range accounts {
		if acct.Mode != ModeReflected && acct.Mode != ModeAbsolute {
			return nil, fmt.Errorf("restore: account %s has unknown balance mode %d: %w",
				addr.Hex(), acct.Mode, tokenerrors.ErrCInvalidGenesis)
		}
		if acct.ExcludedFromReward() {
			if _, overflow := absolute.AddOverflow(&absolute, &acct.Units); overflow {
				return nil, fmt.Errorf("restore: absolute balances overflow: %w", tokenerrors.ErrTArithmeticOverflow)
			}
		}
		cp := acct
		e.ledger.accounts[addr] = &cp
	}
	if !absolute.Eq(globals.ExcludedReal) {
		return nil, fmt.Errorf("restore: absolute balances %s != excluded %s: %w",
			absolute.Dec(), globals.ExcludedReal.Dec(), tokenerrors.ErrCInvalidGenesis)
	}

	e.supply.rTotal.Set(globals.TotalReflection)
	e.supply.excludedReal.Set(globals.ExcludedReal)
	e.supply.excludedReflected.Set(globals.ExcludedReflected)
	e.totalFees.Set(globals.TotalFees)
	e.totalLiquidity.Set(globals.TotalLiquidity)
	e.owner = globals.Owner
	e.seq = globals.Seq

	log.Info(module, "restored", "accounts", len(accounts), "seq", e.seq, "rate", e.supply.Rate().Dec())
	return e, nil
}

// Export dumps the full state.
func (e *Engine) Export() Dump {
	e.mu.RLock()
	info := e.info()
	accounts := e.accounts()
	e.mu.RUnlock()
	d := Dump{Token: info, Accounts: make(map[string]AccountInfo, len(accounts))}
	for _, a := range accounts {
		d.Accounts[a.Address.Hex()] = a
	}
	return d
}
