package token

import (
	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
)

// TokenInfo is a consistent snapshot of the global state.
type TokenInfo struct {
	Name              string         `json:"name"`
	Symbol            string         `json:"symbol"`
	Decimals          uint8          `json:"decimals"`
	Address           common.Address `json:"address"`
	Owner             common.Address `json:"owner"`
	LiquidityAccount  common.Address `json:"liquidity_account"`
	TotalSupply       *uint256.Int   `json:"total_supply"`
	TotalReflection   *uint256.Int   `json:"total_reflection"`
	Rate              *uint256.Int   `json:"rate"`
	ExcludedReal      *uint256.Int   `json:"excluded_real"`
	ExcludedReflected *uint256.Int   `json:"excluded_reflected"`
	TotalFees         *uint256.Int   `json:"total_fees"`
	TotalLiquidity    *uint256.Int   `json:"total_liquidity"`
	TaxFeeBps         uint16         `json:"tax_fee_bps"`
	LiquidityFeeBps   uint16         `json:"liquidity_fee_bps"`
	MaxTransferAmount *uint256.Int   `json:"max_transfer_amount"`
	Holders           int            `json:"holders"`
	Seq               uint64         `json:"seq"`
}

// AccountInfo describes one account as seen at the current rate.
type AccountInfo struct {
	Address            common.Address `json:"address"`
	Balance            *uint256.Int   `json:"balance"`
	Units              *uint256.Int   `json:"units"`
	Mode               string         `json:"mode"`
	ExcludedFromFee    bool           `json:"excluded_from_fee"`
	ExcludedFromReward bool           `json:"excluded_from_reward"`
}

func (e *Engine) Name() string    { return e.genesis.Name }
func (e *Engine) Symbol() string  { return e.genesis.Symbol }
func (e *Engine) Decimals() uint8 { return e.genesis.Decimals }

// Address is the token's own address, the emitter of receipt logs.
func (e *Engine) Address() common.Address { return e.genesis.Address }

// Genesis returns the parameters the engine was created from.
func (e *Engine) Genesis() Genesis {
	g := e.genesis
	g.TotalSupply = new(uint256.Int).Set(e.genesis.TotalSupply)
	g.MaxTransferAmount = new(uint256.Int).Set(e.genesis.MaxTransferAmount)
	return g
}

func (e *Engine) TotalSupply() *uint256.Int {
	return e.supply.TotalSupply()
}

func (e *Engine) BalanceOf(addr common.Address) *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.BalanceOf(addr)
}

func (e *Engine) IsExcludedFromFee(addr common.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.IsExcludedFromFee(addr)
}

func (e *Engine) IsExcludedFromReward(addr common.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.IsExcludedFromReward(addr)
}

// TotalFees is the cumulative reward fee reflected to holders, deliveries included.
func (e *Engine) TotalFees() *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return new(uint256.Int).Set(&e.totalFees)
}

// TotalLiquidity is the cumulative liquidity fee credited to the liquidity account.
func (e *Engine) TotalLiquidity() *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return new(uint256.Int).Set(&e.totalLiquidity)
}

func (e *Engine) Rate() *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.supply.Rate()
}

func (e *Engine) TotalReflection() *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.supply.TotalReflection()
}

func (e *Engine) Owner() common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.owner
}

func (e *Engine) LiquidityAccount() common.Address { return e.genesis.LiquidityAccount }

func (e *Engine) MaxTransferAmount() *uint256.Int {
	return new(uint256.Int).Set(e.genesis.MaxTransferAmount)
}

func (e *Engine) Seq() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.seq
}

// HolderCount is the number of account records, empty ones included.
func (e *Engine) HolderCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Len()
}

// ReflectionFromToken returns the reflected value of amount at the current
// rate, optionally after the standard fees are taken off.
func (e *Engine) ReflectionFromToken(amount *uint256.Int, deductFee bool) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if amount.Gt(&e.supply.tTotal) {
		return nil, tokenerrors.ErrRAmountExceedsSupply
	}
	value := amount
	if deductFee {
		value = feeSplit(amount, e.fees.TaxFeeBps(), e.fees.LiquidityFeeBps()).Net
	}
	return toReflected(value, e.supply.Rate())
}

// TokenFromReflection converts reflected units to real units at the current rate.
func (e *Engine) TokenFromReflection(reflected *uint256.Int) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if reflected.Gt(&e.supply.rTotal) {
		return nil, tokenerrors.ErrRAmountExceedsReflection
	}
	return e.supply.ToReal(reflected), nil
}

func (e *Engine) Info() TokenInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.info()
}

func (e *Engine) info() TokenInfo {
	return TokenInfo{
		Name:              e.genesis.Name,
		Symbol:            e.genesis.Symbol,
		Decimals:          e.genesis.Decimals,
		Address:           e.genesis.Address,
		Owner:             e.owner,
		LiquidityAccount:  e.genesis.LiquidityAccount,
		TotalSupply:       e.supply.TotalSupply(),
		TotalReflection:   e.supply.TotalReflection(),
		Rate:              e.supply.Rate(),
		ExcludedReal:      e.supply.ExcludedReal(),
		ExcludedReflected: e.supply.ExcludedReflected(),
		TotalFees:         new(uint256.Int).Set(&e.totalFees),
		TotalLiquidity:    new(uint256.Int).Set(&e.totalLiquidity),
		TaxFeeBps:         e.fees.TaxFeeBps(),
		LiquidityFeeBps:   e.fees.LiquidityFeeBps(),
		MaxTransferAmount: new(uint256.Int).Set(e.genesis.MaxTransferAmount),
		Holders:           e.ledger.Len(),
		Seq:               e.seq,
	}
}

func (e *Engine) AccountInfo(addr common.Address) AccountInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.accountInfo(addr, e.supply.Rate())
}

// Accounts lists every account record sorted by address.
func (e *Engine) Accounts() []AccountInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.accounts()
}

func (e *Engine) accounts() []AccountInfo {
	rate := e.supply.Rate()
	addrs := e.ledger.Addresses()
	out := make([]AccountInfo, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, e.accountInfo(addr, rate))
	}
	return out
}

func (e *Engine) accountInfo(addr common.Address, rate *uint256.Int) AccountInfo {
	acct := e.ledger.Account(addr)
	return AccountInfo{
		Address:            addr,
		Balance:            e.ledger.balanceAt(addr, rate),
		Units:              new(uint256.Int).Set(&acct.Units),
		Mode:               acct.Mode.String(),
		ExcludedFromFee:    acct.ExcludedFromFee,
		ExcludedFromReward: acct.ExcludedFromReward(),
	}
}
