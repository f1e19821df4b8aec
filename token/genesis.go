package token

import (
	"fmt"

	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
)

const (
	DefaultName            = "MoonBase"
	DefaultSymbol          = "MBASE"
	DefaultDecimals        = 9
	DefaultTaxFeeBps       = 500
	DefaultLiquidityFeeBps = 500
)

// DefaultTotalSupply is 10^24 smallest units.
var DefaultTotalSupply = uint256.MustFromDecimal("1000000000000000000000000")

// Genesis holds the immutable parameters of a ledger.
type Genesis struct {
	Name     string
	Symbol   string
	Decimals uint8

	TotalSupply     *uint256.Int
	TaxFeeBps       uint16
	LiquidityFeeBps uint16

	// Owner receives the whole supply and may change exclusions.
	Owner common.Address
	// Address is the token's own address, used as the emitter of receipt logs.
	// Zero means the first contract address of Owner.
	Address common.Address
	// LiquidityAccount holds collected liquidity fees. Zero means Address.
	LiquidityAccount common.Address
	// MaxTransferAmount caps non-owner transfers. Zero disables the cap.
	MaxTransferAmount *uint256.Int
}

// DefaultGenesis is the MoonBase deployment owned by dev account #0.
func DefaultGenesis() Genesis {
	owner, _ := common.GetDevAccount(0)
	return Genesis{
		Name:              DefaultName,
		Symbol:            DefaultSymbol,
		Decimals:          DefaultDecimals,
		TotalSupply:       new(uint256.Int).Set(DefaultTotalSupply),
		TaxFeeBps:         DefaultTaxFeeBps,
		LiquidityFeeBps:   DefaultLiquidityFeeBps,
		Owner:             owner,
		MaxTransferAmount: new(uint256.Int),
	}
}

// Normalize fills derived defaults in place.
func (g *Genesis) Normalize() {
	if g.Address.IsZero() && !g.Owner.IsZero() {
		g.Address = common.ContractAddress(g.Owner, 0)
	}
	if g.LiquidityAccount.IsZero() {
		g.LiquidityAccount = g.Address
	}
	if g.MaxTransferAmount == nil {
		g.MaxTransferAmount = new(uint256.Int)
	}
}

// Validate checks a normalized genesis.
func (g *Genesis) Validate() error {
	if g.Name == "" || g.Symbol == "" {
		return fmt.Errorf("name and symbol are required: %w", tokenerrors.ErrCInvalidGenesis)
	}
	if g.TotalSupply == nil || g.TotalSupply.IsZero() {
		return fmt.Errorf("total supply must be positive: %w", tokenerrors.ErrCInvalidGenesis)
	}
	if uint32(g.TaxFeeBps)+uint32(g.LiquidityFeeBps) > BasisPoints {
		return fmt.Errorf("tax %d + liquidity %d bps: %w", g.TaxFeeBps, g.LiquidityFeeBps, tokenerrors.ErrCInvalidFee)
	}
	if g.Owner.IsZero() {
		return fmt.Errorf("owner is the zero address: %w", tokenerrors.ErrCInvalidGenesis)
	}
	if g.LiquidityAccount.IsZero() || g.LiquidityAccount == g.Owner {
		return fmt.Errorf("liquidity account must be a distinct non-zero address: %w", tokenerrors.ErrCInvalidGenesis)
	}
	return nil
}
