package token

import (
	"github.com/holiman/uint256"
)

// BalanceMode selects the unit system an account's Units are kept in.
type BalanceMode uint8

const (
	// ModeReflected accounts are reward-eligible; Units are reflected units.
	ModeReflected BalanceMode = iota
	// ModeAbsolute accounts are reward-excluded; Units are real token units.
	ModeAbsolute
)

func (m BalanceMode) String() string {
	switch m {
	case ModeReflected:
		return "reflected"
	case ModeAbsolute:
		return "absolute"
	default:
		return "unknown"
	}
}

// Account is the per-holder record. Units is interpreted by Mode, so an
// account never carries a reflected and an absolute balance at the same time.
type Account struct {
	ExcludedFromFee bool
	Mode            BalanceMode
	Units           uint256.Int
}

// ExcludedFromReward reports whether the account is tracked in absolute units.
func (a *Account) ExcludedFromReward() bool {
	return a.Mode == ModeAbsolute
}

// IsEmpty is true for an account that is indistinguishable from one never seen.
func (a *Account) IsEmpty() bool {
	return !a.ExcludedFromFee && a.Mode == ModeReflected && a.Units.IsZero()
}
