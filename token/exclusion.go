package token

import (
	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
)

// ExclusionRegistry answers and changes the fee and reward exemptions of accounts.
// Moving an account in or out of reward exclusion converts its balance basis once.
type ExclusionRegistry struct {
	ledger *Ledger
	supply *ScaledSupply
}

func NewExclusionRegistry(ledger *Ledger, supply *ScaledSupply) *ExclusionRegistry {
	return &ExclusionRegistry{ledger: ledger, supply: supply}
}

func (r *ExclusionRegistry) IsExcludedFromFee(addr common.Address) bool {
	acct := r.ledger.Account(addr)
	return acct.ExcludedFromFee
}

func (r *ExclusionRegistry) IsExcludedFromReward(addr common.Address) bool {
	acct := r.ledger.Account(addr)
	return acct.ExcludedFromReward()
}

// SetExcludedFromFee reports whether the flag changed.
func (r *ExclusionRegistry) SetExcludedFromFee(addr common.Address, excluded bool) bool {
	acct := r.ledger.Account(addr)
	if acct.ExcludedFromFee == excluded {
		return false
	}
	acct.ExcludedFromFee = excluded
	r.ledger.put(addr, acct)
	return true
}

// SetExcludedFromReward switches addr between reflected and absolute tracking.
// Excluding snapshots absolute = reflected / rate (floor); including converts
// back with reflected = absolute * rate.
func (r *ExclusionRegistry) SetExcludedFromReward(addr common.Address, excluded bool) error {
	acct := r.ledger.Account(addr)
	if acct.ExcludedFromReward() == excluded {
		if excluded {
			return tokenerrors.ErrRAlreadyExcluded
		}
		return tokenerrors.ErrRNotExcluded
	}

	rate := r.supply.Rate()
	if excluded {
		reflected := acct.Units
		var absolute uint256.Int
		absolute.Div(&reflected, rate)
		if err := r.supply.park(&absolute, &reflected); err != nil {
			return err
		}
		acct.Mode = ModeAbsolute
		acct.Units = absolute
	} else {
		absolute := acct.Units
		reflected, err := toReflected(&absolute, rate)
		if err != nil {
			return err
		}
		if err := r.supply.unpark(&absolute, reflected); err != nil {
			return err
		}
		acct.Mode = ModeReflected
		acct.Units = *reflected
	}
	r.ledger.put(addr, acct)
	return nil
}
