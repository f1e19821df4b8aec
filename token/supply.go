package token

import (
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
)

// ScaledSupply keeps the relationship between the real supply (tTotal) and the
// reflected supply (rTotal). Reward-excluded holdings are tracked as two
// running sums so the rate never needs a walk over holders:
//
//	rate = (rTotal - excludedReflected) / (tTotal - excludedReal)
//
// Reflecting a fee shrinks rTotal; every reward-eligible balance (Units / rate)
// grows with it.
type ScaledSupply struct {
	tTotal            uint256.Int
	rTotal            uint256.Int
	excludedReal      uint256.Int
	excludedReflected uint256.Int
}

// NewScaledSupply seeds rTotal with the largest multiple of totalSupply that fits in 256 bits.
// The supply must leave a rate of at least totalSupply, otherwise floor dust
// could add up to more than one real unit.
func NewScaledSupply(totalSupply *uint256.Int) (*ScaledSupply, error) {
	if totalSupply == nil || totalSupply.IsZero() {
		return nil, tokenerrors.ErrCInvalidGenesis
	}
	max := new(uint256.Int).SetAllOne()
	rem := new(uint256.Int).Mod(max, totalSupply)

	s := &ScaledSupply{}
	s.tTotal.Set(totalSupply)
	s.rTotal.Sub(max, rem)

	base := new(uint256.Int).Div(&s.rTotal, &s.tTotal)
	if base.Lt(totalSupply) {
		return nil, tokenerrors.ErrCInvalidGenesis
	}
	return s, nil
}

// TotalSupply is the fixed real supply.
func (s *ScaledSupply) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(&s.tTotal)
}

// TotalReflection is the current reflected supply. It only ever decreases.
func (s *ScaledSupply) TotalReflection() *uint256.Int {
	return new(uint256.Int).Set(&s.rTotal)
}

// ExcludedReal is the sum of the absolute balances of reward-excluded accounts.
func (s *ScaledSupply) ExcludedReal() *uint256.Int {
	return new(uint256.Int).Set(&s.excludedReal)
}

// ExcludedReflected is the reflected value parked with reward-excluded accounts.
func (s *ScaledSupply) ExcludedReflected() *uint256.Int {
	return new(uint256.Int).Set(&s.excludedReflected)
}

// Rate returns reflected units per real unit, truncated.
func (s *ScaledSupply) Rate() *uint256.Int {
	base := new(uint256.Int).Div(&s.rTotal, &s.tTotal)
	if s.excludedReflected.Gt(&s.rTotal) || !s.excludedReal.Lt(&s.tTotal) {
		return base
	}
	rSupply := new(uint256.Int).Sub(&s.rTotal, &s.excludedReflected)
	if rSupply.Lt(base) {
		return base
	}
	tSupply := new(uint256.Int).Sub(&s.tTotal, &s.excludedReal)
	return rSupply.Div(rSupply, tSupply)
}

// ToReflected converts a real amount into reflected units at the current rate.
func (s *ScaledSupply) ToReflected(realAmount *uint256.Int) (*uint256.Int, error) {
	return toReflected(realAmount, s.Rate())
}

// ToReal converts reflected units into a real amount at the current rate, rounding down.
func (s *ScaledSupply) ToReal(reflected *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(reflected, s.Rate())
}

// Reflect redistributes realFee to every reward-eligible holder by shrinking rTotal.
func (s *ScaledSupply) Reflect(realFee *uint256.Int) error {
	return s.reflectAt(realFee, s.Rate())
}

func (s *ScaledSupply) reflectAt(realFee, rate *uint256.Int) error {
	rFee, err := toReflected(realFee, rate)
	if err != nil {
		return err
	}
	if rFee.Gt(&s.rTotal) {
		return tokenerrors.ErrTArithmeticOverflow
	}
	s.rTotal.Sub(&s.rTotal, rFee)
	return nil
}

// park records real units (and their reflected value) entering the reward-excluded set.
func (s *ScaledSupply) park(realAmount, reflected *uint256.Int) error {
	excludedReal, overflow := new(uint256.Int).AddOverflow(&s.excludedReal, realAmount)
	if overflow || excludedReal.Gt(&s.tTotal) {
		return tokenerrors.ErrTArithmeticOverflow
	}
	excludedReflected, overflow := new(uint256.Int).AddOverflow(&s.excludedReflected, reflected)
	if overflow {
		return tokenerrors.ErrTArithmeticOverflow
	}
	s.excludedReal.Set(excludedReal)
	s.excludedReflected.Set(excludedReflected)
	return nil
}

// unpark records real units leaving the reward-excluded set. The reflected
// side saturates at zero: units parked at an earlier, higher rate always cover
// a release at the current rate, apart from rounding.
func (s *ScaledSupply) unpark(realAmount, reflected *uint256.Int) error {
	if realAmount.Gt(&s.excludedReal) {
		return tokenerrors.ErrTArithmeticOverflow
	}
	s.excludedReal.Sub(&s.excludedReal, realAmount)
	if reflected.Gt(&s.excludedReflected) {
		s.excludedReflected.Clear()
	} else {
		s.excludedReflected.Sub(&s.excludedReflected, reflected)
	}
	return nil
}

func toReflected(realAmount, rate *uint256.Int) (*uint256.Int, error) {
	r, overflow := new(uint256.Int).MulOverflow(realAmount, rate)
	if overflow {
		return nil, tokenerrors.ErrTArithmeticOverflow
	}
	return r, nil
}
