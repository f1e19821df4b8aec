package token

import (
	"testing"

	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestNewScaledSupply(t *testing.T) {
	s, err := NewScaledSupply(DefaultTotalSupply)
	require.NoError(t, err)

	max := new(uint256.Int).SetAllOne()
	want := new(uint256.Int).Sub(max, new(uint256.Int).Mod(max, DefaultTotalSupply))
	assert.Equal(t, want, s.TotalReflection())
	assert.True(t, new(uint256.Int).Mod(s.TotalReflection(), s.TotalSupply()).IsZero())
	assert.Equal(t, new(uint256.Int).Div(want, DefaultTotalSupply), s.Rate())
	assert.True(t, s.ExcludedReal().IsZero())
	assert.True(t, s.ExcludedReflected().IsZero())
}

func TestNewScaledSupplyRejects(t *testing.T) {
	_, err := NewScaledSupply(new(uint256.Int))
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)

	_, err = NewScaledSupply(nil)
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)

	// 2^200 leaves a base rate of 2^56, far below the supply.
	huge := new(uint256.Int).Lsh(u(1), 200)
	_, err = NewScaledSupply(huge)
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)
}

func TestReflectShrinksRate(t *testing.T) {
	s, err := NewScaledSupply(DefaultTotalSupply)
	require.NoError(t, err)

	before := s.Rate()
	rBefore := s.TotalReflection()
	require.NoError(t, s.Reflect(u(50)))

	assert.True(t, s.Rate().Lt(before))
	assert.Equal(t, new(uint256.Int).Sub(rBefore, new(uint256.Int).Mul(u(50), before)), s.TotalReflection())
	assert.Equal(t, DefaultTotalSupply, s.TotalSupply())

	// reflecting nothing is a no-op
	rate := s.Rate()
	require.NoError(t, s.Reflect(new(uint256.Int)))
	assert.Equal(t, rate, s.Rate())
}

func TestConversions(t *testing.T) {
	s, err := NewScaledSupply(DefaultTotalSupply)
	require.NoError(t, err)

	r, err := s.ToReflected(u(1000))
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).Mul(u(1000), s.Rate()), r)
	assert.Equal(t, u(1000), s.ToReal(r))

	// one reflected unit short of 1000 floors to 999
	r.Sub(r, u(1))
	assert.Equal(t, u(999), s.ToReal(r))

	_, err = s.ToReflected(new(uint256.Int).SetAllOne())
	assert.ErrorIs(t, err, tokenerrors.ErrTArithmeticOverflow)
}

func TestParkUnpark(t *testing.T) {
	s, err := NewScaledSupply(DefaultTotalSupply)
	require.NoError(t, err)
	rate := s.Rate()

	reflected := new(uint256.Int).Mul(u(1000), rate)
	require.NoError(t, s.park(u(1000), reflected))
	assert.Equal(t, u(1000), s.ExcludedReal())
	assert.Equal(t, reflected, s.ExcludedReflected())
	// exact holdings at genesis keep the rate
	assert.Equal(t, rate, s.Rate())

	require.NoError(t, s.unpark(u(400), new(uint256.Int).Mul(u(400), rate)))
	assert.Equal(t, u(600), s.ExcludedReal())
	assert.Equal(t, rate, s.Rate())

	err = s.unpark(u(601), new(uint256.Int))
	assert.ErrorIs(t, err, tokenerrors.ErrTArithmeticOverflow)

	// the reflected side saturates
	require.NoError(t, s.unpark(u(600), new(uint256.Int).SetAllOne()))
	assert.True(t, s.ExcludedReal().IsZero())
	assert.True(t, s.ExcludedReflected().IsZero())
}

func TestParkBeyondSupply(t *testing.T) {
	s, err := NewScaledSupply(u(1000))
	require.NoError(t, err)

	err = s.park(u(1001), new(uint256.Int))
	assert.ErrorIs(t, err, tokenerrors.ErrTArithmeticOverflow)
	assert.True(t, s.ExcludedReal().IsZero())
}

func TestRateFallback(t *testing.T) {
	s, err := NewScaledSupply(u(1000))
	require.NoError(t, err)
	base := new(uint256.Int).Div(s.TotalReflection(), s.TotalSupply())

	// everything excluded: the plain ratio applies
	require.NoError(t, s.park(u(1000), new(uint256.Int).Mul(u(1000), base)))
	assert.Equal(t, base, s.Rate())
}
