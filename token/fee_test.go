package token

import (
	"testing"

	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeSplit(t *testing.T) {
	cases := []struct {
		name                string
		gross               *uint256.Int
		tax, liq            uint16
		net, reward, liqFee *uint256.Int
	}{
		{"five and five", u(1000), 500, 500, u(900), u(50), u(50)},
		{"no fees", u(1000), 0, 0, u(1000), u(0), u(0)},
		{"zero gross", u(0), 500, 500, u(0), u(0), u(0)},
		{"floors to zero", u(19), 500, 500, u(19), u(0), u(0)},
		{"floors", u(1999), 500, 300, u(1841), u(99), u(59)},
		{"everything", u(77), 10000, 0, u(0), u(77), u(0)},
		{"split everything", u(10), 5000, 5000, u(0), u(5), u(5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := feeSplit(tc.gross, tc.tax, tc.liq)
			assert.Equal(t, tc.net, s.Net)
			assert.Equal(t, tc.reward, s.RewardFee)
			assert.Equal(t, tc.liqFee, s.LiquidityFee)
			sum := new(uint256.Int).Add(s.Net, s.RewardFee)
			sum.Add(sum, s.LiquidityFee)
			assert.Equal(t, tc.gross, sum)
		})
	}
}

func TestFeeSplitNoOverflow(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	s := feeSplit(max, 10000, 0)
	assert.Equal(t, max, s.RewardFee)
	assert.True(t, s.Net.IsZero())

	s = feeSplit(max, 500, 500)
	want, _ := new(uint256.Int).MulDivOverflow(max, u(500), u(10000))
	assert.Equal(t, want, s.RewardFee)
	assert.Equal(t, want, s.LiquidityFee)
}

func TestNewFeePolicyRejectsOverflowingBps(t *testing.T) {
	_, err := NewFeePolicy(nil, 6000, 5000)
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidFee)

	_, err = NewFeePolicy(nil, 10000, 0)
	assert.NoError(t, err)
}

func TestComputeSplitOnlyConsultsSender(t *testing.T) {
	supply, err := NewScaledSupply(DefaultTotalSupply)
	require.NoError(t, err)
	ledger := NewLedger(supply)
	registry := NewExclusionRegistry(ledger, supply)
	policy, err := NewFeePolicy(registry, 500, 500)
	require.NoError(t, err)

	exempt, taxed := common.GetDevAddresses(2)[0], common.GetDevAddresses(2)[1]
	registry.SetExcludedFromFee(exempt, true)

	s := policy.ComputeSplit(exempt, taxed, u(1000))
	assert.False(t, s.HasFee())
	assert.Equal(t, u(1000), s.Net)

	// an exempt recipient does not spare a taxed sender
	s = policy.ComputeSplit(taxed, exempt, u(1000))
	assert.True(t, s.HasFee())
	assert.Equal(t, u(900), s.Net)
	assert.Equal(t, u(50), s.RewardFee)
	assert.Equal(t, u(50), s.LiquidityFee)
}
