package token

import (
	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
)

// BasisPoints is the denominator of fee rates.
const BasisPoints = 10000

var basisPoints = uint256.NewInt(BasisPoints)

// Split is the division of a gross transfer amount.
type Split struct {
	Net          *uint256.Int
	RewardFee    *uint256.Int
	LiquidityFee *uint256.Int
}

// HasFee reports whether any fee component is non-zero.
func (s Split) HasFee() bool {
	return !s.RewardFee.IsZero() || !s.LiquidityFee.IsZero()
}

// FeePolicy computes the fee split of a transfer. Only the sender's fee
// exemption is consulted.
type FeePolicy struct {
	registry        *ExclusionRegistry
	taxFeeBps       uint16
	liquidityFeeBps uint16
}

func NewFeePolicy(registry *ExclusionRegistry, taxFeeBps, liquidityFeeBps uint16) (*FeePolicy, error) {
	if uint32(taxFeeBps)+uint32(liquidityFeeBps) > BasisPoints {
		return nil, tokenerrors.ErrCInvalidFee
	}
	return &FeePolicy{
		registry:        registry,
		taxFeeBps:       taxFeeBps,
		liquidityFeeBps: liquidityFeeBps,
	}, nil
}

func (p *FeePolicy) TaxFeeBps() uint16       { return p.taxFeeBps }
func (p *FeePolicy) LiquidityFeeBps() uint16 { return p.liquidityFeeBps }

// ComputeSplit returns the split for gross sent from sender to recipient.
// The recipient does not influence the result.
func (p *FeePolicy) ComputeSplit(sender, recipient common.Address, gross *uint256.Int) Split {
	if p.registry.IsExcludedFromFee(sender) {
		return feeSplit(gross, 0, 0)
	}
	return feeSplit(gross, p.taxFeeBps, p.liquidityFeeBps)
}

// feeSplit computes gross*bps/10000 for both components with a 512-bit
// intermediate. The quotient never exceeds gross, so it cannot overflow.
func feeSplit(gross *uint256.Int, taxFeeBps, liquidityFeeBps uint16) Split {
	reward, _ := new(uint256.Int).MulDivOverflow(gross, uint256.NewInt(uint64(taxFeeBps)), basisPoints)
	liquidity, _ := new(uint256.Int).MulDivOverflow(gross, uint256.NewInt(uint64(liquidityFeeBps)), basisPoints)
	net := new(uint256.Int).Sub(gross, reward)
	net.Sub(net, liquidity)
	return Split{Net: net, RewardFee: reward, LiquidityFee: liquidity}
}
