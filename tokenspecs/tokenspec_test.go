package tokenspecs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEmbeddedSpecs(t *testing.T) {
	assert.Equal(t, []string{"dev", "moonbase"}, Names())

	spec, err := ReadSpec("moonbase")
	require.NoError(t, err)
	g, err := spec.Genesis()
	require.NoError(t, err)

	want := token.DefaultGenesis()
	want.Normalize()
	assert.Equal(t, want, g)
}

func TestBuildDevSpec(t *testing.T) {
	spec, err := ReadSpec("dev")
	require.NoError(t, err)
	e, err := spec.Build()
	require.NoError(t, err)
	defer e.Close()

	devs := common.GetDevAddresses(10)
	for _, a := range devs[1:5] {
		assert.Equal(t, uint256.NewInt(1_000_000_000_000), e.BalanceOf(a), a.Hex())
	}
	assert.True(t, e.IsExcludedFromFee(devs[5]))
	assert.True(t, e.IsExcludedFromReward(devs[9]))
	assert.Equal(t, uint256.NewInt(5_000_000_000_000), e.MaxTransferAmount())
	assert.Equal(t, uint64(len(spec.Allocations)+len(spec.ExcludeFromFee)+len(spec.ExcludeFromReward)), e.Seq())

	// the dev cap applies to everyone but the owner
	_, err = e.Transfer(devs[1], devs[2], uint256.NewInt(5_000_000_000_001))
	assert.ErrorIs(t, err, tokenerrors.ErrTExceedsMaxTransfer)
}

func TestReadSpecFile(t *testing.T) {
	spec := FromGenesis("custom", token.DefaultGenesis())
	spec.TotalSupply = "21000000000000000"
	spec.TaxFeeBps = 100
	data, err := json.MarshalIndent(spec, "", "  ")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := ReadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, spec, got)
	g, err := got.Genesis()
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(21_000_000_000_000_000), g.TotalSupply)
	assert.Equal(t, uint16(100), g.TaxFeeBps)
}

func TestSpecRejects(t *testing.T) {
	_, err := ReadSpec("does-not-exist.json")
	assert.Error(t, err)

	_, err = ParseSpec([]byte("{"))
	assert.Error(t, err)

	base := func() *TokenSpec {
		s, err := ReadSpec("moonbase")
		require.NoError(t, err)
		return s
	}

	s := base()
	s.TotalSupply = "12abc"
	_, err = s.Genesis()
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)

	s = base()
	s.Owner = "0x1234"
	_, err = s.Genesis()
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)

	s = base()
	s.TaxFeeBps = 10000
	_, err = s.Genesis()
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidFee)

	s = base()
	s.Allocations = map[string]string{"0x70997970C51812dc3A010C7d01b50e0d17dc79C8": "1000000000000000000000001"}
	_, err = s.Build()
	assert.ErrorIs(t, err, tokenerrors.ErrTInsufficientBalance)
}
