package storage

import (
	"errors"
	"testing"

	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/colorfulnotion/moonbase/tokenspecs"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevEngine(t *testing.T) *token.Engine {
	t.Helper()
	spec, err := tokenspecs.ReadSpec("dev")
	require.NoError(t, err)
	e, err := spec.Build()
	require.NoError(t, err)
	return e
}

func TestTokenStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	devs := common.GetDevAddresses(10)

	s, err := NewTokenStore(dir)
	require.NoError(t, err)
	ok, err := s.Initialized()
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = s.Open()
	assert.ErrorIs(t, err, ErrNoState)

	e := newDevEngine(t)
	require.NoError(t, s.Init("dev", e))
	assert.Error(t, s.Init("dev", e))

	_, err = e.Transfer(devs[1], devs[2], uint256.NewInt(123_456_789))
	require.NoError(t, err)
	_, err = e.Transfer(devs[2], devs[9], uint256.NewInt(1_000_000))
	require.NoError(t, err)
	n, err := s.Commit(e)
	require.NoError(t, err)
	// dev1, dev2, dev9 and the liquidity account
	assert.Equal(t, 4, n)
	require.NoError(t, s.Close())

	s, err = NewTokenStore(dir)
	require.NoError(t, err)
	defer s.Close()
	restored, err := s.Open()
	require.NoError(t, err)

	assert.Equal(t, e.Export(), restored.Export())
	for _, a := range devs {
		assert.Equal(t, e.BalanceOf(a), restored.BalanceOf(a), a.Hex())
	}
	assert.Equal(t, e.Rate(), restored.Rate())
	assert.True(t, restored.IsExcludedFromReward(devs[9]))
	assert.True(t, restored.IsExcludedFromFee(devs[5]))
}

func TestTokenStoreLoad(t *testing.T) {
	s, err := NewTokenStore("")
	require.NoError(t, err)
	defer s.Close()

	e := newDevEngine(t)
	require.NoError(t, s.Init("dev", e))

	globals, accounts, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, e.Globals(), globals)
	assert.Len(t, accounts, e.HolderCount())
	for addr, acct := range accounts {
		info := e.AccountInfo(addr)
		assert.Equal(t, info.Units, &acct.Units)
		assert.Equal(t, info.ExcludedFromReward, acct.ExcludedFromReward())
	}

	spec, err := s.Genesis()
	require.NoError(t, err)
	assert.Equal(t, "dev", spec.ID)
	g, err := spec.Genesis()
	require.NoError(t, err)
	assert.Equal(t, e.Genesis(), g)
}

// failingFlush drops the staged batch instead of writing it.
type failingFlush struct {
	*batchWriter
}

func (failingFlush) Flush() error { return errors.New("disk full") }

func TestTokenStoreInitAtomic(t *testing.T) {
	s, err := NewTokenStore("")
	require.NoError(t, err)
	defer s.Close()

	e := newDevEngine(t)
	w, err := s.initWriter("dev", e)
	require.NoError(t, err)
	_, err = s.commit(e, failingFlush{w})
	require.Error(t, err)

	// the genesis went down with the state
	ok, err := s.Initialized()
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = s.Open()
	assert.ErrorIs(t, err, ErrNoState)

	require.NoError(t, s.Init("dev", e))
	restored, err := s.Open()
	require.NoError(t, err)
	assert.Equal(t, e.Export(), restored.Export())
}

func TestTokenStoreRejectsUnknownMode(t *testing.T) {
	s, err := NewTokenStore("")
	require.NoError(t, err)
	defer s.Close()

	e := newDevEngine(t)
	require.NoError(t, s.Init("dev", e))

	data, err := rlp.EncodeToBytes(&accountRecord{Mode: 9, Units: uint256.NewInt(1)})
	require.NoError(t, err)
	require.NoError(t, s.ps.Put(accountKey(common.GetDevAddresses(12)[11]), data))
	_, err = s.Open()
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)
}
