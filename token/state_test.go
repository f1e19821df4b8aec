package token

import (
	"errors"
	"testing"

	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memWriter stages writes and applies them on Flush.
type memWriter struct {
	accounts map[common.Address]Account
	globals  Globals
	staged   map[common.Address]Account
	flushErr error
	flushes  int
}

func (w *memWriter) WriteAccount(addr common.Address, acct Account) error {
	if w.staged == nil {
		w.staged = make(map[common.Address]Account)
	}
	w.staged[addr] = acct
	return nil
}

func (w *memWriter) WriteGlobals(g Globals) error {
	w.globals = g
	return nil
}

func (w *memWriter) Flush() error {
	if w.flushErr != nil {
		w.staged = nil
		return w.flushErr
	}
	if w.accounts == nil {
		w.accounts = make(map[common.Address]Account)
	}
	for addr, acct := range w.staged {
		w.accounts[addr] = acct
	}
	w.staged = nil
	w.flushes++
	return nil
}

func TestCommitWritesDirtyAccounts(t *testing.T) {
	e := newTestEngine(t, nil)
	w := &memWriter{}

	n, err := e.Commit(w)
	require.NoError(t, err)
	assert.Equal(t, 2, n) // owner and liquidity account

	n, err = e.Commit(w)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	fund(t, e, alice, 10000)
	_, err = e.Transfer(alice, bob, u(1000))
	require.NoError(t, err)
	n, err = e.Commit(w)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, e.Seq(), w.globals.Seq)
	assert.Equal(t, e.TotalReflection(), w.globals.TotalReflection)
	assert.Len(t, w.accounts, 4)
}

func TestCommitFailureKeepsDirty(t *testing.T) {
	e := newTestEngine(t, nil)
	w := &memWriter{flushErr: errors.New("disk full")}

	_, err := e.Commit(w)
	require.Error(t, err)

	w.flushErr = nil
	n, err := e.Commit(w)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t, nil)
	fund(t, e, alice, 100000)
	fund(t, e, bob, 50000)
	require.NoError(t, e.SetExcludedFromReward(owner, bob, true))
	for i := 0; i < 10; i++ {
		_, err := e.Transfer(alice, carol, u(1234))
		require.NoError(t, err)
		_, err = e.Transfer(bob, alice, u(321))
		require.NoError(t, err)
	}
	require.NoError(t, e.TransferOwnership(owner, carol))

	w := &memWriter{}
	_, err := e.Commit(w)
	require.NoError(t, err)

	restored, err := Restore(e.Genesis(), w.globals, w.accounts)
	require.NoError(t, err)
	assert.Equal(t, e.Export(), restored.Export())
	assert.Equal(t, carol, restored.Owner())
	assert.Equal(t, e.Rate(), restored.Rate())

	// the restored engine carries on identically
	r1, err := e.Transfer(alice, bob, u(777))
	require.NoError(t, err)
	r2, err := restored.Transfer(alice, bob, u(777))
	require.NoError(t, err)
	assert.Equal(t, r1.Seq, r2.Seq)
	assert.Equal(t, e.Export(), restored.Export())
}

func TestRestoreRejectsInconsistentState(t *testing.T) {
	e := newTestEngine(t, nil)
	fund(t, e, alice, 1000)
	require.NoError(t, e.SetExcludedFromReward(owner, alice, true))
	w := &memWriter{}
	_, err := e.Commit(w)
	require.NoError(t, err)

	globals := w.globals
	globals.ExcludedReal = new(uint256.Int).AddUint64(globals.ExcludedReal, 1)
	_, err = Restore(e.Genesis(), globals, w.accounts)
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)

	globals = w.globals
	globals.TotalReflection = new(uint256.Int).SetAllOne()
	_, err = Restore(e.Genesis(), globals, w.accounts)
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)

	globals = w.globals
	globals.TotalFees = nil
	_, err = Restore(e.Genesis(), globals, w.accounts)
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)

	// a mode byte outside the two balance modes
	accounts := make(map[common.Address]Account, len(w.accounts))
	for addr, acct := range w.accounts {
		accounts[addr] = acct
	}
	acct := accounts[alice]
	acct.Mode = ModeAbsolute + 1
	accounts[alice] = acct
	_, err = Restore(e.Genesis(), w.globals, accounts)
	assert.ErrorIs(t, err, tokenerrors.ErrCInvalidGenesis)
	_, err = Restore(e.Genesis(), w.globals, w.accounts)
	assert.NoError(t, err)
}

func TestExportKeysByHex(t *testing.T) {
	e := newTestEngine(t, nil)
	fund(t, e, alice, 1000)
	d := e.Export()
	require.Len(t, d.Accounts, 3)
	acct, ok := d.Accounts[alice.Hex()]
	require.True(t, ok)
	assert.Equal(t, u(1000), acct.Balance)
	assert.Equal(t, e.Info(), d.Token)
}
