package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colorfulnotion/moonbase/common"
	log "github.com/colorfulnotion/moonbase/log"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/colorfulnotion/moonbase/tokenspecs"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
)

// Key layout:
//
//	"g"               genesis spec (JSON)
//	"s"               globals (RLP)
//	"a" || address    account record (RLP)
var (
	genesisKey       = []byte("g")
	globalsKey       = []byte("s")
	accountKeyPrefix = []byte("a")
)

// ErrNoState is returned by Open on a store that was never initialised.
var ErrNoState = errors.New("store holds no token state")

// accountRecord is the persisted form of token.Account.
type accountRecord struct {
	ExcludedFromFee bool
	Mode            uint8
	Units           *uint256.Int
}

// TokenStore persists a token engine in a PersistenceStore.
type TokenStore struct {
	ps *PersistenceStore
}

// NewTokenStore opens the store at path; an empty path keeps it in memory.
func NewTokenStore(path string) (*TokenStore, error) {
	ps, err := NewPersistenceStore(path)
	if err != nil {
		return nil, err
	}
	return &TokenStore{ps: ps}, nil
}

func (s *TokenStore) Close() error {
	return s.ps.Close()
}

func accountKey(addr common.Address) []byte {
	key := make([]byte, 0, len(accountKeyPrefix)+common.AddressLength)
	key = append(key, accountKeyPrefix...)
	return append(key, addr.Bytes()...)
}

// Initialized reports whether a genesis has been written.
func (s *TokenStore) Initialized() (bool, error) {
	return s.ps.Has(genesisKey)
}

// Init writes the genesis and the initial state of e in one batch. It
// refuses to overwrite an initialised store.
func (s *TokenStore) Init(id string, e *token.Engine) error {
	w, err := s.initWriter(id, e)
	if err != nil {
		return err
	}
	_, err = s.commit(e, w)
	return err
}

// initWriter returns a batch with the genesis spec already staged.
func (s *TokenStore) initWriter(id string, e *token.Engine) (*batchWriter, error) {
	ok, err := s.Initialized()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, fmt.Errorf("store %q already initialised", s.ps.Path())
	}
	data, err := json.Marshal(tokenspecs.FromGenesis(id, e.Genesis()))
	if err != nil {
		return nil, err
	}
	w := s.newBatchWriter()
	w.batch.Put(genesisKey, data)
	return w, nil
}

// Commit flushes the accounts e changed since its last commit, together with
// the globals, in one batch.
func (s *TokenStore) Commit(e *token.Engine) (int, error) {
	return s.commit(e, s.newBatchWriter())
}

func (s *TokenStore) commit(e *token.Engine, w token.StateWriter) (int, error) {
	n, err := e.Commit(w)
	if err != nil {
		return 0, err
	}
	log.Debug(module, "token state committed", "accounts", n, "seq", e.Seq(), "path", s.ps.Path())
	return n, nil
}

// Genesis reads the stored genesis spec.
func (s *TokenStore) Genesis() (*tokenspecs.TokenSpec, error) {
	data, ok, err := s.ps.Get(genesisKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoState
	}
	return tokenspecs.ParseSpec(data)
}

// Load reads the globals and every account record.
func (s *TokenStore) Load() (token.Globals, map[common.Address]token.Account, error) {
	var globals token.Globals
	data, ok, err := s.ps.Get(globalsKey)
	if err != nil {
		return globals, nil, err
	}
	if !ok {
		return globals, nil, ErrNoState
	}
	if err := rlp.DecodeBytes(data, &globals); err != nil {
		return globals, nil, fmt.Errorf("decode globals: %w", err)
	}

	kvs, err := s.ps.GetWithPrefix(accountKeyPrefix)
	if err != nil {
		return globals, nil, err
	}
	accounts := make(map[common.Address]token.Account, len(kvs))
	for _, kv := range kvs {
		if len(kv[0]) != len(accountKeyPrefix)+common.AddressLength {
			return globals, nil, fmt.Errorf("malformed account key %x", kv[0])
		}
		var rec accountRecord
		if err := rlp.DecodeBytes(kv[1], &rec); err != nil {
			return globals, nil, fmt.Errorf("decode account %x: %w", kv[0][1:], err)
		}
		acct := token.Account{ExcludedFromFee: rec.ExcludedFromFee, Mode: token.BalanceMode(rec.Mode)}
		if rec.Units != nil {
			acct.Units.Set(rec.Units)
		}
		accounts[common.BytesToAddress(kv[0][1:])] = acct
	}
	return globals, accounts, nil
}

// Open rebuilds the engine from the store.
func (s *TokenStore) Open() (*token.Engine, error) {
	spec, err := s.Genesis()
	if err != nil {
		return nil, err
	}
	g, err := spec.Genesis()
	if err != nil {
		return nil, err
	}
	globals, accounts, err := s.Load()
	if err != nil {
		return nil, err
	}
	e, err := token.Restore(g, globals, accounts)
	if err != nil {
		return nil, err
	}
	log.Info(module, "token state loaded", "path", s.ps.Path(), "accounts", len(accounts), "seq", globals.Seq)
	return e, nil
}

// batchWriter stages a commit in a LevelDB batch.
type batchWriter struct {
	ps    *PersistenceStore
	batch *leveldb.Batch
}

func (s *TokenStore) newBatchWriter() *batchWriter {
	return &batchWriter{ps: s.ps, batch: new(leveldb.Batch)}
}

func (w *batchWriter) WriteAccount(addr common.Address, acct token.Account) error {
	data, err := rlp.EncodeToBytes(&accountRecord{
		ExcludedFromFee: acct.ExcludedFromFee,
		Mode:            uint8(acct.Mode),
		Units:           &acct.Units,
	})
	if err != nil {
		return err
	}
	w.batch.Put(accountKey(addr), data)
	return nil
}

func (w *batchWriter) WriteGlobals(g token.Globals) error {
	data, err := rlp.EncodeToBytes(&g)
	if err != nil {
		return err
	}
	w.batch.Put(globalsKey, data)
	return nil
}

func (w *batchWriter) Flush() error {
	return w.ps.Write(w.batch, false)
}
