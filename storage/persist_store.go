package storage

import (
	"fmt"

	log "github.com/colorfulnotion/moonbase/log"
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const module = log.StorageMonitoring

// PersistenceStore wraps LevelDB for raw key-value persistence.
// Thread-safe: LevelDB handles its own synchronization.
type PersistenceStore struct {
	db   *leveldb.DB
	path string
}

// NewPersistenceStore opens or creates a LevelDB database at the given path.
// If path is empty, uses in-memory storage.
func NewPersistenceStore(path string) (*PersistenceStore, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
		if leveldberrors.IsCorrupted(err) {
			log.Warn(module, "recovering corrupted database", "path", path)
			db, err = leveldb.RecoverFile(path, nil)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	log.Debug(module, "opened store", "path", path)
	return &PersistenceStore{db: db, path: path}, nil
}

// NewMemoryPersistenceStore creates an in-memory PersistenceStore for testing.
func NewMemoryPersistenceStore() (*PersistenceStore, error) {
	return NewPersistenceStore("")
}

// Get retrieves a value by key. Returns (nil, false, nil) if not found.
func (ps *PersistenceStore) Get(key []byte) ([]byte, bool, error) {
	data, err := ps.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Get %x: %w", key, err)
	}
	return data, true, nil
}

func (ps *PersistenceStore) Has(key []byte) (bool, error) {
	return ps.db.Has(key, nil)
}

func (ps *PersistenceStore) Put(key []byte, value []byte) error {
	return ps.db.Put(key, value, nil)
}

func (ps *PersistenceStore) Delete(key []byte) error {
	return ps.db.Delete(key, nil)
}

// Write applies a batch atomically. sync forces an fsync before returning.
func (ps *PersistenceStore) Write(batch *leveldb.Batch, sync bool) error {
	return ps.db.Write(batch, &opt.WriteOptions{Sync: sync})
}

// GetWithPrefix returns all key-value pairs with the given prefix, in key order.
func (ps *PersistenceStore) GetWithPrefix(prefix []byte) ([][2][]byte, error) {
	iter := ps.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var results [][2][]byte
	for iter.Next() {
		// the iterator reuses its buffers
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		results = append(results, [2][]byte{key, value})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("GetWithPrefix %x: %w", prefix, err)
	}
	return results, nil
}

func (ps *PersistenceStore) Close() error {
	return ps.db.Close()
}

// DB returns the underlying LevelDB instance for advanced operations.
// Use sparingly - prefer the wrapper methods.
func (ps *PersistenceStore) DB() *leveldb.DB {
	return ps.db
}

// Path is the database directory; empty for in-memory stores.
func (ps *PersistenceStore) Path() string {
	return ps.path
}
