// Package leveldb implements the ability to read and write blocks to a
// LevelDB database keyed by block index.
package leveldb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// blockPrefix namespaces the block keys inside the database.
var blockPrefix = []byte("blk:")

// LevelDB represents the storage implementation for reading and storing
// blocks in LevelDB. Keys are the block prefix followed by the big endian
// block index so iteration walks the chain in order. This implements the
// database.Storage interface.
type LevelDB struct {
	db *leveldb.DB
}

// New opens or creates the LevelDB database at the specified path.
func New(dbPath string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}

	return &LevelDB{db: db}, nil
}

// NewMemory constructs a LevelDB value backed by memory.
func NewMemory() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}

	return &LevelDB{db: db}, nil
}

// Close releases the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Write takes the specified block and stores it. An existing block is
// never overwritten.
func (l *LevelDB) Write(blockData database.BlockData) error {
	key := blockKey(blockData.Index)

	exists, err := l.db.Has(key, nil)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("block %d already exists", blockData.Index)
	}

	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return l.db.Put(key, data, &opt.WriteOptions{Sync: true})
}

// GetBlock locates and returns the contents of the specified block by index.
func (l *LevelDB) GetBlock(index uint64) (database.BlockData, error) {
	data, err := l.db.Get(blockKey(index), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockData{}, fmt.Errorf("%w: blk[%d]", database.ErrBlockNotFound, index)
		}
		return database.BlockData{}, err
	}

	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, fmt.Errorf("decoding blk[%d]: %w", index, err)
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (l *LevelDB) ForEach() database.Iterator {
	return &levelIterator{iter: l.db.NewIterator(util.BytesPrefix(blockPrefix), nil)}
}

// blockKey constructs the key for the specified block index.
func blockKey(index uint64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], index)

	return key
}

// =============================================================================

// levelIterator walks the block keys in order. The underlying iterator is
// released once the end of the chain is reached or Release is called.
type levelIterator struct {
	iter     iterator.Iterator
	eoc      bool
	released bool
}

// Next retrieves the next block.
func (li *levelIterator) Next() (database.BlockData, error) {
	if li.eoc || li.released {
		li.eoc = true
		return database.BlockData{}, database.ErrEndOfChain
	}

	if !li.iter.Next() {
		err := li.iter.Error()
		li.Release()

		// The end of chain isn't marked on failure so the caller's loop
		// sees the error.
		if err != nil {
			return database.BlockData{}, err
		}

		li.eoc = true
		return database.BlockData{}, database.ErrEndOfChain
	}

	var blockData database.BlockData
	if err := json.Unmarshal(li.iter.Value(), &blockData); err != nil {
		return database.BlockData{}, fmt.Errorf("decoding key %x: %w", li.iter.Key(), err)
	}

	return blockData, nil
}

// Done returns the end of chain value.
func (li *levelIterator) Done() bool {
	return li.eoc
}

// Release frees the underlying iterator. It is safe to call more than once.
func (li *levelIterator) Release() {
	if li.released {
		return
	}

	li.released = true
	li.iter.Release()
}
