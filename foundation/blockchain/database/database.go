// Package database handles the chain of blocks: mining new blocks onto the
// end of the chain, validating the chain and loading/writing blocks through
// an optional storage implementation.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
)

// ErrChainInvalid is returned by ValidateStrict for the first block that
// breaks the chain rules.
var ErrChainInvalid = errors.New("chain is invalid")

// Config represents the configuration required to construct a database.
type Config struct {
	Difficulty uint         // Number of leading 0's a mined hash must have.
	Storage    Storage      // Optional, blocks are only kept in memory when nil.
	EvHandler  EventHandler // Optional, receives processing events.
}

// Database manages the chain of blocks. Appends are serialized so only one
// mining operation runs against the latest block at any given time.
type Database struct {
	difficulty uint
	storage    Storage
	evHandler  EventHandler

	writeMu sync.Mutex // Held for the full duration of an append.

	mu     sync.RWMutex // Guards blocks.
	blocks []Block
}

// New constructs a chain holding the genesis block. If the storage has
// blocks, each one is validated against the chain rules before it is added.
func New(cfg Config) (*Database, error) {
	if cfg.Difficulty > signature.HashLength {
		return nil, fmt.Errorf("%w: difficulty[%d]", ErrInvalidDifficulty, cfg.Difficulty)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	db := Database{
		difficulty: cfg.Difficulty,
		storage:    cfg.Storage,
		evHandler:  ev,
		blocks:     []Block{Genesis()},
	}

	if db.storage == nil {
		return &db, nil
	}

	// Read all the blocks from storage, every block must extend the chain.
	iter := db.storage.ForEach()
	if r, ok := iter.(Releaser); ok {
		defer r.Release()
	}

	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, fmt.Errorf("reading block: %w", err)
		}

		block := ToBlock(blockData)

		ev("database: New: validate: blk[%d]", block.Index)

		if err := validateBlock(block, db.blocks[len(db.blocks)-1], db.difficulty); err != nil {
			return nil, fmt.Errorf("%w: blk[%d]: %w", ErrChainInvalid, block.Index, err)
		}

		db.blocks = append(db.blocks, block)
	}

	ev("database: New: loaded: blocks[%d]", len(db.blocks))

	return &db, nil
}

// Close releases the storage.
func (db *Database) Close() error {
	if db.storage == nil {
		return nil
	}

	return db.storage.Close()
}

// Difficulty returns the number of leading 0's a mined block must have.
func (db *Database) Difficulty() uint {
	return db.difficulty
}

// =============================================================================

// Append mines a block with the specified index, timestamp and data and adds
// it to the end of the chain. The index must be the current length of the
// chain. On any failure the chain is left unmodified.
func (db *Database) Append(ctx context.Context, index uint64, timestamp string, data any) (Block, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	return db.append(ctx, index, timestamp, data)
}

// AppendNext mines a block for the next index in the chain. Use this when
// concurrent callers can't agree on the index ahead of time.
func (db *Database) AppendNext(ctx context.Context, timestamp string, data any) (Block, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	return db.append(ctx, uint64(db.Length()), timestamp, data)
}

// append performs the work for Append. The writeMu must be held.
func (db *Database) append(ctx context.Context, index uint64, timestamp string, data any) (Block, error) {
	db.evHandler("database: Append: started: blk[%d]", index)
	defer db.evHandler("database: Append: completed: blk[%d]", index)

	latest := db.LatestBlock()

	// Reject contract violations before any work is performed.
	if next := latest.Index + 1; index != next {
		return Block{}, fmt.Errorf("%w: got %d, exp %d", ErrIndexOutOfSequence, index, next)
	}
	if timestamp == "" {
		return Block{}, fmt.Errorf("%w: timestamp is empty", ErrInvalidTimestamp)
	}

	// The block commits to the serialized form of the data so nothing the
	// caller does with its value afterwards can change a committed block.
	raw, err := json.Marshal(data)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	candidate := Block{
		Index:        index,
		Timestamp:    timestamp,
		Data:         json.RawMessage(raw),
		PreviousHash: latest.Hash,
	}

	block, err := POW(ctx, candidate, db.difficulty, db.evHandler)
	if err != nil {
		return Block{}, err
	}

	// Write the block to storage before it becomes part of the chain so
	// a storage failure doesn't leave the two out of sync.
	if db.storage != nil {
		db.evHandler("database: Append: write to storage: blk[%d]", index)

		blockData, err := NewBlockData(block)
		if err != nil {
			return Block{}, err
		}

		if err := db.storage.Write(blockData); err != nil {
			return Block{}, fmt.Errorf("writing block: %w", err)
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = append(db.blocks, block)

	return block.clone(), nil
}

// =============================================================================

// Validate walks the chain from the first block after genesis and checks that
// every block's hash matches its fields and that it links to the block before
// it. Returns false on the first mismatch. A chain with only the genesis
// block is valid.
func (db *Database) Validate() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for i := 1; i < len(db.blocks); i++ {
		current := db.blocks[i]
		previous := db.blocks[i-1]

		if !current.IsHashValid() {
			db.evHandler("database: Validate: blk[%d]: hash does not match block", current.Index)
			return false
		}

		if current.PreviousHash != previous.Hash {
			db.evHandler("database: Validate: blk[%d]: previous hash does not match parent", current.Index)
			return false
		}
	}

	return true
}

// ValidateStrict performs the checks of Validate and also checks the genesis
// block, the index sequence and that every block solved the POW puzzle for
// the chain's difficulty. The first failure is returned.
func (db *Database) ValidateStrict() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	genesis := Genesis()
	first := db.blocks[0]
	if first.Index != 0 || first.PreviousHash != genesis.PreviousHash || first.Hash != genesis.Hash || !first.IsHashValid() {
		return fmt.Errorf("%w: blk[0]: genesis block does not match, got %s, exp %s", ErrChainInvalid, first.Hash, genesis.Hash)
	}

	for i := 1; i < len(db.blocks); i++ {
		if err := validateBlock(db.blocks[i], db.blocks[i-1], db.difficulty); err != nil {
			return fmt.Errorf("%w: blk[%d]: %w", ErrChainInvalid, i, err)
		}
	}

	return nil
}

// validateBlock checks a block against the block it is expected to follow.
func validateBlock(block Block, previous Block, difficulty uint) error {
	if next := previous.Index + 1; block.Index != next {
		return fmt.Errorf("%w: got %d, exp %d", ErrIndexOutOfSequence, block.Index, next)
	}

	if block.PreviousHash != previous.Hash {
		return fmt.Errorf("previous hash doesn't match parent, got %s, exp %s", block.PreviousHash, previous.Hash)
	}

	hash, err := HashBlock(block)
	if err != nil {
		return err
	}

	if hash != block.Hash {
		return fmt.Errorf("hash doesn't match block, got %s, exp %s", block.Hash, hash)
	}

	if !IsHashSolved(difficulty, hash) {
		return fmt.Errorf("hash %s doesn't solve difficulty %d", hash, difficulty)
	}

	return nil
}

// =============================================================================

// Genesis returns the genesis block.
func (db *Database) Genesis() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[0].clone()
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1].clone()
}

// Length returns the number of blocks in the chain including genesis.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// Blocks returns a copy of the chain.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	for i, block := range db.blocks {
		blocks[i] = block.clone()
	}

	return blocks
}

// GetBlock returns the block at the specified index.
func (db *Database) GetBlock(index uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if index >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("%w: blk[%d]", ErrBlockNotFound, index)
	}

	return db.blocks[index].clone(), nil
}
