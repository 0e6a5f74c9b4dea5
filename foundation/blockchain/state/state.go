// Package state is the core API for the blockchain node. It owns the chain
// database and its storage and applies the node's mining policy.
package state

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/memory"
)

// Set of storage types the node supports.
const (
	StorageMemory  = "memory"
	StorageDisk    = "disk"
	StorageLevelDB = "leveldb"
)

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Difficulty    uint
	MiningTimeout time.Duration
	StorageType   string
	DBPath        string
	EvHandler     database.EventHandler
}

// State manages the blockchain database.
type State struct {
	miningTimeout time.Duration
	evHandler     database.EventHandler

	// Cancelled on shutdown to stop any mining operation in flight.
	shut       context.Context
	cancelShut context.CancelFunc
	shutOnce   sync.Once
	shutErr    error

	db *database.Database
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Access the storage for the blockchain.
	strg, err := openStorage(cfg.StorageType, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// Load all existing blocks from storage, validating each one.
	db, err := database.New(database.Config{
		Difficulty: cfg.Difficulty,
		Storage:    strg,
		EvHandler:  ev,
	})
	if err != nil {
		strg.Close()
		return nil, err
	}

	shut, cancel := context.WithCancel(context.Background())

	state := State{
		miningTimeout: cfg.MiningTimeout,
		evHandler:     ev,
		shut:          shut,
		cancelShut:    cancel,
		db:            db,
	}

	return &state, nil
}

// Shutdown cleanly brings the node down. Mining in flight is cancelled and
// no new mining is started. Calls after the first return the same result.
func (s *State) Shutdown() error {
	s.shutOnce.Do(func() {
		s.evHandler("state: shutdown: started")
		defer s.evHandler("state: shutdown: completed")

		// Stop any mining operation and make sure the storage is properly closed.
		s.cancelShut()
		s.shutErr = s.db.Close()
	})

	return s.shutErr
}

// openStorage constructs the storage implementation for the specified type.
func openStorage(storageType string, dbPath string) (database.Storage, error) {
	switch strings.ToLower(storageType) {
	case StorageMemory, "":
		return memory.New(), nil

	case StorageDisk:
		return disk.New(dbPath)

	case StorageLevelDB:
		return leveldb.New(dbPath)
	}

	return nil, fmt.Errorf("unknown storage type %q", storageType)
}
