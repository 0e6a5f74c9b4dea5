package database

import "errors"

// ErrBlockNotFound is returned when a block is requested that doesn't exist.
var ErrBlockNotFound = errors.New("block does not exist")

// ErrEndOfChain is returned by an iterator once every block has been read.
var ErrEndOfChain = errors.New("end of chain")

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain. The
// genesis block is never written, storage holds blocks from index 1 on.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(index uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// Releaser is implemented by iterators holding resources that must be freed
// when iteration stops before the end of the chain.
type Releaser interface {
	Release()
}
