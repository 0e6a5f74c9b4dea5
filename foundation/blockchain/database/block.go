package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
)

// Set of error variables for building and hashing blocks.
var (
	ErrSerialization      = errors.New("block data is not serializable")
	ErrIndexOutOfSequence = errors.New("block index is out of sequence")
	ErrInvalidTimestamp   = errors.New("block timestamp is invalid")
)

// Fixed values for the genesis block.
const (
	GenesisTimestamp = "06/04/2024"
	GenesisData      = "Genesis Block"
)

// =============================================================================

// Block represents a single record in the chain. Blocks are values, the
// mining operation hands back a new block and never mutates the one it
// was given.
type Block struct {
	Index        uint64 `json:"index"`        // Position in the chain, the chain length before appending.
	Timestamp    string `json:"timestamp"`    // Creation time supplied by the caller, never recomputed.
	Data         any    `json:"data"`         // Application payload, committed blocks hold it as json.RawMessage.
	PreviousHash string `json:"previousHash"` // Hash of the block before this one.
	Hash         string `json:"hash"`         // Hash of the fields above plus the nonce.
	Nonce        uint64 `json:"nonce"`        // Value identified to solve the hash solution.
}

// Genesis constructs the fixed first block of every chain.
func Genesis() Block {
	b := Block{
		Index:        0,
		Timestamp:    GenesisTimestamp,
		Data:         GenesisData,
		PreviousHash: signature.GenesisPrevHash,
	}

	// The genesis data is a constant string so this can't fail.
	b.Hash, _ = HashBlock(b)

	return b
}

// HashBlock computes the hash for the block from its current field values.
// The stored Hash field is not part of the computation.
func HashBlock(b Block) (string, error) {
	header, err := b.header()
	if err != nil {
		return "", err
	}

	return signature.Hash(appendNonce(header, b.Nonce)), nil
}

// IsHashValid reports if the stored hash matches the block's fields.
func (b Block) IsHashValid() bool {
	hash, err := HashBlock(b)
	if err != nil {
		return false
	}

	return hash == b.Hash
}

// clone returns a copy of the block that shares no memory with it. Data
// held as raw JSON is copied, any other value is left as is.
func (b Block) clone() Block {
	if raw, ok := b.Data.(json.RawMessage); ok {
		b.Data = append(json.RawMessage(nil), raw...)
	}

	return b
}

// header returns the bytes that are hashed ahead of the nonce. The fields
// are concatenated in a fixed order: index, previous hash, timestamp, data.
func (b Block) header() ([]byte, error) {
	data, err := json.Marshal(b.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	header := make([]byte, 0, 20+len(b.PreviousHash)+len(b.Timestamp)+len(data)+20)
	header = strconv.AppendUint(header, b.Index, 10)
	header = append(header, b.PreviousHash...)
	header = append(header, b.Timestamp...)
	header = append(header, data...)

	return header, nil
}

// appendNonce returns a new slice holding the header followed by the nonce.
// The header is never modified so it can be reused between attempts.
func appendNonce(header []byte, nonce uint64) []byte {
	buf := make([]byte, len(header), len(header)+20)
	copy(buf, header)
	return strconv.AppendUint(buf, nonce, 10)
}

// =============================================================================

// BlockData represents what is written to storage. The data is kept as the
// raw JSON that was hashed so reading a block back produces the same hash.
type BlockData struct {
	Index        uint64          `json:"index"`
	Timestamp    string          `json:"timestamp"`
	Data         json.RawMessage `json:"data"`
	PreviousHash string          `json:"previousHash"`
	Hash         string          `json:"hash"`
	Nonce        uint64          `json:"nonce"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) (BlockData, error) {
	data, err := json.Marshal(block.Data)
	if err != nil {
		return BlockData{}, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	bd := BlockData{
		Index:        block.Index,
		Timestamp:    block.Timestamp,
		Data:         data,
		PreviousHash: block.PreviousHash,
		Hash:         block.Hash,
		Nonce:        block.Nonce,
	}

	return bd, nil
}

// ToBlock converts a BlockData into a Block.
func ToBlock(blockData BlockData) Block {
	return Block{
		Index:        blockData.Index,
		Timestamp:    blockData.Timestamp,
		Data:         blockData.Data,
		PreviousHash: blockData.PreviousHash,
		Hash:         blockData.Hash,
		Nonce:        blockData.Nonce,
	}
}
