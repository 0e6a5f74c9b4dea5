package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
)

// ErrInvalidDifficulty is returned when the difficulty asks for more leading
// zeros than a hash has digits.
var ErrInvalidDifficulty = errors.New("difficulty is larger than the hash length")

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// POW performs the work of mining to find the smallest nonce that solves the
// hash puzzle for the block. The search starts at nonce 0 and checks the
// context on every attempt. The solved block is returned as a new value, the
// block passed in is never modified.
func POW(ctx context.Context, block Block, difficulty uint, ev EventHandler) (Block, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	if difficulty > signature.HashLength {
		return Block{}, fmt.Errorf("%w: difficulty[%d]", ErrInvalidDifficulty, difficulty)
	}

	ev("database: POW: MINING: started: blk[%d]", block.Index)
	defer ev("database: POW: MINING: completed: blk[%d]", block.Index)

	// The data is serialized once, only the nonce changes between attempts.
	header, err := block.header()
	if err != nil {
		return Block{}, err
	}

	var attempts uint64
	for nonce := uint64(0); ; nonce++ {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: POW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if err := ctx.Err(); err != nil {
			ev("database: POW: MINING: CANCELLED: attempts[%d]", attempts)
			return Block{}, err
		}

		hash := signature.Hash(appendNonce(header, nonce))
		if !IsHashSolved(difficulty, hash) {
			continue
		}

		solved := block
		solved.Nonce = nonce
		solved.Hash = hash

		ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: nonce[%d]", block.PreviousHash, hash, nonce)

		return solved, nil
	}
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading 0's.
func IsHashSolved(difficulty uint, hash string) bool {
	const match = signature.ZeroHash

	if difficulty > uint(len(match)) || len(hash) < int(difficulty) {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}
