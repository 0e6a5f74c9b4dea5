package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// MineNewBlock mines a block holding the data onto the end of the chain. The
// block is timestamped with the current time. Mining stops when the context
// is cancelled, the mining timeout passes or the node shuts down. Once the
// node is shut down no mining is started.
func (s *State) MineNewBlock(ctx context.Context, data any) (database.Block, error) {
	if err := s.shut.Err(); err != nil {
		return database.Block{}, fmt.Errorf("node is shut down: %w", err)
	}

	s.evHandler("state: MineNewBlock: MINING: started")
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	if s.miningTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.miningTimeout)
		defer cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(s.shut, cancel)
	defer stop()

	timestamp := time.Now().UTC().Format(time.RFC3339)

	block, err := s.db.AppendNext(ctx, timestamp, data)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: blk[%d]: hash[%s]: nonce[%d]", block.Index, block.Hash, block.Nonce)

	return block, nil
}
