package state

import "github.com/ardanlabs/powchain/foundation/blockchain/database"

// RetrieveDifficulty returns the difficulty blocks are mined with.
func (s *State) RetrieveDifficulty() uint {
	return s.db.Difficulty()
}

// RetrieveGenesis returns a copy of the genesis block.
func (s *State) RetrieveGenesis() database.Block {
	return s.db.Genesis()
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// RetrieveBlocks returns a copy of the full chain.
func (s *State) RetrieveBlocks() []database.Block {
	return s.db.Blocks()
}

// RetrieveBlock returns the block at the specified index.
func (s *State) RetrieveBlock(index uint64) (database.Block, error) {
	return s.db.GetBlock(index)
}

// Validate checks the chain. The valid value follows the base hash and link
// checks, the error reports the first block failing the strict checks.
func (s *State) Validate() (bool, error) {
	valid := s.db.Validate()
	if !valid {
		s.evHandler("state: Validate: chain is NOT valid")
	}

	return valid, s.db.ValidateStrict()
}
