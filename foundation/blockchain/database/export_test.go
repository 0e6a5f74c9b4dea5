package database

// SetBlock replaces a committed block. Tests use this to tamper with a chain
// the way an attacker editing stored blocks would.
func (db *Database) SetBlock(index int, block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks[index] = block
}
