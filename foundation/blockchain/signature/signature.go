// Package signature provides helper functions for producing the digests
// blocks commit to.
package signature

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// HashLength is the number of hex digits in a digest produced by Hash.
const HashLength = 2 * sha256.Size

// GenesisPrevHash is the previous hash recorded by the genesis block since
// it has no real predecessor.
const GenesisPrevHash = "0"

// =============================================================================

// Hash returns the sha256 digest of the data as lowercase hex digits
// without a 0x prefix.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return common.Bytes2Hex(hash[:])
}

// IsHex reports whether the string is a complete digest produced by Hash.
func IsHex(hash string) bool {
	if len(hash) != HashLength {
		return false
	}

	for i := 0; i < len(hash); i++ {
		c := hash[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}
