// Package identity generates and stores the key pairs that identify accounts.
// The chain itself never inspects key material.
package identity

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Identity represents an account's key pair.
type Identity struct {
	privateKey *ecdsa.PrivateKey
}

// Generate constructs a new identity with a random secp256k1 key pair.
func Generate() (Identity, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return Identity{}, fmt.Errorf("generating key: %w", err)
	}

	return Identity{privateKey: privateKey}, nil
}

// FromHex constructs an identity from a hex encoded private key.
func FromHex(privateKeyHex string) (Identity, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return Identity{}, fmt.Errorf("parsing key: %w", err)
	}

	return Identity{privateKey: privateKey}, nil
}

// Load reads the identity from the key file at the specified path.
func Load(path string) (Identity, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return Identity{}, fmt.Errorf("loading key: %w", err)
	}

	return Identity{privateKey: privateKey}, nil
}

// Save writes the private key to the specified path. An existing key file
// is never overwritten.
func (id Identity) Save(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file %q already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	return crypto.SaveECDSA(path, id.privateKey)
}

// Account returns the account address derived from the public key.
func (id Identity) Account() string {
	return crypto.PubkeyToAddress(id.privateKey.PublicKey).Hex()
}

// PublicKeyHex returns the uncompressed public key as 0x prefixed hex.
func (id Identity) PublicKeyHex() string {
	return hexutil.Encode(crypto.FromECDSAPub(&id.privateKey.PublicKey))
}

// PrivateKeyHex returns the private key as 0x prefixed hex.
func (id Identity) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(id.privateKey))
}
