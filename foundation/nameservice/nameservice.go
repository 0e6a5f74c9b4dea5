// Package nameservice reads a folder of key files and creates a name
// lookup for the accounts they hold. The file name is the account name.
package nameservice

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ardanlabs/powchain/foundation/blockchain/identity"
)

const keyExtension = ".ecdsa"

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[string]string
}

// New constructs a name service with the accounts of every key file found
// under the root folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[string]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != keyExtension {
			return nil
		}

		id, err := identity.Load(fileName)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}

		ns.accounts[id.Account()] = strings.TrimSuffix(filepath.Base(fileName), keyExtension)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account. The account itself is
// returned when no name is known.
func (ns *NameService) Lookup(account string) string {
	name, exists := ns.accounts[account]
	if !exists {
		return account
	}
	return name
}

// Names returns the names sorted with the account each one belongs to.
func (ns *NameService) Names() []Entry {
	entries := make([]Entry, 0, len(ns.accounts))
	for account, name := range ns.accounts {
		entries = append(entries, Entry{Name: name, Account: account})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries
}

// Entry is a named account.
type Entry struct {
	Name    string
	Account string
}
