// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the wallet addresses.
package nameservice

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	addresses map[string]string
}

// New constructs a name service with addresses from the key files in the
// root folder. A missing folder produces an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		addresses: make(map[string]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		w, err := signature.Load(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		ns.addresses[w.Address()] = strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ns, nil
		}
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address.
func (ns *NameService) Lookup(address string) string {
	name, exists := ns.addresses[address]
	if !exists {
		return address
	}
	return name
}

// Copy returns a copy of the map of addresses and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.addresses))
	for address, name := range ns.addresses {
		cpy[address] = name
	}
	return cpy
}
