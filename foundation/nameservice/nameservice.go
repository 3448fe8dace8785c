// Package nameservice reads the signer key folder and creates a display
// name lookup for signer and administrator addresses.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	addresses map[common.Address]string
}

// New constructs a name service with the keys found in the specified folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		addresses: make(map[common.Address]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		addr := crypto.PubkeyToAddress(privateKey.PublicKey)
		ns.addresses[addr] = strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address.
func (ns *NameService) Lookup(addr common.Address) string {
	name, exists := ns.addresses[addr]
	if !exists {
		return addr.String()
	}
	return name
}

// Copy returns a copy of the map of names and addresses.
func (ns *NameService) Copy() map[common.Address]string {
	cpy := make(map[common.Address]string, len(ns.addresses))
	for addr, name := range ns.addresses {
		cpy[addr] = name
	}
	return cpy
}
