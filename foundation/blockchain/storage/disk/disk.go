// Package disk implements the ability to read and write the ledger snapshot
// to a single JSON file on disk.
package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Disk represents the serialization implementation for reading and storing
// the snapshot on disk. Writes go to a temporary file which is renamed over
// the snapshot so a crash never leaves a half written file behind. This
// implements the storage.Storage interface.
type Disk struct {
	mu   sync.Mutex
	path string
}

// New constructs a Disk value for use. The directory holding the snapshot
// is created when it does not exist.
func New(path string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}

	return &Disk{path: path}, nil
}

// Close in this implementation has nothing to do since no file is
// held open between calls.
func (d *Disk) Close() error {
	return nil
}

// Write encodes the snapshot and atomically replaces the file on disk.
func (d *Disk) Write(snapshot database.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, d.path)
}

// Read loads the snapshot from disk.
func (d *Disk) Read() (database.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.Snapshot{}, storage.ErrNotFound
		}
		return database.Snapshot{}, err
	}

	var snapshot database.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return database.Snapshot{}, fmt.Errorf("decoding snapshot %s: %w", d.path, err)
	}

	return snapshot, nil
}

// Reset will remove the snapshot from disk.
func (d *Disk) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}
