// Package memory implements the ability to read and write ledger snapshots
// to memory.
package memory

import (
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Memory represents the serialization implementation for reading and storing
// snapshots in memory. The snapshot is kept in its encoded form so callers
// never share maps or slices with the stored copy. This implements the
// storage.Storage interface.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

// New constructs an Memory value for use.
func New() (*Memory, error) {
	return &Memory{}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write replaces the stored snapshot.
func (m *Memory) Write(snapshot database.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = data

	return nil
}

// Read returns a copy of the stored snapshot.
func (m *Memory) Read() (database.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return database.Snapshot{}, storage.ErrNotFound
	}

	var snapshot database.Snapshot
	if err := json.Unmarshal(m.data, &snapshot); err != nil {
		return database.Snapshot{}, err
	}

	return snapshot, nil
}

// Reset will clear out the stored snapshot.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	return nil
}
