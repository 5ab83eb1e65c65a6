// Package storage defines the contract for persisting ledger snapshots and
// the errors shared by the storage implementations.
package storage

import (
	"errors"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// ErrNotFound is returned by Read when nothing has been persisted yet.
var ErrNotFound = errors.New("snapshot not found")

// Storage is the behavior required to persist the full ledger state. The
// ledger writes a complete snapshot after every committed block and on
// shutdown, and reads it back on startup.
type Storage interface {
	Write(snapshot database.Snapshot) error
	Read() (database.Snapshot, error)
	Reset() error
	Close() error
}
