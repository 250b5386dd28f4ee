// Package storage persists the ledger as a single document.
//
// Every backend replaces the whole document on Save. There is no locking
// between processes: two writers race and the last Save wins.
package storage

import (
	"context"

	"pagos/internal/core"
)

// Store is the persistence port used by the ledger service.
type Store interface {
	// Load returns the stored ledger, or an error wrapping core.ErrNotFound
	// when nothing has been saved yet.
	Load(ctx context.Context) (*core.Ledger, error)
	// Save replaces the stored document with l.
	Save(ctx context.Context, l *core.Ledger) error
}

// RawStore is implemented by backends that can hand out the encoded
// document, used by backup export.
type RawStore interface {
	Store
	LoadRaw(ctx context.Context) ([]byte, error)
}
