// Package store defines the persistence boundary for the bookkeeping core.
// The core reads and writes opaque JSON documents keyed by kind and id; it
// does not dictate the on-disk format. Backends can be swapped (in-memory,
// SQLite, …) without touching the service layer.
package store

import (
	"context"
	"errors"
)

// Document kinds persisted by the core.
const (
	KindAccount     = "account"
	KindTransaction = "transaction"
	KindPeriod      = "period"
	KindObligation  = "obligation"
	KindTaxReturn   = "taxreturn"
	KindSubmission  = "submission"
	KindToken       = "token"
)

// ErrNotFound is returned by Load when no document exists for a kind/id.
var ErrNotFound = errors.New("store: not found")

// Store is the injectable key-value persistence interface.
type Store interface {
	// Load returns the document for kind/id, or ErrNotFound.
	Load(ctx context.Context, kind, id string) ([]byte, error)

	// Save writes the document for kind/id, overwriting any previous value.
	Save(ctx context.Context, kind, id string, record []byte) error

	// List returns all documents of a kind in insertion order.
	List(ctx context.Context, kind string) ([][]byte, error)

	// Delete removes the document for kind/id. Deleting an absent document
	// is not an error.
	Delete(ctx context.Context, kind, id string) error

	// Close releases any resources held by the store.
	Close() error
}
