// Package store defines the record log and identity directory contracts shared
// by the csv and sqlite backends.
package store

import (
	"context"

	"github.com/carbonlog/carbonlog/internal/record"
)

// Log is an append-only record log partitioned by identity.
type Log interface {
	// CreateLog initialises an empty log, truncating any existing one.
	CreateLog(ctx context.Context, identity string) error
	// Append validates raw as a record and appends it as a single row.
	// A failed append leaves earlier rows untouched.
	Append(ctx context.Context, identity string, raw []byte) error
	// ReadAll returns records in append order. Rows whose payload cannot be
	// parsed are skipped. An unknown identity yields an empty slice.
	ReadAll(ctx context.Context, identity string) ([]record.Record, error)
}

// Directory maps identities to their sector.
type Directory interface {
	// Get returns the sector or sentinel.ErrNotFound.
	Get(ctx context.Context, identity string) (string, error)
	// Put registers or replaces an identity.
	Put(ctx context.Context, identity, sector string) error
	Exists(ctx context.Context, identity string) (bool, error)
}
