package record

import (
	"context"
	"errors"
)

// ErrInvalidFilter is returned (wrapped) when Options.Filters carries a
// field path the store cannot evaluate: an unknown relation, or a field
// name outside the [A-Za-z0-9_] identifier alphabet. Services translate it
// into a bad-request failure rather than an infrastructure fault.
var ErrInvalidFilter = errors.New("invalid filter")

// Store is the contract the ownership layer consumes. Implementations must
// return sentinel.ErrNotFound (possibly wrapped) when a ref resolves to
// nothing; every other failure propagates as an infrastructure fault.
//
// Stores are interface-driven so the controller logic stays testable against
// the in-memory implementation and deployable against postgres without
// rewiring.
type Store interface {
	// FindOne fetches a single record by ref, resolving the requested
	// populate paths.
	FindOne(ctx context.Context, kind string, ref Ref, opts Options) (*Record, error)

	// FindMany lists records matching opts.Filters with pagination metadata.
	FindMany(ctx context.Context, kind string, opts Options) (Page, error)

	// FindAll is the single-collection variant of FindMany: results only,
	// no pagination envelope.
	FindAll(ctx context.Context, kind string, opts Options) ([]*Record, error)

	// Create inserts a new record with the given fields and status.
	Create(ctx context.Context, kind string, fields map[string]any, status Status) (*Record, error)

	// Update merges fields into an existing record, preserving fields the
	// payload does not mention.
	Update(ctx context.Context, kind string, ref Ref, fields map[string]any) (*Record, error)

	// Delete removes a record and returns its last state.
	Delete(ctx context.Context, kind string, ref Ref) (*Record, error)
}

// Transactor is implemented by stores that can scope a function to a native
// transaction. Callers treat it as optional: the bulk-delete commit phase
// uses it when available and falls back to plain sequential deletes when
// not (the verify-then-commit ordering is the only guarantee in that case).
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
