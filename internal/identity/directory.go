// Package identity reads principals from the external identity provider's
// user records. Principals are read-only here; the service never creates,
// mutates, or deletes them.
package identity

import (
	"context"
	"errors"
	"fmt"

	"member-vault/internal/record"
	"member-vault/pkg/domain"
	"member-vault/pkg/email"
	"member-vault/pkg/platform/sentinel"
)

// KindUser is the record kind the identity provider stores principals under.
const KindUser = "user"

// Principal is the read-only view of an authenticated identity.
type Principal struct {
	ID    domain.UserID
	Email string
}

// Directory resolves principals by id or by case-insensitive email.
type Directory interface {
	ByID(ctx context.Context, id domain.UserID) (*Principal, error)
	ByEmail(ctx context.Context, address string) (*Principal, error)
}

// StoreDirectory is the record-store-backed Directory.
type StoreDirectory struct {
	store record.Store
}

func NewStoreDirectory(store record.Store) *StoreDirectory {
	return &StoreDirectory{store: store}
}

func (d *StoreDirectory) ByID(ctx context.Context, id domain.UserID) (*Principal, error) {
	rec, err := d.store.FindOne(ctx, KindUser, record.ByID(id.Int64()), record.Options{})
	if err != nil {
		return nil, err
	}
	return toPrincipal(rec), nil
}

// ByEmail looks a principal up by address, case-insensitively. Returns
// sentinel.ErrNotFound when the address is unregistered.
func (d *StoreDirectory) ByEmail(ctx context.Context, address string) (*Principal, error) {
	normalized := email.Normalize(address)
	if normalized == "" {
		return nil, sentinel.ErrNotFound
	}
	recs, err := d.store.FindAll(ctx, KindUser, record.Options{
		Filters: map[string]any{"email": record.Fold(normalized)},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("lookup principal by email: %w", err)
	}
	if len(recs) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return toPrincipal(recs[0]), nil
}

func toPrincipal(rec *record.Record) *Principal {
	p := &Principal{ID: domain.UserID(rec.ID)}
	if addr, ok := rec.Fields["email"].(string); ok {
		p.Email = addr
	}
	return p
}

// IsNotFound reports whether err means the principal does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
