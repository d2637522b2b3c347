// Package profile guarantees every principal has exactly one anchor profile
// record, provisioning it lazily on first access.
package profile

import (
	"context"
	"fmt"
	"log/slog"

	"member-vault/internal/identity"
	"member-vault/internal/platform/metrics"
	"member-vault/internal/record"
	"member-vault/pkg/domain"
	"member-vault/pkg/email"
	"member-vault/pkg/platform/audit"
)

// Kind is the record kind of the ownership anchor.
const Kind = "profile"

// OwnerField is the field on a profile referencing its principal.
const OwnerField = "user"

// Cache is an optional principal-to-profile-id cache. Implementations are
// best-effort: a miss or failure always falls through to the store.
type Cache interface {
	GetProfileID(ctx context.Context, userID domain.UserID) (domain.ProfileID, bool)
	SetProfileID(ctx context.Context, userID domain.UserID, profileID domain.ProfileID)
}

// Provisioner ensures the profile anchor exists for a principal.
type Provisioner struct {
	store    record.Store
	cache    Cache
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewProvisioner(store record.Store, cache Cache, recorder *audit.Recorder, m *metrics.Metrics, logger *slog.Logger) *Provisioner {
	return &Provisioner{store: store, cache: cache, recorder: recorder, metrics: m, logger: logger}
}

// Ensure returns the principal's profile, creating it on first access.
//
// Two concurrent first accesses for the same principal can both observe
// "absent" and both create a profile; the backing store exposes no unique
// constraint at this layer, so the race is accepted rather than papered
// over with a lock the store cannot honor.
func (p *Provisioner) Ensure(ctx context.Context, principal *identity.Principal) (*record.Record, error) {
	existing, err := p.store.FindAll(ctx, Kind, record.Options{
		Filters: map[string]any{OwnerField: principal.ID.Int64()},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("find profile for principal %s: %w", principal.ID, err)
	}
	if len(existing) > 0 {
		p.cacheSet(ctx, principal.ID, domain.ProfileID(existing[0].ID))
		return existing[0], nil
	}

	created, err := p.store.Create(ctx, Kind, map[string]any{
		OwnerField:    principal.ID.Int64(),
		"displayName": email.DeriveDisplayName(principal.Email),
	}, record.StatusPublished)
	if err != nil {
		return nil, fmt.Errorf("provision profile for principal %s: %w", principal.ID, err)
	}

	p.logger.InfoContext(ctx, "provisioned profile",
		"principal_id", principal.ID,
		"profile_id", created.ID,
	)
	p.metrics.IncProfilesProvisioned()
	p.recorder.Record(audit.Event{
		Action:   audit.ActionProfileProvisioned,
		UserID:   principal.ID,
		Kind:     Kind,
		RecordID: created.ID,
	})
	p.cacheSet(ctx, principal.ID, domain.ProfileID(created.ID))
	return created, nil
}

// EnsureID is Ensure for callers that only need the anchor's identifier.
// It consults the cache first and skips the store entirely on a hit.
func (p *Provisioner) EnsureID(ctx context.Context, principal *identity.Principal) (domain.ProfileID, error) {
	if p.cache != nil {
		if id, ok := p.cache.GetProfileID(ctx, principal.ID); ok {
			return id, nil
		}
	}
	rec, err := p.Ensure(ctx, principal)
	if err != nil {
		return 0, err
	}
	return domain.ProfileID(rec.ID), nil
}

func (p *Provisioner) cacheSet(ctx context.Context, userID domain.UserID, profileID domain.ProfileID) {
	if p.cache == nil {
		return
	}
	p.cache.SetProfileID(ctx, userID, profileID)
}
