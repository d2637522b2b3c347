// Package secured implements the ownership-scoped controller shared by all
// owned entity kinds. One generic service, parameterized by a Config value
// per kind, replaces per-entity controllers: the config carries the target
// kind, the owner relation, the cardinality, and whether deletion is
// offered.
package secured

import (
	"context"

	"member-vault/internal/profile"
	"member-vault/internal/record"
)

// Config is the tagged configuration value a Service is built from.
type Config struct {
	// TargetKind is the owned record kind the service fronts.
	TargetKind string

	// OwnerField is the relation field on the target pointing at its
	// owning profile. Defaults to "profile".
	OwnerField string

	// OwnerHasMany marks the kind as an owned collection (many records per
	// profile). Collection kinds do not offer singular email-indirected
	// fetch, and their updates take arrays.
	OwnerHasMany bool

	// ProfileRelation is the relation name from profile back to the target
	// kind. It shapes the record schema so profile-side populate works.
	ProfileRelation string

	// AllowDelete offers per-record and bulk deletion. Only collection
	// kinds enable it.
	AllowDelete bool
}

func (c Config) normalized() Config {
	if c.OwnerField == "" {
		c.OwnerField = "profile"
	}
	return c
}

// Validator is the boundary to the external validation/sanitization
// pipeline. A nil validator accepts everything.
type Validator interface {
	ValidateInput(ctx context.Context, kind string, data map[string]any) error
}

// BuildSchema derives the record relation schema from the registered
// configs: each target's owner field points at profile, profile points back
// via ProfileRelation, and profile's owner field points at the principal
// kind.
func BuildSchema(userKind string, configs ...Config) *record.Schema {
	schema := record.NewSchema()
	schema.Relate(profile.Kind, profile.OwnerField, userKind)
	for _, cfg := range configs {
		cfg = cfg.normalized()
		schema.Relate(cfg.TargetKind, cfg.OwnerField, profile.Kind)
		if cfg.ProfileRelation != "" && !cfg.OwnerHasMany {
			schema.Relate(profile.Kind, cfg.ProfileRelation, cfg.TargetKind)
		}
	}
	return schema
}
