package ownership

import (
	"member-vault/pkg/domain"
	"member-vault/pkg/fieldpath"
)

// OwnerPrincipalID derives the owning principal's id from a record tree by
// reading the relation at ownerField. It never performs I/O: callers must
// have populated the owner relation one level deep, plus the owner's own
// "user" reference when the owner is an indirection (profile -> user).
//
// The boolean is false when ownership cannot be determined from the record
// alone — relation absent, unpopulated (bare id, no nested object), or the
// nested owner carries no principal reference.
func OwnerPrincipalID(rec map[string]any, ownerField string) (domain.UserID, bool) {
	owner, ok := fieldpath.Get(rec, ownerField)
	if !ok {
		return 0, false
	}

	ownerObj, ok := owner.(map[string]any)
	if !ok {
		// Bare id: the owner relation was not populated, so the principal
		// behind it is unknown from this record.
		return 0, false
	}

	principal, ok := ownerObj["user"]
	if !ok || principal == nil {
		return 0, false
	}
	id, ok := fieldpath.ID(principal)
	if !ok {
		return 0, false
	}
	return domain.UserID(id), true
}
