// Package record abstracts the generic content store the service sits in
// front of. Records are schemaless field trees addressed by a numeric id or
// an alternate stable document reference; relations between kinds are
// declared in a Schema so stores can resolve populate paths.
package record

import (
	"time"

	"github.com/google/uuid"
)

// Status controls record visibility. Provisioned records are created
// published; draft exists for parity with the backing store's lifecycle.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

// Record is a single stored document. Fields holds the schemaless payload;
// relation fields hold the related record's numeric id, or, after populate,
// the related record itself as a nested map.
type Record struct {
	ID          int64
	DocumentID  uuid.UUID
	Kind        string
	Fields      map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
}

// Map flattens the record into a generic tree including its identifiers,
// the shape ownership resolution and HTTP responses operate on.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	out["documentId"] = r.DocumentID.String()
	return out
}

// Ref addresses a record for update/delete either by numeric id or by its
// document reference. The two are interchangeable.
type Ref struct {
	ID         int64
	DocumentID uuid.UUID
}

// ByID builds a Ref addressing a record by numeric id.
func ByID(id int64) Ref { return Ref{ID: id} }

// ByDocument builds a Ref addressing a record by document reference.
func ByDocument(id uuid.UUID) Ref { return Ref{DocumentID: id} }

// Fold marks a string filter value for case-insensitive matching.
// Principal email lookups rely on this.
type Fold string

// Options shapes a read. Filters keys are either a field name or a one-hop
// relation path "relation.field"; values are compared loosely (numeric ids
// match across int64/float64 encodings). Populate paths embed related
// records up to two levels deep ("profile", "profile.user").
type Options struct {
	Filters  map[string]any
	Populate []string
	Limit    int
	Start    int
}

// Pagination describes a list result window.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// Page is a paginated list result.
type Page struct {
	Results    []*Record
	Pagination Pagination
}
