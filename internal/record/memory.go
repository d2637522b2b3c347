package record

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"member-vault/pkg/fieldpath"
	"member-vault/pkg/platform/sentinel"
	pstrings "member-vault/pkg/platform/strings"
)

// Memory is the in-memory Store. It favors clarity over performance and
// backs the unit tests as well as the dev mode of the server.
type Memory struct {
	mu     sync.RWMutex
	schema *Schema
	kinds  map[string]map[int64]*entry
	nextID int64
}

type entry struct {
	id          int64
	documentID  uuid.UUID
	fields      map[string]any
	createdAt   time.Time
	updatedAt   time.Time
	publishedAt *time.Time
}

func NewMemory(schema *Schema) *Memory {
	return &Memory{
		schema: schema,
		kinds:  make(map[string]map[int64]*entry),
	}
}

func (m *Memory) FindOne(_ context.Context, kind string, ref Ref, opts Options) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e := m.lookup(kind, ref)
	if e == nil {
		return nil, sentinel.ErrNotFound
	}
	return m.materialize(kind, e, pstrings.DedupeAndTrim(opts.Populate)), nil
}

func (m *Memory) FindMany(_ context.Context, kind string, opts Options) (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.collect(kind, opts.Filters)
	total := len(matched)

	start, limit := opts.Start, opts.Limit
	if start > total {
		start = total
	}
	end := total
	if limit > 0 && start+limit < total {
		end = start + limit
	}

	results := make([]*Record, 0, end-start)
	populate := pstrings.DedupeAndTrim(opts.Populate)
	for _, e := range matched[start:end] {
		results = append(results, m.materialize(kind, e, populate))
	}

	page := 1
	pageSize := total
	if limit > 0 {
		page = start/limit + 1
		pageSize = limit
	}
	return Page{
		Results:    results,
		Pagination: Pagination{Page: page, PageSize: pageSize, Total: total},
	}, nil
}

func (m *Memory) FindAll(ctx context.Context, kind string, opts Options) ([]*Record, error) {
	page, err := m.FindMany(ctx, kind, opts)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (m *Memory) Create(_ context.Context, kind string, fields map[string]any, status Status) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	m.nextID++
	e := &entry{
		id:         m.nextID,
		documentID: uuid.New(),
		fields:     m.normalize(kind, fields),
		createdAt:  now,
		updatedAt:  now,
	}
	if status == StatusPublished {
		published := now
		e.publishedAt = &published
	}

	if m.kinds[kind] == nil {
		m.kinds[kind] = make(map[int64]*entry)
	}
	m.kinds[kind][e.id] = e
	return m.materialize(kind, e, nil), nil
}

func (m *Memory) Update(_ context.Context, kind string, ref Ref, fields map[string]any) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(kind, ref)
	if e == nil {
		return nil, sentinel.ErrNotFound
	}
	for k, v := range m.normalize(kind, fields) {
		if v == nil {
			delete(e.fields, k)
			continue
		}
		e.fields[k] = v
	}
	e.updatedAt = time.Now().UTC()
	return m.materialize(kind, e, nil), nil
}

func (m *Memory) Delete(_ context.Context, kind string, ref Ref) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(kind, ref)
	if e == nil {
		return nil, sentinel.ErrNotFound
	}
	delete(m.kinds[kind], e.id)
	return m.materialize(kind, e, nil), nil
}

// lookup resolves a ref under a held lock. Numeric id and document
// reference address the same record interchangeably.
func (m *Memory) lookup(kind string, ref Ref) *entry {
	byID := m.kinds[kind]
	if ref.ID != 0 {
		return byID[ref.ID]
	}
	if ref.DocumentID != uuid.Nil {
		for _, e := range byID {
			if e.documentID == ref.DocumentID {
				return e
			}
		}
	}
	return nil
}

func (m *Memory) collect(kind string, filters map[string]any) []*entry {
	var matched []*entry
	for _, e := range m.kinds[kind] {
		if m.matches(kind, e, filters) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })
	return matched
}

func (m *Memory) matches(kind string, e *entry, filters map[string]any) bool {
	for key, want := range filters {
		head, rest := splitPath(key)
		if rest == "" {
			if head == "id" {
				wantID, ok := fieldpath.ID(want)
				if !ok || wantID != e.id {
					return false
				}
				continue
			}
			if !looseEqual(e.fields[head], want) {
				return false
			}
			continue
		}

		// One-hop relation filter: follow the relation id and compare the
		// field on the related record.
		target, ok := m.schema.Target(kind, head)
		if !ok {
			return false
		}
		relID, ok := fieldpath.ID(e.fields[head])
		if !ok {
			return false
		}
		rel := m.kinds[target][relID]
		if rel == nil {
			return false
		}
		if rest == "id" {
			wantID, ok := fieldpath.ID(want)
			if !ok || wantID != rel.id {
				return false
			}
			continue
		}
		if !looseEqual(rel.fields[rest], want) {
			return false
		}
	}
	return true
}

// materialize builds a Record snapshot under a held lock, resolving the
// requested populate paths against the schema. Unknown paths and dangling
// relations are left as bare ids rather than failing the read.
func (m *Memory) materialize(kind string, e *entry, populate []string) *Record {
	fields := cloneTree(e.fields)

	grouped := make(map[string][]string)
	for _, path := range populate {
		head, rest := splitPath(path)
		if rest == "" {
			if _, seen := grouped[head]; !seen {
				grouped[head] = nil
			}
			continue
		}
		grouped[head] = append(grouped[head], rest)
	}

	for head, rests := range grouped {
		target, ok := m.schema.Target(kind, head)
		if !ok {
			continue
		}
		relID, ok := fieldpath.ID(fields[head])
		if !ok {
			continue
		}
		rel := m.kinds[target][relID]
		if rel == nil {
			continue
		}
		fields[head] = m.materialize(target, rel, rests).Map()
	}

	return &Record{
		ID:          e.id,
		DocumentID:  e.documentID,
		Kind:        kind,
		Fields:      fields,
		CreatedAt:   e.createdAt,
		UpdatedAt:   e.updatedAt,
		PublishedAt: e.publishedAt,
	}
}

// normalize clones incoming fields and collapses relation values to bare
// ids, whatever shape the caller supplied them in.
func (m *Memory) normalize(kind string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, isRelation := m.schema.Target(kind, k); isRelation {
			if id, ok := fieldpath.ID(v); ok {
				out[k] = id
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneTree(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneTree(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// looseEqual compares a stored field value with a filter value across the
// encodings a value can arrive in (int64 from stores, float64 from JSON,
// Fold for case-insensitive strings).
func looseEqual(stored, want any) bool {
	if f, ok := want.(Fold); ok {
		s, ok := stored.(string)
		return ok && strings.EqualFold(s, string(f))
	}
	if sID, ok := fieldpath.ID(stored); ok {
		if wID, ok := fieldpath.ID(want); ok {
			return sID == wID
		}
	}
	if !scalar(stored) || !scalar(want) {
		return false
	}
	return stored == want
}

// scalar rejects trees; filters only match scalar values.
func scalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}
