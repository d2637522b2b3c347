package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"member-vault/pkg/fieldpath"
	"member-vault/pkg/platform/sentinel"
	pstrings "member-vault/pkg/platform/strings"
	txcontext "member-vault/pkg/platform/tx"
)

// Postgres stores every kind in a single records table with a JSONB payload.
// Relation fields hold the related record's numeric id inside the payload;
// populate is resolved with follow-up selects and one-hop relation filters
// with a subselect. This mirrors how the backing content store addresses
// records: numeric id and document reference are interchangeable.
type Postgres struct {
	db     *sql.DB
	schema *Schema
}

func NewPostgres(db *sql.DB, schema *Schema) *Postgres {
	return &Postgres{db: db, schema: schema}
}

// EnsureSchema creates the records table when missing. Idempotent; called
// once at startup.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS records (
			id           BIGSERIAL PRIMARY KEY,
			kind         TEXT NOT NULL,
			document_id  UUID NOT NULL UNIQUE,
			data         JSONB NOT NULL DEFAULT '{}'::jsonb,
			published_at TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS records_kind_idx ON records (kind);
	`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure records schema: %w", err)
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (p *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return p.db
}

// WithinTx runs fn with a transaction carried in context; all store calls
// inside fn execute on that transaction. Used by the bulk-delete commit
// phase to turn verify-then-commit into an actual transaction.
func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) FindOne(ctx context.Context, kind string, ref Ref, opts Options) (*Record, error) {
	where, args := refClause(ref, 2)
	if where == "" {
		return nil, sentinel.ErrNotFound
	}
	query := `SELECT id, document_id, data, published_at, created_at, updated_at
		FROM records WHERE kind = $1 AND ` + where
	row := p.q(ctx).QueryRowContext(ctx, query, append([]any{kind}, args...)...)

	rec, err := scanRecord(row, kind)
	if err != nil {
		return nil, err
	}
	if err := p.populate(ctx, kind, []*Record{rec}, pstrings.DedupeAndTrim(opts.Populate)); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *Postgres) FindMany(ctx context.Context, kind string, opts Options) (Page, error) {
	where, args, err := p.filterClause(kind, opts.Filters)
	if err != nil {
		return Page{}, err
	}

	var total int
	countQuery := "SELECT count(*) FROM records WHERE kind = $1" + where
	if err := p.q(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count %s records: %w", kind, err)
	}

	query := `SELECT id, document_id, data, published_at, created_at, updated_at
		FROM records WHERE kind = $1` + where + " ORDER BY id"
	if opts.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(opts.Limit)
	}
	if opts.Start > 0 {
		query += " OFFSET " + strconv.Itoa(opts.Start)
	}

	rows, err := p.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list %s records: %w", kind, err)
	}
	defer rows.Close()

	var results []*Record
	for rows.Next() {
		rec, err := scanRecord(rows, kind)
		if err != nil {
			return Page{}, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("list %s records: %w", kind, err)
	}

	if err := p.populate(ctx, kind, results, pstrings.DedupeAndTrim(opts.Populate)); err != nil {
		return Page{}, err
	}

	page := 1
	pageSize := total
	if opts.Limit > 0 {
		page = opts.Start/opts.Limit + 1
		pageSize = opts.Limit
	}
	return Page{
		Results:    results,
		Pagination: Pagination{Page: page, PageSize: pageSize, Total: total},
	}, nil
}

func (p *Postgres) FindAll(ctx context.Context, kind string, opts Options) ([]*Record, error) {
	page, err := p.FindMany(ctx, kind, opts)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (p *Postgres) Create(ctx context.Context, kind string, fields map[string]any, status Status) (*Record, error) {
	payload, err := json.Marshal(normalizeFields(p.schema, kind, fields))
	if err != nil {
		return nil, fmt.Errorf("marshal %s fields: %w", kind, err)
	}

	var publishedAt any
	if status == StatusPublished {
		publishedAt = time.Now().UTC()
	}

	query := `INSERT INTO records (kind, document_id, data, published_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, document_id, data, published_at, created_at, updated_at`
	row := p.q(ctx).QueryRowContext(ctx, query, kind, uuid.New(), payload, publishedAt)
	return scanRecord(row, kind)
}

func (p *Postgres) Update(ctx context.Context, kind string, ref Ref, fields map[string]any) (*Record, error) {
	payload, err := json.Marshal(normalizeFields(p.schema, kind, fields))
	if err != nil {
		return nil, fmt.Errorf("marshal %s fields: %w", kind, err)
	}

	where, args := refClause(ref, 3)
	if where == "" {
		return nil, sentinel.ErrNotFound
	}
	// JSONB || merges at the top level, preserving unmentioned fields.
	query := `UPDATE records SET data = data || $2, updated_at = now()
		WHERE kind = $1 AND ` + where + `
		RETURNING id, document_id, data, published_at, created_at, updated_at`
	row := p.q(ctx).QueryRowContext(ctx, query, append([]any{kind, payload}, args...)...)
	return scanRecord(row, kind)
}

func (p *Postgres) Delete(ctx context.Context, kind string, ref Ref) (*Record, error) {
	where, args := refClause(ref, 2)
	if where == "" {
		return nil, sentinel.ErrNotFound
	}
	query := `DELETE FROM records WHERE kind = $1 AND ` + where + `
		RETURNING id, document_id, data, published_at, created_at, updated_at`
	row := p.q(ctx).QueryRowContext(ctx, query, append([]any{kind}, args...)...)
	return scanRecord(row, kind)
}

// refClause builds the WHERE fragment addressing a record by either of its
// interchangeable identifiers. next is the first free placeholder number.
func refClause(ref Ref, next int) (string, []any) {
	if ref.ID != 0 {
		return fmt.Sprintf("id = $%d", next), []any{ref.ID}
	}
	if ref.DocumentID != uuid.Nil {
		return fmt.Sprintf("document_id = $%d", next), []any{ref.DocumentID}
	}
	return "", nil
}

// filterClause translates Options.Filters into SQL. Field filters compare
// JSONB values; "relation.field" filters go through a one-hop subselect.
func (p *Postgres) filterClause(kind string, filters map[string]any) (string, []any, error) {
	args := []any{kind}
	var clauses []string

	// Deterministic clause order keeps queries stable for logs and tests.
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := filters[key]
		head, rest := splitPath(key)
		if rest == "" {
			clause, arg, err := fieldCondition("data", head, want, len(args)+1)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
			args = append(args, arg)
			continue
		}

		target, ok := p.schema.Target(kind, head)
		if !ok {
			return "", nil, fmt.Errorf("filter path %q: %q is not a relation of %s: %w", key, head, kind, ErrInvalidFilter)
		}
		inner, arg, err := fieldCondition("r.data", rest, want, len(args)+2)
		if err != nil {
			return "", nil, err
		}
		clause := fmt.Sprintf(
			"(data->>'%s')::bigint IN (SELECT r.id FROM records r WHERE r.kind = $%d AND %s)",
			head, len(args)+1, inner)
		clauses = append(clauses, clause)
		args = append(args, target, arg)
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " AND " + strings.Join(clauses, " AND "), args, nil
}

// validFieldName bounds the field names fieldCondition will interpolate
// into a JSONB path. Anything outside this alphabet is rejected so filter
// keys can never splice SQL into the WHERE clause.
var validFieldName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// fieldCondition builds one comparison against a JSONB column. Numeric ids
// are compared as bigints; Fold values case-insensitively; everything else
// as text.
func fieldCondition(column, field string, want any, placeholder int) (string, any, error) {
	if !validFieldName.MatchString(field) {
		return "", nil, fmt.Errorf("filter field %q: %w", field, ErrInvalidFilter)
	}
	if field == "id" {
		id, ok := fieldpath.ID(want)
		if !ok {
			return "", nil, fmt.Errorf("filter on %s.id: value is not an id", column)
		}
		if column == "r.data" {
			return fmt.Sprintf("r.id = $%d", placeholder), id, nil
		}
		return fmt.Sprintf("id = $%d", placeholder), id, nil
	}
	if f, ok := want.(Fold); ok {
		return fmt.Sprintf("lower(%s->>'%s') = lower($%d)", column, field, placeholder), string(f), nil
	}
	if id, ok := fieldpath.ID(want); ok {
		return fmt.Sprintf("(%s->>'%s')::bigint = $%d", column, field, placeholder), id, nil
	}
	return fmt.Sprintf("%s->>'%s' = $%d", column, field, placeholder), fmt.Sprint(want), nil
}

// populate embeds related records for the requested paths, at most two
// levels deep ("profile", "profile.user"). Dangling relations stay as ids.
func (p *Postgres) populate(ctx context.Context, kind string, recs []*Record, paths []string) error {
	if len(recs) == 0 || len(paths) == 0 {
		return nil
	}

	grouped := make(map[string][]string)
	for _, path := range paths {
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
		target, ok := p.schema.Target(kind, head)
		if !ok {
			continue
		}
		for _, rec := range recs {
			relID, ok := fieldpath.ID(rec.Fields[head])
			if !ok {
				continue
			}
			rel, err := p.FindOne(ctx, target, ByID(relID), Options{Populate: rests})
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			rec.Fields[head] = rel.Map()
		}
	}
	return nil
}

func normalizeFields(schema *Schema, kind string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, isRelation := schema.Target(kind, k); isRelation {
			if id, ok := fieldpath.ID(v); ok {
				out[k] = id
				continue
			}
		}
		out[k] = v
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, kind string) (*Record, error) {
	var (
		rec         = Record{Kind: kind}
		payload     []byte
		publishedAt sql.NullTime
	)
	err := row.Scan(&rec.ID, &rec.DocumentID, &payload, &publishedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s record: %w", kind, err)
	}
	if err := json.Unmarshal(payload, &rec.Fields); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		rec.PublishedAt = &t
	}
	return &rec, nil
}
