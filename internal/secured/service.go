package secured

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"member-vault/internal/identity"
	"member-vault/internal/ownership"
	"member-vault/internal/platform/metrics"
	"member-vault/internal/profile"
	"member-vault/internal/record"
	"member-vault/pkg/domain"
	dErrors "member-vault/pkg/domain-errors"
	"member-vault/pkg/fieldpath"
	"member-vault/pkg/platform/audit"
	"member-vault/pkg/platform/sentinel"
	"member-vault/pkg/requestcontext"
)

// Service is the generic ownership-scoped controller. All four operations
// verify the chain principal -> profile -> target record before exposing or
// mutating anything; the owner reference itself is never writable from a
// payload.
type Service struct {
	cfg       Config
	store     record.Store
	directory identity.Directory
	profiles  *profile.Provisioner
	validator Validator
	recorder  *audit.Recorder
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(
	cfg Config,
	store record.Store,
	directory identity.Directory,
	profiles *profile.Provisioner,
	validator Validator,
	recorder *audit.Recorder,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	cfg = cfg.normalized()
	return &Service{
		cfg:       cfg,
		store:     store,
		directory: directory,
		profiles:  profiles,
		validator: validator,
		recorder:  recorder,
		metrics:   m,
		logger:    logger.With("kind", cfg.TargetKind),
	}
}

// Result is the outcome of an update or delete: a single record, or the
// ordered set for bulk collection operations. A nil Record with Many false
// means "target absent" (serialized as a null data envelope).
type Result struct {
	Record  *record.Record
	Records []*record.Record
	Many    bool
}

// ownerChain is the populate depth ownership verification needs: the
// immediate owner plus the owner's principal reference.
func (s *Service) ownerChain() []string {
	return []string{s.cfg.OwnerField + "." + profile.OwnerField}
}

// Find lists the caller's records. The owner filter is merged in after the
// caller's filters so it can never be overridden from the query string; it
// scopes the query, it is not a secondary authorization check.
func (s *Service) Find(ctx context.Context, principal domain.UserID, opts record.Options) (record.Page, error) {
	filters := make(map[string]any, len(opts.Filters)+1)
	for k, v := range opts.Filters {
		filters[k] = v
	}
	filters[s.cfg.OwnerField+"."+profile.OwnerField] = principal.Int64()
	opts.Filters = filters

	page, err := s.store.FindMany(ctx, s.cfg.TargetKind, opts)
	if errors.Is(err, record.ErrInvalidFilter) {
		return record.Page{}, dErrors.Wrap(dErrors.CodeBadRequest, "invalid filter", err)
	}
	if err != nil {
		return record.Page{}, s.storeFailure(ctx, "list records", err)
	}
	return page, nil
}

// FindOne fetches a single record by direct id or email indirection.
// A nil record with nil error means the target does not exist yet.
func (s *Service) FindOne(ctx context.Context, principal domain.UserID, rawID string) (*record.Record, error) {
	if s.cfg.OwnerHasMany {
		return nil, dErrors.New(dErrors.CodeBadRequest, "singular fetch is not supported for this kind")
	}

	if address, ok := ownership.ParseIndirectIdentifier(rawID, ownership.DefaultIndirectionKey); ok {
		owner, err := s.resolveTargetPrincipal(ctx, principal, address)
		if err != nil {
			return nil, err
		}
		profileID, err := s.profiles.EnsureID(ctx, owner)
		if err != nil {
			return nil, s.storeFailure(ctx, "ensure profile", err)
		}
		return s.findByOwner(ctx, profileID)
	}

	id, err := domain.ParseRecordID(rawID)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.FindOne(ctx, s.cfg.TargetKind, record.ByID(id), record.Options{Populate: s.ownerChain()})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storeFailure(ctx, "fetch record", err)
	}
	if err := s.authorize(ctx, principal, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update applies a partial update addressed by direct id or indirection.
func (s *Service) Update(ctx context.Context, principal domain.UserID, rawID string, data any) (*Result, error) {
	address, indirect := ownership.ParseIndirectIdentifier(rawID, ownership.DefaultIndirectionKey)

	if s.cfg.OwnerHasMany && indirect {
		items, ok := data.([]any)
		if !ok {
			return nil, dErrors.New(dErrors.CodeBadRequest, "data must be an array for this kind")
		}
		return s.bulkUpsert(ctx, principal, address, items)
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "data must be an object")
	}
	if err := s.sanitize(ctx, obj); err != nil {
		return nil, err
	}

	if indirect {
		return s.updateSingletonByOwner(ctx, principal, address, obj)
	}
	return s.updateByID(ctx, principal, rawID, obj)
}

// Delete removes one collection item by id, or a verified set of items via
// the bulk indirection pattern.
func (s *Service) Delete(ctx context.Context, principal domain.UserID, rawID string, data any) (*Result, error) {
	if !s.cfg.AllowDelete {
		return nil, dErrors.New(dErrors.CodeBadRequest, "deletion is not supported for this kind")
	}

	if address, ok := ownership.ParseIndirectIdentifier(rawID, ownership.DefaultIndirectionKey); ok {
		return s.bulkDelete(ctx, principal, address, data)
	}

	id, err := domain.ParseRecordID(rawID)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.FindOne(ctx, s.cfg.TargetKind, record.ByID(id), record.Options{Populate: s.ownerChain()})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	if err != nil {
		return nil, s.storeFailure(ctx, "fetch record", err)
	}
	if err := s.authorize(ctx, principal, rec); err != nil {
		return nil, err
	}

	deleted, err := s.store.Delete(ctx, s.cfg.TargetKind, record.ByID(id))
	if err != nil {
		return nil, s.storeFailure(ctx, "delete record", err)
	}
	s.recordMutation(ctx, audit.ActionRecordDeleted, principal, deleted.ID)
	s.metrics.IncRecordsDeleted(s.cfg.TargetKind)
	return &Result{Record: deleted}, nil
}

// updateByID is the direct-id branch shared by singleton kinds and single
// collection items. An absent target yields a nil result, mirroring the
// null response of FindOne.
func (s *Service) updateByID(ctx context.Context, principal domain.UserID, rawID string, obj map[string]any) (*Result, error) {
	id, err := domain.ParseRecordID(rawID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.FindOne(ctx, s.cfg.TargetKind, record.ByID(id), record.Options{Populate: s.ownerChain()})
	if errors.Is(err, sentinel.ErrNotFound) {
		return &Result{}, nil
	}
	if err != nil {
		return nil, s.storeFailure(ctx, "fetch record", err)
	}
	if err := s.authorize(ctx, principal, existing); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, s.cfg.TargetKind, record.ByID(id), obj)
	if err != nil {
		return nil, s.storeFailure(ctx, "update record", err)
	}
	s.recordMutation(ctx, audit.ActionRecordUpdated, principal, updated.ID)
	s.metrics.IncRecordsUpdated(s.cfg.TargetKind)
	return &Result{Record: updated}, nil
}

// updateSingletonByOwner handles PUT /{kind}/user=<email> for singleton
// kinds: the singleton is created owned by the resolved profile when it
// does not exist yet, then partially updated.
func (s *Service) updateSingletonByOwner(ctx context.Context, principal domain.UserID, address string, obj map[string]any) (*Result, error) {
	owner, err := s.resolveTargetPrincipal(ctx, principal, address)
	if err != nil {
		return nil, err
	}
	profileID, err := s.profiles.EnsureID(ctx, owner)
	if err != nil {
		return nil, s.storeFailure(ctx, "ensure profile", err)
	}

	target, err := s.findByOwner(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		created, err := s.store.Create(ctx, s.cfg.TargetKind,
			map[string]any{s.cfg.OwnerField: profileID.Int64()}, record.StatusPublished)
		if err != nil {
			return nil, s.storeFailure(ctx, "create record", err)
		}
		s.recordMutation(ctx, audit.ActionRecordCreated, principal, created.ID)
		s.metrics.IncRecordsCreated(s.cfg.TargetKind)
		target = created
	}

	updated, err := s.store.Update(ctx, s.cfg.TargetKind, record.ByID(target.ID), obj)
	if err != nil {
		return nil, s.storeFailure(ctx, "update record", err)
	}
	s.recordMutation(ctx, audit.ActionRecordUpdated, principal, updated.ID)
	s.metrics.IncRecordsUpdated(s.cfg.TargetKind)
	return &Result{Record: updated}, nil
}

// bulkUpsert handles PUT /{kind}/user=<email> for collection kinds: items
// carrying an id are ownership-checked updates, items without one are
// creates owned by the resolved profile. Input order is preserved in the
// response.
func (s *Service) bulkUpsert(ctx context.Context, principal domain.UserID, address string, items []any) (*Result, error) {
	owner, err := s.resolveTargetPrincipal(ctx, principal, address)
	if err != nil {
		return nil, err
	}
	profileID, err := s.profiles.EnsureID(ctx, owner)
	if err != nil {
		return nil, s.storeFailure(ctx, "ensure profile", err)
	}

	type upsertItem struct {
		id     int64
		hasID  bool
		fields map[string]any
	}
	parsed := make([]upsertItem, 0, len(items))
	for i, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("data[%d] must be an object", i))
		}
		item := upsertItem{fields: obj}
		if v, present := obj["id"]; present {
			id, ok := fieldpath.ID(v)
			if !ok {
				return nil, dErrors.New(dErrors.CodeBadRequest,
					fmt.Sprintf("data[%d].id is not a record identifier", i))
			}
			item.id, item.hasID = id, true
			delete(obj, "id")
		}
		if err := s.sanitize(ctx, obj); err != nil {
			return nil, err
		}
		parsed = append(parsed, item)
	}

	results := make([]*record.Record, 0, len(parsed))
	for _, item := range parsed {
		if !item.hasID {
			fields := item.fields
			fields[s.cfg.OwnerField] = profileID.Int64()
			created, err := s.store.Create(ctx, s.cfg.TargetKind, fields, record.StatusPublished)
			if err != nil {
				return nil, s.storeFailure(ctx, "create record", err)
			}
			s.recordMutation(ctx, audit.ActionRecordCreated, principal, created.ID)
			s.metrics.IncRecordsCreated(s.cfg.TargetKind)
			results = append(results, created)
			continue
		}

		existing, err := s.store.FindOne(ctx, s.cfg.TargetKind, record.ByID(item.id),
			record.Options{Populate: s.ownerChain()})
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound,
				fmt.Sprintf("record %d not found", item.id))
		}
		if err != nil {
			return nil, s.storeFailure(ctx, "fetch record", err)
		}
		// Ownership is checked against the resolved target principal. The
		// earlier caller-match in resolveTargetPrincipal makes this
		// equivalent to caller ownership; keep the comparison on the
		// resolved side so the caller==target requirement stays explicit.
		ownerID, ok := ownership.OwnerPrincipalID(existing.Map(), s.cfg.OwnerField)
		if !ok || ownerID != owner.ID {
			s.metrics.IncOwnershipDenied(s.cfg.TargetKind)
			return nil, dErrors.New(dErrors.CodeForbidden, "forbidden")
		}

		updated, err := s.store.Update(ctx, s.cfg.TargetKind, record.ByID(item.id), item.fields)
		if err != nil {
			return nil, s.storeFailure(ctx, "update record", err)
		}
		s.recordMutation(ctx, audit.ActionRecordUpdated, principal, updated.ID)
		s.metrics.IncRecordsUpdated(s.cfg.TargetKind)
		results = append(results, updated)
	}
	return &Result{Records: results, Many: true}, nil
}

// bulkDelete implements the two-phase verify-then-commit protocol: every
// targeted id must exist and be owned before anything is deleted. On stores
// with native transactions the commit phase additionally runs inside one;
// elsewhere the phase ordering is the only guarantee, so a concurrent
// mutation between the phases can still slip through.
func (s *Service) bulkDelete(ctx context.Context, principal domain.UserID, address string, data any) (*Result, error) {
	owner, err := s.resolveTargetPrincipal(ctx, principal, address)
	if err != nil {
		return nil, err
	}
	if _, err := s.profiles.EnsureID(ctx, owner); err != nil {
		return nil, s.storeFailure(ctx, "ensure profile", err)
	}

	items, ok := data.([]any)
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "data must be an array of record ids")
	}
	ids := make([]int64, 0, len(items))
	for i, raw := range items {
		id, ok := fieldpath.ID(raw)
		if !ok {
			return nil, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("data[%d] is not a record identifier", i))
		}
		ids = append(ids, id)
	}

	// Verification phase: any failure aborts with zero deletions.
	for _, id := range ids {
		rec, err := s.store.FindOne(ctx, s.cfg.TargetKind, record.ByID(id),
			record.Options{Populate: s.ownerChain()})
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recorder.Record(audit.Event{
				Action: audit.ActionBulkDeleteDenied, UserID: principal,
				Kind: s.cfg.TargetKind, RecordID: id,
			})
			return nil, dErrors.New(dErrors.CodeNotFound,
				fmt.Sprintf("record %d not found", id))
		}
		if err != nil {
			return nil, s.storeFailure(ctx, "fetch record", err)
		}
		ownerID, ok := ownership.OwnerPrincipalID(rec.Map(), s.cfg.OwnerField)
		if !ok || ownerID != owner.ID {
			s.metrics.IncOwnershipDenied(s.cfg.TargetKind)
			s.recorder.Record(audit.Event{
				Action: audit.ActionBulkDeleteDenied, UserID: principal,
				Kind: s.cfg.TargetKind, RecordID: id,
			})
			return nil, dErrors.New(dErrors.CodeForbidden, "forbidden")
		}
	}

	// Commit phase.
	deleted := make([]*record.Record, 0, len(ids))
	commit := func(ctx context.Context) error {
		for _, id := range ids {
			rec, err := s.store.Delete(ctx, s.cfg.TargetKind, record.ByID(id))
			if err != nil {
				return err
			}
			deleted = append(deleted, rec)
		}
		return nil
	}
	if tx, ok := s.store.(record.Transactor); ok {
		err = tx.WithinTx(ctx, commit)
	} else {
		err = commit(ctx)
	}
	if err != nil {
		return nil, s.storeFailure(ctx, "bulk delete", err)
	}

	for _, rec := range deleted {
		s.recordMutation(ctx, audit.ActionRecordDeleted, principal, rec.ID)
		s.metrics.IncRecordsDeleted(s.cfg.TargetKind)
	}
	return &Result{Records: deleted, Many: true}, nil
}

// findByOwner fetches the unique singleton owned by a profile, or nil.
func (s *Service) findByOwner(ctx context.Context, profileID domain.ProfileID) (*record.Record, error) {
	recs, err := s.store.FindAll(ctx, s.cfg.TargetKind, record.Options{
		Filters:  map[string]any{s.cfg.OwnerField: profileID.Int64()},
		Limit:    1,
		Populate: s.ownerChain(),
	})
	if err != nil {
		return nil, s.storeFailure(ctx, "find record by owner", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// resolveTargetPrincipal resolves the indirection email to a principal and
// enforces that it is the caller. The NotFound on an unregistered address
// reveals registration status; that matches the upstream behavior and is
// kept deliberately.
func (s *Service) resolveTargetPrincipal(ctx context.Context, caller domain.UserID, address string) (*identity.Principal, error) {
	target, err := s.directory.ByEmail(ctx, address)
	if identity.IsNotFound(err) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no principal registered for this email")
	}
	if err != nil {
		return nil, s.storeFailure(ctx, "resolve principal by email", err)
	}
	if target.ID != caller {
		s.metrics.IncOwnershipDenied(s.cfg.TargetKind)
		return nil, dErrors.New(dErrors.CodeForbidden, "forbidden")
	}
	return target, nil
}

// authorize verifies the caller owns rec through the profile chain. An
// indeterminate chain fails closed. The message never distinguishes
// "exists but not yours" from anything else.
func (s *Service) authorize(ctx context.Context, caller domain.UserID, rec *record.Record) error {
	ownerID, ok := ownership.OwnerPrincipalID(rec.Map(), s.cfg.OwnerField)
	if !ok || ownerID != caller {
		s.metrics.IncOwnershipDenied(s.cfg.TargetKind)
		s.logger.WarnContext(ctx, "ownership check failed",
			"record_id", rec.ID,
			"principal_id", caller,
		)
		return dErrors.New(dErrors.CodeForbidden, "forbidden")
	}
	return nil
}

// sanitize runs the external validation hook and strips the fields a caller
// must never set: the owner reference and the record identifiers.
func (s *Service) sanitize(ctx context.Context, obj map[string]any) error {
	if s.validator != nil {
		if err := s.validator.ValidateInput(ctx, s.cfg.TargetKind, obj); err != nil {
			return err
		}
	}
	fieldpath.Strip(s.cfg.OwnerField, obj)
	fieldpath.Strip("id", obj)
	fieldpath.Strip("documentId", obj)
	return nil
}

func (s *Service) recordMutation(ctx context.Context, action audit.Action, principal domain.UserID, recordID int64) {
	s.recorder.Record(audit.Event{
		Action:    action,
		UserID:    principal,
		Kind:      s.cfg.TargetKind,
		RecordID:  recordID,
		RequestID: requestcontext.RequestID(ctx),
	})
}

func (s *Service) storeFailure(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "store operation failed",
		"op", op,
		"error", err,
	)
	return dErrors.Wrap(dErrors.CodeInternal, "backing store failure", err)
}
