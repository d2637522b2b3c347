package secured

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"member-vault/internal/platform/middleware"
	"member-vault/internal/record"
	"member-vault/internal/transport/http/shared"
	"member-vault/pkg/domain"
	dErrors "member-vault/pkg/domain-errors"
	"member-vault/pkg/requestcontext"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// validFilterPath bounds filter keys to a field name or a one-hop
// "relation.field" path over the identifier alphabet the stores accept.
var validFilterPath = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)?$`)

// FieldService is the operation surface the handler needs. Kept as an
// interface so handler tests can run against a generated mock.
//
//go:generate mockgen -source=handler.go -destination=mocks/secured-mocks.go -package=mocks FieldService
type FieldService interface {
	Find(ctx context.Context, principal domain.UserID, opts record.Options) (record.Page, error)
	FindOne(ctx context.Context, principal domain.UserID, rawID string) (*record.Record, error)
	Update(ctx context.Context, principal domain.UserID, rawID string, data any) (*Result, error)
	Delete(ctx context.Context, principal domain.UserID, rawID string, data any) (*Result, error)
}

// Handler exposes one configured kind over HTTP under /{path}.
type Handler struct {
	logger  *slog.Logger
	service FieldService
	cfg     Config
	path    string
}

// NewHandler creates a handler serving cfg's kind at the given URL path
// segment (e.g. "people" for the person kind).
func NewHandler(service FieldService, cfg Config, path string, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		cfg:     cfg.normalized(),
		path:    path,
	}
}

// Register mounts the kind's routes. Every kind lists; the singular fetch
// route is only meaningful for singleton kinds, and delete only for kinds
// with deletion enabled.
func (h *Handler) Register(r chi.Router) {
	r.Route("/"+h.path, func(sr chi.Router) {
		sr.Get("/", h.handleList)
		if !h.cfg.OwnerHasMany {
			sr.Get("/{id}", h.handleGet)
		}
		sr.Put("/{id}", h.handleUpdate)
		if h.cfg.AllowDelete {
			sr.Delete("/{id}", h.handleDelete)
		}
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	page, err := h.service.Find(ctx, principal, opts)
	if err != nil {
		h.logError(ctx, "list failed", err)
		shared.WriteError(w, err)
		return
	}

	data := make([]map[string]any, 0, len(page.Results))
	for _, rec := range page.Results {
		data = append(data, rec.Map())
	}
	shared.WriteJSONWithMeta(w, http.StatusOK, data, map[string]any{
		"pagination": page.Pagination,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	rec, err := h.service.FindOne(ctx, principal, chi.URLParam(r, "id"))
	if err != nil {
		h.logError(ctx, "fetch failed", err)
		shared.WriteError(w, err)
		return
	}
	if rec == nil {
		shared.WriteJSON(w, http.StatusOK, nil)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec.Map())
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	data, err := decodeData(r, true)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	res, err := h.service.Update(ctx, principal, chi.URLParam(r, "id"), data)
	if err != nil {
		h.logError(ctx, "update failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resultData(res))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	// The payload is only required for the bulk form; the service rejects
	// a malformed one.
	data, err := decodeData(r, false)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	res, err := h.service.Delete(ctx, principal, chi.URLParam(r, "id"), data)
	if err != nil {
		h.logError(ctx, "delete failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resultData(res))
}

// principal extracts the authenticated principal, failing closed when the
// auth middleware did not attach one.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	principal, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "principal missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return 0, false
	}
	return principal, true
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// decodeData reads the {"data": ...} request envelope. require makes an
// absent or null data key a BadRequest.
func decodeData(r *http.Request, require bool) (any, error) {
	var body struct {
		Data any `json:"data"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if errors.Is(err, io.EOF) {
		if require {
			return nil, dErrors.New(dErrors.CodeBadRequest, "missing data payload")
		}
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	if require && body.Data == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing data payload")
	}
	return body.Data, nil
}

// parseListOptions reads pagination and filters[<field>]=<value> query
// parameters.
func parseListOptions(r *http.Request) (record.Options, error) {
	opts := record.Options{
		Filters: map[string]any{},
		Limit:   defaultPageSize,
	}

	q := r.URL.Query()
	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return record.Options{}, dErrors.New(dErrors.CodeBadRequest, "page must be a positive integer")
		}
		page = n
	}
	if raw := q.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return record.Options{}, dErrors.New(dErrors.CodeBadRequest, "pageSize must be between 1 and 100")
		}
		opts.Limit = n
	}
	opts.Start = (page - 1) * opts.Limit

	for key, values := range q {
		if !strings.HasPrefix(key, "filters[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		field := key[len("filters[") : len(key)-1]
		if field == "" {
			continue
		}
		if !validFilterPath.MatchString(field) {
			return record.Options{}, dErrors.New(dErrors.CodeBadRequest, "invalid filter field")
		}
		opts.Filters[field] = filterValue(values[0])
	}
	return opts, nil
}

// filterValue coerces numeric-looking query values so id and relation
// filters compare as identifiers rather than text.
func filterValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

// resultData flattens a mutation result into the response envelope shape.
func resultData(res *Result) any {
	if res == nil {
		return nil
	}
	if res.Many {
		data := make([]map[string]any, 0, len(res.Records))
		for _, rec := range res.Records {
			data = append(data, rec.Map())
		}
		return data
	}
	if res.Record == nil {
		return nil
	}
	return res.Record.Map()
}
