package secured_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"member-vault/internal/record"
	"member-vault/internal/secured"
	"member-vault/internal/secured/mocks"
	"member-vault/pkg/domain"
	dErrors "member-vault/pkg/domain-errors"
	"member-vault/pkg/requestcontext"
)

const testPrincipal = domain.UserID(42)

func newTestRouter(t *testing.T, cfg secured.Config, path string) (chi.Router, *mocks.MockFieldService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	service := mocks.NewMockFieldService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	secured.NewHandler(service, cfg, path, logger).Register(r)
	return r, service
}

func authedRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := requestcontext.WithUserID(req.Context(), testPrincipal.Int64())
	return req.WithContext(ctx)
}

func testRecord(id int64, fields map[string]any) *record.Record {
	return &record.Record{
		ID:         id,
		DocumentID: uuid.New(),
		Kind:       "person",
		Fields:     fields,
	}
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestHandlerGetSingleton(t *testing.T) {
	r, service := newTestRouter(t, secured.Config{TargetKind: "person"}, "people")
	service.EXPECT().
		FindOne(gomock.Any(), testPrincipal, "user=jane.doe@example.com").
		Return(testRecord(7, map[string]any{"firstName": "Jane"}), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/people/user=jane.doe@example.com", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	data := resp["data"].(map[string]any)
	assert.Equal(t, "Jane", data["firstName"])
	assert.Equal(t, float64(7), data["id"])
}

func TestHandlerGetAbsentSingletonIsNull(t *testing.T) {
	r, service := newTestRouter(t, secured.Config{TargetKind: "person"}, "people")
	service.EXPECT().
		FindOne(gomock.Any(), testPrincipal, "3").
		Return(nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/people/3", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	assert.Nil(t, resp["data"])
}

func TestHandlerForbiddenEnvelope(t *testing.T) {
	r, service := newTestRouter(t, secured.Config{TargetKind: "person"}, "people")
	service.EXPECT().
		FindOne(gomock.Any(), testPrincipal, "3").
		Return(nil, dErrors.New(dErrors.CodeForbidden, "forbidden"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/people/3", ""))

	assert.Equal(t, http.StatusForbidden, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	errBody := resp["error"].(map[string]any)
	assert.Equal(t, "forbidden", errBody["code"])
}

func TestHandlerRejectsMissingPrincipal(t *testing.T) {
	r, _ := newTestRouter(t, secured.Config{TargetKind: "person"}, "people")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/people/3", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlerUpdateRequiresDataEnvelope(t *testing.T) {
	r, _ := newTestRouter(t, secured.Config{TargetKind: "person"}, "people")

	for _, body := range []string{"", "{}", `{"data": null}`} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(http.MethodPut, "/people/3", body))
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestHandlerUpdateSingleton(t *testing.T) {
	r, service := newTestRouter(t, secured.Config{TargetKind: "person"}, "people")
	service.EXPECT().
		Update(gomock.Any(), testPrincipal, "user=jane.doe@example.com",
			map[string]any{"firstName": "Janet"}).
		Return(&secured.Result{Record: testRecord(7, map[string]any{"firstName": "Janet"})}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPut, "/people/user=jane.doe@example.com",
		`{"data": {"firstName": "Janet"}}`))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	data := resp["data"].(map[string]any)
	assert.Equal(t, "Janet", data["firstName"])
}

func TestHandlerBulkUpdatePassesArrayThrough(t *testing.T) {
	cfg := secured.Config{TargetKind: "emergency-contact", OwnerHasMany: true, AllowDelete: true}
	r, service := newTestRouter(t, cfg, "emergency-contacts")
	service.EXPECT().
		Update(gomock.Any(), testPrincipal, "user=jane.doe@example.com",
			[]any{map[string]any{"name": "Ana"}}).
		Return(&secured.Result{
			Records: []*record.Record{testRecord(1, map[string]any{"name": "Ana"})},
			Many:    true,
		}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPut, "/emergency-contacts/user=jane.doe@example.com",
		`{"data": [{"name": "Ana"}]}`))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	data := resp["data"].([]any)
	require.Len(t, data, 1)
}

func TestHandlerListParsesQuery(t *testing.T) {
	cfg := secured.Config{TargetKind: "emergency-contact", OwnerHasMany: true, AllowDelete: true}
	r, service := newTestRouter(t, cfg, "emergency-contacts")

	var seen record.Options
	service.EXPECT().
		Find(gomock.Any(), testPrincipal, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.UserID, opts record.Options) (record.Page, error) {
			seen = opts
			return record.Page{
				Results:    []*record.Record{testRecord(1, map[string]any{"name": "Ana"})},
				Pagination: record.Pagination{Page: 2, PageSize: 10, Total: 11},
			}, nil
		})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet,
		"/emergency-contacts/?page=2&pageSize=10&filters[name]=Ana", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, seen.Limit)
	assert.Equal(t, 10, seen.Start)
	assert.Equal(t, "Ana", seen.Filters["name"])

	resp := decodeEnvelope(t, w.Body.Bytes())
	meta := resp["meta"].(map[string]any)
	pagination := meta["pagination"].(map[string]any)
	assert.Equal(t, float64(11), pagination["total"])
}

func TestHandlerListRejectsBadPagination(t *testing.T) {
	cfg := secured.Config{TargetKind: "emergency-contact", OwnerHasMany: true}
	r, _ := newTestRouter(t, cfg, "emergency-contacts")

	for _, target := range []string{
		"/emergency-contacts/?page=0",
		"/emergency-contacts/?page=abc",
		"/emergency-contacts/?pageSize=1000",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(http.MethodGet, target, ""))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestHandlerBulkDelete(t *testing.T) {
	cfg := secured.Config{TargetKind: "emergency-contact", OwnerHasMany: true, AllowDelete: true}
	r, service := newTestRouter(t, cfg, "emergency-contacts")
	service.EXPECT().
		Delete(gomock.Any(), testPrincipal, "user=jane.doe@example.com",
			[]any{float64(1), float64(2)}).
		Return(&secured.Result{
			Records: []*record.Record{
				testRecord(1, map[string]any{"name": "Ana"}),
				testRecord(2, map[string]any{"name": "Ben"}),
			},
			Many: true,
		}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodDelete, "/emergency-contacts/user=jane.doe@example.com",
		`{"data": [1, 2]}`))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	assert.Len(t, resp["data"].([]any), 2)
}

func TestHandlerListRejectsHostileFilterField(t *testing.T) {
	cfg := secured.Config{TargetKind: "emergency-contact", OwnerHasMany: true}
	r, _ := newTestRouter(t, cfg, "emergency-contacts")

	// No Find expectation: a malformed filter key never reaches the service.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet,
		"/emergency-contacts/?filters[a%27%20%3D%20data-%3E%3E%27a%27%20OR%201%3D1%20OR%20data-%3E%3E%27b]=x", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	errBody := resp["error"].(map[string]any)
	assert.Equal(t, "bad_request", errBody["code"])
}

func TestHandlerListSingleton(t *testing.T) {
	r, service := newTestRouter(t, secured.Config{TargetKind: "person"}, "people")
	service.EXPECT().
		Find(gomock.Any(), testPrincipal, gomock.Any()).
		Return(record.Page{
			Results:    []*record.Record{testRecord(7, map[string]any{"firstName": "Jane"})},
			Pagination: record.Pagination{Page: 1, PageSize: 25, Total: 1},
		}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/people/", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	data := resp["data"].([]any)
	require.Len(t, data, 1)
}

func TestHandlerRouteSurfaceFollowsConfig(t *testing.T) {
	// Collections expose no singular fetch route.
	cfg := secured.Config{TargetKind: "emergency-contact", OwnerHasMany: true}
	r, _ := newTestRouter(t, cfg, "emergency-contacts")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/emergency-contacts/3", ""))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	// Delete is absent unless enabled.
	r, _ = newTestRouter(t, secured.Config{TargetKind: "person"}, "people")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodDelete, "/people/3", ""))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
