// Package shared holds the JSON envelope helpers the HTTP handlers use.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "member-vault/pkg/domain-errors"
)

type errorBody struct {
	Code    dErrors.Code `json:"code"`
	Message string       `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// DataEnvelope wraps every successful response body.
type DataEnvelope struct {
	Data any `json:"data"`
	Meta any `json:"meta,omitempty"`
}

// WriteJSON writes a {"data": ...} envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeBody(w, status, DataEnvelope{Data: data})
}

// WriteJSONWithMeta writes a {"data": ..., "meta": ...} envelope.
func WriteJSONWithMeta(w http.ResponseWriter, status int, data, meta any) {
	writeBody(w, status, DataEnvelope{Data: data, Meta: meta})
}

// WriteError maps a domain error to its HTTP status and writes an
// {"error": {"code", "message"}} body. Non-domain errors become a 500
// with the internal code.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeBody(w, dErrors.ToHTTPStatus(code), errorEnvelope{Error: errorBody{
		Code:    code,
		Message: dErrors.MessageOf(err),
	}})
}

func writeBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encode failures after the header is written can only be dropped.
	_ = json.NewEncoder(w).Encode(body)
}
