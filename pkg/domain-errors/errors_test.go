package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeForbidden, "not yours")
	assert.True(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(err, CodeNotFound))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, HasCode(wrapped, CodeForbidden))

	assert.False(t, HasCode(errors.New("plain"), CodeForbidden))
}

func TestCodeOf_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("driver fault")))
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "gone")))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(CodeInternal, "store failure", cause)
	require.ErrorIs(t, err, cause)
	// Caller-safe message never includes the cause.
	assert.Equal(t, "store failure", MessageOf(err))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeBadRequest))
	assert.Equal(t, http.StatusUnauthorized, ToHTTPStatus(CodeUnauthorized))
	assert.Equal(t, http.StatusForbidden, ToHTTPStatus(CodeForbidden))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(Code("mystery")))
}
