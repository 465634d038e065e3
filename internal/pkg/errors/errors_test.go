package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(ErrLLMEmptyMessages))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(424242))
	assert.True(t, IsClientError(ErrInvalidParams))
	assert.False(t, IsClientError(ErrInternalServer))
	assert.True(t, IsSuccess(Success))
	assert.Equal(t, "Invalid parameters: messages[0].role", FormatError(ErrInvalidParams, "messages[0].role"))
	assert.Equal(t, "Resource not found", FormatError(ErrNotFound))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrBadRequest))

	cause := errors.New("unexpected EOF")
	err := Wrap(cause, ErrBadRequest)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrBadRequest, ExtractCode(err))
	assert.Equal(t, "unexpected EOF", GetDetails(err))
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())

	original := New(ErrLLMEmptyMessages)
	rewrapped := Wrap(original, ErrInternalServer, "no messages")
	assert.Equal(t, ErrLLMEmptyMessages, rewrapped.Code)
	assert.Equal(t, "no messages", rewrapped.Details)
	assert.Empty(t, original.Details)
	assert.Same(t, original, Wrap(original, ErrInternalServer))
}

func TestIsAndExtract(t *testing.T) {
	err := NewValidationError("models")
	assert.True(t, Is(err, ErrInvalidParams))
	assert.False(t, Is(errors.New("plain"), ErrInvalidParams))
	assert.Equal(t, ErrInternalServer, ExtractCode(errors.New("plain")))
	assert.Equal(t, "plain", GetDetails(errors.New("plain")))
	assert.Contains(t, err.Error(), "validation failed for field: models")
}
