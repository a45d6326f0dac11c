package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSetsHTTPStatus(t *testing.T) {
	err := New(Validation, "missing job_key")
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Equal(t, "Validation: missing job_key", err.Error())

	err = New(StoreUnavailable, "db down")
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus())

	err = New(DeadlineExceeded, "timed out")
	assert.Equal(t, http.StatusGatewayTimeout, err.HTTPStatus())
}

func TestRetryable(t *testing.T) {
	assert.True(t, New(HandlerTransient, "x").Retryable())
	assert.True(t, New(RemoteCrewUnavailable, "x").Retryable())
	assert.True(t, New(StoreUnavailable, "x").Retryable())
	assert.False(t, New(Validation, "x").Retryable())
	assert.False(t, New(DeadlineExceeded, "x").Retryable())
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(StoreUnavailable, "could not claim job", cause)
	assert.Same(t, cause, wrapped.Unwrap())
	assert.True(t, errors.Is(wrapped, cause))
}

func TestNewValidationCarriesViolations(t *testing.T) {
	violations := []string{"job_key is required", "client_user_id is required"}
	err := NewValidation("payload failed validation", violations)
	assert.Equal(t, violations, err.Errors)
	assert.Equal(t, Validation, err.Category)
}

func TestAsFindsWrappedAPIError(t *testing.T) {
	inner := New(HandlerNotFound, "no handler for job_key")
	outer := errors.Join(errors.New("dispatch failed"), inner)

	_, ok := As(outer)
	assert.False(t, ok, "errors.Join does not expose a single Unwrap() error, so As should not find it")

	found, ok := As(inner)
	assert.True(t, ok)
	assert.Equal(t, inner, found)
}
