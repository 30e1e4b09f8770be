package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("workflow_definition", "wf-1")))
	assert.Equal(t, CodeValidation, CodeOf(InvalidInput("code", "is required")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", New(CodeConflict, "duplicate"))
	assert.Equal(t, CodeConflict, CodeOf(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{InvalidInput("field", "bad"), http.StatusBadRequest},
		{NotFound("thing", "id"), http.StatusNotFound},
		{New(CodeConflict, "duplicate"), http.StatusConflict},
		{Unavailable("fetch", errors.New("refused")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err))
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(cause, CodeInternal, "context")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INTERNAL")
	assert.Contains(t, err.Error(), "context")
}
