package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsKind(t *testing.T) {
	err := Clone(ErrInvalidTransition, "appointment already cancelled")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.Equal(t, "appointment already cancelled", err.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestFromErrorFindsWrappedKind(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", Clone(ErrNotFound, "appointment not found"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}
