package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	assert.NoError(t, Store("op", nil))

	base := errors.New("connection refused")
	err := Store("load graph", base)
	assert.True(t, IsStore(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "store load graph: connection refused", err.Error())

	// Already wrapped errors keep their original operation.
	again := Store("outer", fmt.Errorf("ctx: %w", err))
	var se *StoreError
	assert.True(t, errors.As(again, &se))
	assert.Equal(t, "load graph", se.Op)

	notFound := Store("get cocktail", fmt.Errorf("cocktail 7: %w", ErrNotFound))
	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.False(t, IsStore(notFound))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("inventoryIds", "element %d is not a positive integer", 2)
	assert.Equal(t, "inventoryIds: element 2 is not a positive integer", err.Error())
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsValidation(ErrNotFound))

	assert.Equal(t, "bad", (&ValidationError{Message: "bad"}).Error())
}

func TestReasonWrappers(t *testing.T) {
	err := Unauthorized("invalid token")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "invalid token: unauthorized", err.Error())

	assert.ErrorIs(t, Conflict("email taken"), ErrConflict)
}
