package errs

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorFormatsTemplate(t *testing.T) {
	err := NewError(ErrFieldTooLong, "title", 200)

	require.NotNil(t, err)
	assert.Equal(t, ErrFieldTooLong, err.Code)
	assert.Equal(t, "Field title exceeds 200 bytes.", err.Message)
	assert.Equal(t, http.StatusOK, err.Status)
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	err := NewError(424242)

	assert.Equal(t, ErrUnknown, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestNewErrorKeepsExplicitStatus(t *testing.T) {
	err := NewError(ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, err.Status)

	var target *CustomError
	require.True(t, errors.As(error(err), &target))
	assert.Equal(t, ErrUnauthorized, target.Code)
}
