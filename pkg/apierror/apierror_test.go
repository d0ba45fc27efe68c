package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "BAD_REQUEST: email is required (email)", BadRequest("email is required", "email").Error())
	require.Equal(t, "TOKEN_INVALID: invalid or expired token", TokenInvalid().Error())

	var nilErr *APIError
	require.Empty(t, nilErr.Error())
}

func TestAPIErrorStatuses(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusUnauthorized, InvalidCredentials().HTTPStatus)
	require.Equal(t, http.StatusUnauthorized, Forbidden().HTTPStatus)
	require.Equal(t, http.StatusTooManyRequests, TooManyRequests().HTTPStatus)
	require.Equal(t, http.StatusConflict, AlreadyExists("user already exists", "").HTTPStatus)
	require.Equal(t, http.StatusInternalServerError, Internal().HTTPStatus)
}

func TestAPIErrorUnwrapsThroughWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("refresh: %w", TokenInvalid())

	var apiErr *APIError
	require.True(t, errors.As(wrapped, &apiErr))
	require.Equal(t, CodeTokenInvalid, apiErr.Code)
}
