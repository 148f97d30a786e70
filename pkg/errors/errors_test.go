package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodesMapToStatuses(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   Code
		status int
	}{
		{ErrKeyUnavailable("m"), CodeKeyUnavailable, http.StatusServiceUnavailable},
		{ErrSigningFailure("m"), CodeSigningFailure, http.StatusInternalServerError},
		{ErrUnauthenticated(), CodeUnauthenticated, http.StatusUnauthorized},
		{ErrRateLimited(time.Now().Add(30 * time.Second)), CodeRateLimited, http.StatusTooManyRequests},
		{ErrValidation("m"), CodeValidation, http.StatusBadRequest},
		{ErrInternal("m"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code())
		assert.Equal(t, tc.status, tc.err.HTTPStatus())
	}
}

func TestUnauthenticatedMessageIsFixed(t *testing.T) {
	// One message for every rejection cause, so a caller cannot probe
	// which check failed.
	assert.Equal(t, ErrUnauthenticated().Message(), ErrUnauthenticated().Message())
	assert.Equal(t, "invalid bearer token", ErrUnauthenticated().Message())
}

func TestRateLimitedCarriesRetryAfter(t *testing.T) {
	err := ErrRateLimited(time.Now().Add(45 * time.Second))
	retry := err.RetryAfter()
	assert.Greater(t, retry, 40*time.Second)
	assert.LessOrEqual(t, retry, 46*time.Second)
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := ErrKeyUnavailable("store down").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsCode(err, CodeKeyUnavailable))
}

func TestToErrorResponseCollapsesForeignErrors(t *testing.T) {
	resp := ToErrorResponse(fmt.Errorf("pq: relation does not exist"))
	require.NotNil(t, resp)
	assert.Equal(t, string(CodeInternal), resp.Error)
	assert.NotContains(t, resp.ErrorDescription, "pq:")
}

func TestIsCodeOnWrappedChain(t *testing.T) {
	inner := ErrRateLimited(time.Now())
	wrapped := fmt.Errorf("handling request: %w", inner)
	assert.True(t, IsCode(wrapped, CodeRateLimited))
	assert.False(t, IsCode(wrapped, CodeValidation))
}
