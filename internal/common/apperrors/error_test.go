package apperrors

import (
	"errors"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorChaining(t *testing.T) {
	base := New("gateway error")
	require.Equal(t, "gateway error", base.Error())
	require.Equal(t, 0, base.StatusCode())

	notFound := base.New("session not found").SetStatusCode(http.StatusNotFound)
	assert.Equal(t, "session not found", notFound.Error())
	assert.Equal(t, http.StatusNotFound, notFound.StatusCode())
	assert.True(t, errors.Is(notFound, base))

	// New starts a fresh message but keeps lineage
	assert.NotContains(t, notFound.ErrorAll(), "gateway error")
}

func TestMsgWrapsOriginal(t *testing.T) {
	base := New("upstream error").SetStatusCode(http.StatusBadGateway)
	wrapped := base.Msg("incident fetch failed")

	assert.Equal(t, "incident fetch failed", wrapped.Error())
	assert.Equal(t, http.StatusBadGateway, wrapped.StatusCode())
	assert.True(t, errors.Is(wrapped, base))
	assert.Contains(t, wrapped.ErrorAll(), "upstream error")
}

func TestMsgErrAttachesCause(t *testing.T) {
	cause := errors.New("connection refused")
	base := New("transport error").SetStatusCode(http.StatusInternalServerError)
	err := base.MsgErr("analysis service unreachable", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, base))
	assert.Contains(t, err.ErrorAll(), "connection refused")
	assert.Len(t, err.UnwrapAll(), 2)
}

func TestErrKeepsMessage(t *testing.T) {
	cause := errors.New("token expired")
	base := New("not authorized").SetStatusCode(http.StatusUnauthorized)
	err := base.Err(cause)

	assert.Equal(t, "not authorized", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestSetStatusCodeDoesNotMutate(t *testing.T) {
	base := New("validation error").SetStatusCode(http.StatusBadRequest)
	teapot := base.SetStatusCode(http.StatusTeapot)

	assert.Equal(t, http.StatusBadRequest, base.StatusCode())
	assert.Equal(t, http.StatusTeapot, teapot.StatusCode())
}

func TestInteropWithWrappedCauses(t *testing.T) {
	cause := pkgerrors.New("dial tcp: connection refused")
	wrapped := pkgerrors.Wrap(cause, "backend call failed")
	base := New("upstream failure").SetStatusCode(http.StatusBadGateway)
	err := base.Err(wrapped)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.ErrorAll(), "backend call failed")
}
