package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvelabhub/labhub/internal/common/apperrors"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrMissingParams("alarm_name", "timestamp").Send(rec)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeEnvelope(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "alarm_name")
	assert.Contains(t, body["message"], "timestamp")
	_, hasDetail := body["detail"]
	assert.False(t, hasDetail)
}

func TestTransportErrorCarriesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrTransport(errors.New("dial tcp: connection refused")).Send(rec)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Internal server error", body["message"])
	assert.Equal(t, "dial tcp: connection refused", body["detail"])
}

func TestUpstreamErrorMirrorsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrUpstream(http.StatusServiceUnavailable, "maintenance").Send(rec)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// codes with no natural mirror fall back to 502
	rec = httptest.NewRecorder()
	ErrUpstream(http.StatusOK, "odd").Send(rec)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestWrapHandlerSuccess(t *testing.T) {
	h := WrapHandler(func(r *http.Request) (*Response, error) {
		return &Response{
			StatusCode: http.StatusOK,
			Response:   map[string]string{"status": "ready"},
		}, nil
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "ready", body["status"])
}

func TestWrapHandlerAppError(t *testing.T) {
	appErr := apperrors.New("session not found").SetStatusCode(http.StatusNotFound)
	h := WrapHandler(func(r *http.Request) (*Response, error) {
		return nil, appErr
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/labs/x", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "session not found", body["message"])
}

func TestWrapHandlerUnclassifiedError(t *testing.T) {
	h := WrapHandler(func(r *http.Request) (*Response, error) {
		return nil, errors.New("boom")
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Internal server error", body["message"])
	assert.Equal(t, "boom", body["detail"])
}
