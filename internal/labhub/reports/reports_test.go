package reports

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/cvelabhub/labhub/internal/labhub/auth"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
	"github.com/cvelabhub/labhub/internal/labhub/clientstate"
)

// %PDF magic number followed by filler.
var pdfBytes = append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte{0x20}, 32)...)

// ELF magic number: executables must be refused.
var elfBytes = append([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0}, bytes.Repeat([]byte{0}, 64)...)

func newReportsServer(t *testing.T, upstream http.HandlerFunc) (http.Handler, clientstate.Store) {
	t.Helper()
	var client *backend.Client
	if upstream != nil {
		srv := httptest.NewServer(upstream)
		t.Cleanup(srv.Close)
		client = backend.NewClient(srv.URL, 5*time.Second, 1)
	} else {
		client = backend.NewClient("http://127.0.0.1:0", time.Second, 1)
	}
	state := clientstate.NewMemoryStore()

	r := chi.NewRouter()
	r.Mount("/users/{userID}/reports", Router(client, state))
	return r, state
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), userID, "test-token", false))
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestUploadAcceptsPDF(t *testing.T) {
	var gotContentType string
	h, _ := newReportsServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"reportId":"rep-1"}`))
	})

	body, contentType := multipartBody(t, "writeup.pdf", pdfBytes)
	req := asUser(httptest.NewRequest(http.MethodPost, "/users/user-1/reports/", body), "user-1")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/pdf", gotContentType)
	assert.Equal(t, "rep-1", gjson.Get(rec.Body.String(), "reportId").String())
}

func TestUploadRejectsExecutable(t *testing.T) {
	upstreamCalled := false
	h, _ := newReportsServer(t, func(w http.ResponseWriter, r *http.Request) {
		upstreamCalled = true
	})

	body, contentType := multipartBody(t, "innocent.pdf", elfBytes)
	req := asUser(httptest.NewRequest(http.MethodPost, "/users/user-1/reports/", body), "user-1")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, gjson.Get(rec.Body.String(), "message").String(), "unsupported report file type")
	assert.False(t, upstreamCalled)
}

func TestUploadTreatsUnknownAsText(t *testing.T) {
	var gotContentType string
	h, _ := newReportsServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"reportId":"rep-2"}`))
	})

	body, contentType := multipartBody(t, "notes.md", []byte("# Exploitation notes\n"))
	req := asUser(httptest.NewRequest(http.MethodPost, "/users/user-1/reports/", body), "user-1")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "text/plain", gotContentType)
}

func TestCannotAccessAnotherUsersReports(t *testing.T) {
	h, _ := newReportsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/users/user-2/reports/", nil), "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDownloadMapsUpstreamNotFound(t *testing.T) {
	h, _ := newReportsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"object missing"}`))
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/users/user-1/reports/rep-9/download", nil), "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Report not found", gjson.Get(rec.Body.String(), "message").String())
}

func TestDraftLifecycle(t *testing.T) {
	h, state := newReportsServer(t, nil)

	// Missing draft reports 404.
	req := asUser(httptest.NewRequest(http.MethodGet, "/users/user-1/reports/drafts/CVE-2021-44228", nil), "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Save.
	draft := `{"title":"log4shell notes","body":"jndi lookup"}`
	req = asUser(httptest.NewRequest(http.MethodPut, "/users/user-1/reports/drafts/CVE-2021-44228",
		strings.NewReader(draft)), "user-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, serr := state.Get(clientstate.DraftKey("CVE-2021-44228"))
	require.Nil(t, serr)
	assert.Equal(t, draft, stored)

	// Read back.
	req = asUser(httptest.NewRequest(http.MethodGet, "/users/user-1/reports/drafts/CVE-2021-44228", nil), "user-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "log4shell notes", gjson.Get(rec.Body.String(), "title").String())

	// Delete is idempotent.
	for i := 0; i < 2; i++ {
		req = asUser(httptest.NewRequest(http.MethodDelete, "/users/user-1/reports/drafts/CVE-2021-44228", nil), "user-1")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
