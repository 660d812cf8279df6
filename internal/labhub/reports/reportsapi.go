package reports

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/rs/zerolog/log"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	"github.com/cvelabhub/labhub/internal/labhub/auth"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
	"github.com/cvelabhub/labhub/internal/labhub/clientstate"
)

// maxReportSize bounds an uploaded report file.
const maxReportSize = 10 << 20 // 10 MiB

// allowedReportTypes are the archive and document types the backend store
// accepts. Text files carry no magic number and are allowed separately.
var allowedReportTypes = map[string]bool{
	"pdf":  true,
	"zip":  true,
	"png":  true,
	"jpg":  true,
	"docx": true,
}

// userID resolves the path user id, restricting non-admin callers to their
// own reports.
func (api *reportsAPI) userID(r *http.Request) (string, error) {
	pathUser := chi.URLParam(r, "userID")
	if pathUser == "" {
		return "", httpx.ErrInvalidRequest("user id is required")
	}
	if pathUser != auth.UserIDFromContext(r.Context()) && !auth.IsAdmin(r.Context()) {
		return "", httpx.ErrForbidden("cannot access another user's reports")
	}
	return pathUser, nil
}

// list relays the report listing for the user.
func (api *reportsAPI) list(r *http.Request) (*httpx.Response, error) {
	userID, err := api.userID(r)
	if err != nil {
		return nil, err
	}
	rsp, berr := api.client.Get(r.Context(), "/api/v1/users/"+userID+"/reports", nil,
		auth.TokenFromContext(r.Context()))
	if berr != nil {
		return nil, backend.HTTPError(berr)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

// downloadURL relays the short-lived download URL for one report. An
// upstream 404 is reported as a local 404 with a stable message.
func (api *reportsAPI) downloadURL(r *http.Request) (*httpx.Response, error) {
	userID, err := api.userID(r)
	if err != nil {
		return nil, err
	}
	reportID := chi.URLParam(r, "reportID")
	rsp, berr := api.client.Get(r.Context(),
		"/api/v1/users/"+userID+"/reports/"+reportID+"/download", nil,
		auth.TokenFromContext(r.Context()))
	if berr != nil {
		if backend.IsUpstreamNotFound(berr) {
			return nil, httpx.ErrNotFound("Report not found")
		}
		return nil, backend.HTTPError(berr)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

// deleteReport relays the delete.
func (api *reportsAPI) deleteReport(r *http.Request) (*httpx.Response, error) {
	userID, err := api.userID(r)
	if err != nil {
		return nil, err
	}
	reportID := chi.URLParam(r, "reportID")
	rsp, berr := api.client.Delete(r.Context(),
		"/api/v1/users/"+userID+"/reports/"+reportID,
		auth.TokenFromContext(r.Context()))
	if berr != nil {
		if backend.IsUpstreamNotFound(berr) {
			return nil, httpx.ErrNotFound("Report not found")
		}
		return nil, backend.HTTPError(berr)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

// upload accepts a multipart report file, verifies its content type from
// the magic number rather than the client-supplied header, and forwards it
// to the backend store.
func (api *reportsAPI) upload(r *http.Request) (*httpx.Response, error) {
	userID, err := api.userID(r)
	if err != nil {
		return nil, err
	}

	if err := r.ParseMultipartForm(maxReportSize); err != nil {
		return nil, httpx.ErrInvalidRequest("unable to parse upload")
	}
	file, header, ferr := r.FormFile("file")
	if ferr != nil {
		return nil, httpx.ErrMissingParams("file")
	}
	defer file.Close()

	data, rerr := io.ReadAll(io.LimitReader(file, maxReportSize+1))
	if rerr != nil {
		return nil, httpx.ErrInvalidRequest("unable to read upload")
	}
	if len(data) > maxReportSize {
		return nil, httpx.ErrInvalidRequest("report file exceeds the 10 MiB limit")
	}
	if len(data) == 0 {
		return nil, httpx.ErrInvalidRequest("report file is empty")
	}

	kind, contentType := sniffReportType(data)
	if !allowedReportTypes[kind] && contentType != "text/plain" {
		return nil, httpx.ErrInvalidRequest("unsupported report file type: " + kind)
	}

	rsp, _, berr := api.client.DoRequest(r.Context(), backend.RequestOptions{
		Method:      http.MethodPost,
		Path:        "/api/v1/users/" + userID + "/reports",
		QueryParams: map[string]string{"filename": header.Filename},
		Body:        data,
		BearerToken: auth.TokenFromContext(r.Context()),
		ContentType: contentType,
	})
	if berr != nil {
		return nil, backend.HTTPError(berr)
	}

	log.Ctx(r.Context()).Info().
		Str("user_id", userID).
		Str("filename", header.Filename).
		Int("size", len(data)).
		Msg("report uploaded")

	return &httpx.Response{StatusCode: http.StatusCreated, Response: rsp}, nil
}

// sniffReportType classifies the upload by magic number. Files with no
// recognizable signature are treated as plain text, which covers the
// markdown write-ups most users submit.
func sniffReportType(data []byte) (extension, contentType string) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return "", "text/plain"
	}
	return kind.Extension, kind.MIME.Value
}

// getDraft returns the locally stored draft for a CVE.
func (api *reportsAPI) getDraft(r *http.Request) (*httpx.Response, error) {
	if _, err := api.userID(r); err != nil {
		return nil, err
	}
	cveID := chi.URLParam(r, "cveID")
	draft, serr := api.state.Get(clientstate.DraftKey(cveID))
	if serr != nil {
		if errors.Is(serr, clientstate.ErrKeyNotFound) {
			return nil, httpx.ErrNotFound("no draft for " + cveID)
		}
		return nil, serr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: draft}, nil
}

// putDraft stores a draft, replacing any previous one for the CVE.
func (api *reportsAPI) putDraft(r *http.Request) (*httpx.Response, error) {
	if _, err := api.userID(r); err != nil {
		return nil, err
	}
	cveID := chi.URLParam(r, "cveID")
	body, rerr := io.ReadAll(r.Body)
	if rerr != nil || len(body) == 0 {
		return nil, httpx.ErrInvalidRequest("draft body is required")
	}
	if serr := api.state.Set(clientstate.DraftKey(cveID), string(body)); serr != nil {
		return nil, serr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]string{"status": "saved", "cveId": cveID},
	}, nil
}

// deleteDraft removes the draft. Deleting a missing draft succeeds: the
// caller's intent is already satisfied.
func (api *reportsAPI) deleteDraft(r *http.Request) (*httpx.Response, error) {
	if _, err := api.userID(r); err != nil {
		return nil, err
	}
	cveID := chi.URLParam(r, "cveID")
	if serr := api.state.Delete(clientstate.DraftKey(cveID)); serr != nil &&
		!errors.Is(serr, clientstate.ErrKeyNotFound) {
		return nil, serr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]string{"status": "deleted", "cveId": cveID},
	}, nil
}
