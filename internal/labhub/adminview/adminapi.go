package adminview

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	"github.com/cvelabhub/labhub/internal/labhub/auth"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// listLabs relays the paginated lab listing. Page parameters default rather
// than error: the dashboard polls this endpoint.
func (api *adminAPI) listLabs(r *http.Request) (*httpx.Response, error) {
	q := r.URL.Query()
	page := intParam(q.Get("page"), defaultPage)
	pageSize := intParam(q.Get("pageSize"), defaultPageSize)

	rsp, err := api.client.AdminLabs(r.Context(), auth.TokenFromContext(r.Context()),
		page, pageSize, q.Get("status"))
	if err != nil {
		return nil, backend.HTTPError(err)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

// getLab relays a single lab's detail view.
func (api *adminAPI) getLab(r *http.Request) (*httpx.Response, error) {
	labID := chi.URLParam(r, "labID")
	rsp, err := api.client.Get(r.Context(), "/api/v1/admin/labs/"+labID, nil,
		auth.TokenFromContext(r.Context()))
	if err != nil {
		return nil, backend.HTTPError(err)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

// labMetricsRsp is the reshaped metrics document the dashboard renders: the
// raw series plus a per-series summary.
type labMetricsRsp struct {
	Range   string             `json:"range"`
	Series  []Series           `json:"series"`
	Summary map[string]Summary `json:"summary"`
}

// labMetrics fetches the raw series for the requested range and attaches
// the dashboard aggregates.
func (api *adminAPI) labMetrics(r *http.Request) (*httpx.Response, error) {
	rangeToken := r.URL.Query().Get("range")
	if rangeToken == "" {
		rangeToken = DefaultRange
	}
	if !IsValidRange(rangeToken) {
		return nil, httpx.ErrInvalidRequest("invalid range: " + rangeToken)
	}

	labID := chi.URLParam(r, "labID")
	raw, err := api.client.LabMetrics(r.Context(), auth.TokenFromContext(r.Context()),
		labID, rangeToken)
	if err != nil {
		return nil, backend.HTTPError(err)
	}

	series := ParseSeries(raw)
	summary := make(map[string]Summary, len(series))
	for _, s := range series {
		summary[s.Name] = SummarizeSeries(s)
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &labMetricsRsp{
			Range:   rangeToken,
			Series:  series,
			Summary: summary,
		},
	}, nil
}

// labLogs relays the console log streams.
func (api *adminAPI) labLogs(r *http.Request) (*httpx.Response, error) {
	labID := chi.URLParam(r, "labID")
	rsp, err := api.client.LabLogs(r.Context(), auth.TokenFromContext(r.Context()), labID)
	if err != nil {
		return nil, backend.HTTPError(err)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

// terminateLab force-terminates a lab from the admin dashboard.
func (api *adminAPI) terminateLab(r *http.Request) (*httpx.Response, error) {
	labID := chi.URLParam(r, "labID")
	rsp, err := api.client.TerminateLab(r.Context(), auth.TokenFromContext(r.Context()), labID)
	if err != nil {
		return nil, backend.HTTPError(err)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func intParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
