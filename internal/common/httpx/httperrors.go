package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Error represents an HTTP error response. It serializes to the uniform
// LabHub envelope {"status":"error","message":...,"detail":...}.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
}

type errorRsp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Send writes the error envelope to the provided ResponseWriter.
// If the writer is nil, no action is taken.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rsp := &errorRsp{
		Status:  "error",
		Message: e.Message,
		Detail:  e.Detail,
	}
	rspJSON, err := json.Marshal(rsp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("unable to encode error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(rspJSON)
}

// Error returns the error message.
func (e *Error) Error() string {
	return e.Message
}

// WithDetail returns a copy carrying diagnostic detail.
func (e *Error) WithDetail(detail string) *Error {
	cp := *e
	cp.Detail = detail
	return &cp
}

// Common errors

// ErrMissingParams returns a 400 whose message enumerates the missing
// required query parameters.
func ErrMissingParams(params ...string) *Error {
	return &Error{
		Message:    "missing required parameters: " + strings.Join(params, ", "),
		StatusCode: http.StatusBadRequest,
	}
}

// ErrInvalidRequest returns an error for invalid request data.
func ErrInvalidRequest(msg ...string) *Error {
	s := "invalid request data or empty request values"
	if len(msg) > 0 {
		s = msg[0]
	}
	return &Error{
		Message:    s,
		StatusCode: http.StatusBadRequest,
	}
}

// ErrNotConfigured returns a 500 for a missing upstream configuration.
// The request must fail before any network call is attempted.
func ErrNotConfigured(what string) *Error {
	return &Error{
		Message:    what + " is not configured",
		StatusCode: http.StatusInternalServerError,
	}
}

// ErrUpstream mirrors a non-2xx upstream status and attaches the upstream
// response body as diagnostic detail.
func ErrUpstream(statusCode int, body string) *Error {
	if statusCode < 400 {
		statusCode = http.StatusBadGateway
	}
	return &Error{
		Message:    "upstream request failed",
		Detail:     body,
		StatusCode: statusCode,
	}
}

// ErrTransport returns a 500 for a network-level failure reaching an
// upstream service.
func ErrTransport(err error) *Error {
	e := &Error{
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// ErrNotFound returns a 404 with the given message.
func ErrNotFound(msg string) *Error {
	return &Error{
		Message:    msg,
		StatusCode: http.StatusNotFound,
	}
}

// ErrUnauthorized returns an error for unauthenticated requests.
func ErrUnauthorized(msg ...string) *Error {
	s := "unable to authenticate request"
	if len(msg) > 0 {
		s = msg[0]
	}
	return &Error{
		Message:    s,
		StatusCode: http.StatusUnauthorized,
	}
}

// ErrForbidden returns an error for authenticated but unauthorized requests.
func ErrForbidden(msg ...string) *Error {
	s := "access denied"
	if len(msg) > 0 {
		s = msg[0]
	}
	return &Error{
		Message:    s,
		StatusCode: http.StatusForbidden,
	}
}

// ErrMethodNotSupported returns an error for unsupported HTTP methods.
func ErrMethodNotSupported() *Error {
	return &Error{
		Message:    "request method not supported",
		StatusCode: http.StatusMethodNotAllowed,
	}
}

// ErrUnableToParseRequest returns an error when request data cannot be parsed.
func ErrUnableToParseRequest() *Error {
	return &Error{
		Message:    "unable to parse request data",
		StatusCode: http.StatusBadRequest,
	}
}

// ErrInternal returns an error for application-level failures.
func ErrInternal(msg ...string) *Error {
	s := "unable to process request"
	if len(msg) > 0 {
		s = msg[0]
	}
	return &Error{
		Message:    s,
		StatusCode: http.StatusInternalServerError,
	}
}

// ErrRequestTimeout returns an error for request timeout.
func ErrRequestTimeout() *Error {
	return &Error{
		Message:    "request timed out",
		StatusCode: http.StatusRequestTimeout,
	}
}
