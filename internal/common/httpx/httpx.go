// Package httpx provides HTTP request/response handling for the LabHub
// gateway. Handlers return a *Response or an error; the wrapper converts
// either into a JSON reply so no handler writes to the transport directly
// and no error escapes to the HTTP server.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cvelabhub/labhub/internal/common/apperrors"
)

// GetRequestData parses a JSON request body into the provided data structure.
// Only POST and PUT carry bodies in the LabHub API.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrMethodNotSupported()
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseRequest()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseRequest()
	}
	return nil
}

// Response represents a successful handler result.
type Response struct {
	StatusCode  int
	Location    string
	Response    any
	ContentType string
}

// RequestHandler is the signature of all LabHub route handlers.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHandler converts a RequestHandler into an http.HandlerFunc with
// standardized error mapping. Every error becomes a JSON envelope; nothing
// propagates past this boundary.
func WrapHandler(handler RequestHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			SendError(r.Context(), w, err)
			return
		}
		if rsp == nil {
			ErrInternal().Send(w)
			return
		}
		if rsp.ContentType == "" {
			rsp.ContentType = "application/json"
		}
		switch rsp.ContentType {
		case "application/json":
			var location []string
			if rsp.Location != "" {
				location = append(location, rsp.Location)
			}
			SendJSONRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
		case "text/plain":
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(rsp.StatusCode)
			w.Write([]byte(rsp.Response.(string)))
		default:
			ErrInternal("unsupported response type").Send(w)
		}
	}
}

// SendError maps any error to the JSON error envelope. *Error values are
// sent as-is, apperrors carry their own status codes, and anything else
// becomes a generic 500.
func SendError(ctx context.Context, w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *Error:
		e.Send(w)
	case apperrors.Error:
		statusCode := e.StatusCode()
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		httperror := &Error{
			StatusCode: statusCode,
			Message:    e.Error(),
		}
		if all := e.ErrorAll(); all != e.Error() {
			httperror.Detail = all
		}
		httperror.Send(w)
	default:
		log.Ctx(ctx).Error().Err(err).Msg("unclassified handler error")
		ErrInternal("Internal server error").WithDetail(err.Error()).Send(w)
	}
}

// SendJSONRsp sends a JSON response with the given status code. Handles both
// pre-marshaled JSON and structs. If location is provided and status code is
// 201, the Location header is set.
func SendJSONRsp(ctx context.Context, w http.ResponseWriter, statusCode int, msg any, location ...string) {
	var msgJSON []byte
	switch v := msg.(type) {
	case []byte:
		if json.Valid(v) {
			msgJSON = v
		}
	case string:
		b := []byte(v)
		if json.Valid(b) {
			msgJSON = b
		}
	}
	if msgJSON == nil {
		var err error
		msgJSON, err = json.Marshal(msg)
		if err != nil {
			log.Ctx(ctx).Err(err).Msg("unable to marshal json")
			ErrInternal().Send(w)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if statusCode == http.StatusCreated && len(location) > 0 {
		w.Header().Set("Location", location[0])
	}
	w.WriteHeader(statusCode)
	w.Write(msgJSON)
}
