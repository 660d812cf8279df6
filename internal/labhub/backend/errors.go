package backend

import (
	"context"
	"errors"

	"github.com/cvelabhub/labhub/internal/common/httpx"
)

// HTTPError maps a client failure to the gateway's JSON error envelope.
// Upstream errors mirror the upstream status and carry the body as detail;
// transport failures and cancellations become a 500 with the cause as
// detail. Errors already shaped for the envelope pass through.
func HTTPError(err error) error {
	if err == nil {
		return nil
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		return httpx.ErrUpstream(ue.StatusCode, ue.Body)
	}

	var te *TransportError
	if errors.As(err, &te) {
		return httpx.ErrTransport(te.Err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return httpx.ErrRequestTimeout()
	}

	var he *httpx.Error
	if errors.As(err, &he) {
		return he
	}

	return httpx.ErrTransport(err)
}
