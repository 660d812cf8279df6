package session

import (
	"net/http"

	"github.com/cvelabhub/labhub/internal/common/apperrors"
)

var (
	ErrSessionError      apperrors.Error = apperrors.New("session error")
	ErrNotFound          apperrors.Error = ErrSessionError.New("session not found").SetStatusCode(http.StatusNotFound)
	ErrLimitExceeded     apperrors.Error = ErrSessionError.New("maximum session lifetime exceeded").SetStatusCode(http.StatusConflict)
	ErrInvalidTransition apperrors.Error = ErrSessionError.New("illegal session state transition").SetStatusCode(http.StatusConflict)
	ErrNotReady          apperrors.Error = ErrSessionError.New("session is not ready").SetStatusCode(http.StatusConflict)
	ErrInvalidRequest    apperrors.Error = ErrSessionError.New("invalid request").SetStatusCode(http.StatusBadRequest)
	ErrProvisioning      apperrors.Error = ErrSessionError.New("unable to provision lab").SetStatusCode(http.StatusBadGateway)
)
