// Package clientstate provides the persistent key-value state the web client
// kept in browser local storage: the access token, the cached auth profile,
// the single active-lab-session marker, and per-CVE report drafts. The store
// is an explicit injectable interface so callers receive it by construction
// and tests can substitute the in-memory implementation.
package clientstate

import (
	"encoding/json"
	"errors"

	"github.com/cvelabhub/labhub/internal/common/apperrors"
)

// Well-known keys. Report drafts use DraftKey(cveID).
const (
	KeyAccessToken   = "access_token"
	KeyAuth          = "auth"
	KeyActiveSession = "active_lab_session"

	draftKeyPrefix = "report_draft:"
)

var (
	ErrStateError  apperrors.Error = apperrors.New("client state error")
	ErrKeyNotFound apperrors.Error = ErrStateError.New("key not found")
)

// Store is the client-state contract: plain get/set/delete over string keys
// plus a wholesale clear for logout.
type Store interface {
	Get(key string) (string, apperrors.Error)
	Set(key string, value string) apperrors.Error
	Delete(key string) apperrors.Error
	Clear() apperrors.Error
}

// ActiveSession is the single active-lab-session marker. At most one is
// stored at a time.
type ActiveSession struct {
	UUID   string `json:"uuid"`
	CVEID  string `json:"cveId"`
	Status string `json:"status"`
}

// AuthProfile is the cached authentication profile.
type AuthProfile struct {
	Email   string            `json:"email"`
	Profile map[string]string `json:"profile,omitempty"`
}

// DraftKey returns the report-draft key for a CVE.
func DraftKey(cveID string) string {
	return draftKeyPrefix + cveID
}

// GetActiveSession reads the active-session marker. A missing marker is
// reported via ErrKeyNotFound.
func GetActiveSession(s Store) (*ActiveSession, apperrors.Error) {
	raw, err := s.Get(KeyActiveSession)
	if err != nil {
		return nil, err
	}
	var marker ActiveSession
	if jerr := json.Unmarshal([]byte(raw), &marker); jerr != nil {
		return nil, ErrStateError.MsgErr("corrupt active session marker", jerr)
	}
	return &marker, nil
}

// SetActiveSession writes the active-session marker, replacing any previous
// one.
func SetActiveSession(s Store, marker ActiveSession) apperrors.Error {
	raw, jerr := json.Marshal(marker)
	if jerr != nil {
		return ErrStateError.MsgErr("unable to encode active session marker", jerr)
	}
	return s.Set(KeyActiveSession, string(raw))
}

// ClearActiveSessionIf removes the marker only when it still refers to the
// given session. This is the read-check-then-clear pattern: best effort, not
// a transaction, but it keeps a navigation guard and a terminate call from
// acting on another session's marker.
func ClearActiveSessionIf(s Store, sessionID string) apperrors.Error {
	marker, err := GetActiveSession(s)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil
		}
		return err
	}
	if marker.UUID != sessionID {
		return nil
	}
	return s.Delete(KeyActiveSession)
}
