// Package session implements the lab session lifecycle gateway. A session
// is a time-boxed VM allocation tied to one CVE exercise. The gateway
// enforces the legal operation sequence (creating -> ready -> terminated)
// and the TTL cap on the client-facing side even though the VM authority
// lives in the upstream backend.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a lab session.
type Status string

const (
	StatusCreating   Status = "creating"
	StatusReady      Status = "ready"
	StatusTerminated Status = "terminated"
)

// transitions is the legal state transition table. Terminated is terminal.
var transitions = map[Status][]Status{
	StatusCreating: {StatusReady, StatusTerminated},
	StatusReady:    {StatusTerminated},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether the status is one of the known states.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusCreating, StatusReady, StatusTerminated:
		return true
	}
	return false
}

// Session represents one lab session as tracked by the gateway.
type Session struct {
	ID           uuid.UUID `json:"uuid"`
	UserID       string    `json:"userId"`
	CVEID        string    `json:"cveId"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TerminatedAt time.Time `json:"terminatedAt,omitempty"`
}

// Eligibility is the derived read-only view of whether an extend operation
// is currently permitted.
type Eligibility struct {
	Extendable       bool `json:"extendable"`
	RemainingMinutes int  `json:"remainingMinutes"`
	MaxTotalMinutes  int  `json:"maxTotalMinutes"`
	IncrementMinutes int  `json:"incrementMinutes"`
}

// ExtendRsp is the response to a successful extend operation.
type ExtendRsp struct {
	NewExpiry       time.Time `json:"newExpiry"`
	ExtendedMinutes int       `json:"extendedMinutes"`
}

// TerminateRsp is the response to a successful terminate operation.
type TerminateRsp struct {
	Terminated   bool      `json:"terminated"`
	TerminatedAt time.Time `json:"terminatedAt"`
}

// StartReq is the request to start a new lab session.
type StartReq struct {
	CVEID string `json:"cveId" validate:"required"`
}

// StartRsp is the response to a successful session start.
type StartRsp struct {
	UUID      uuid.UUID `json:"uuid"`
	CVEID     string    `json:"cveId"`
	Status    Status    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}
