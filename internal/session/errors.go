package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/identity"
)

// Local rejections. None of these reach the network.
var (
	ErrNoAnswer      = errors.New("no answer selected")
	ErrBusy          = errors.New("a request is already in progress")
	ErrStaleDelivery = errors.New("question is no longer current")
	ErrSessionActive = errors.New("a session is already in progress")
	ErrSessionEnding = errors.New("session goal reached")
	ErrStaleResult   = errors.New("result belongs to a session that is no longer active")
)

// ValidationError reports a missing or invalid wizard selection.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// SessionMissingError reports an operation attempted without an active
// session id.
type SessionMissingError struct {
	Op string
}

func (e *SessionMissingError) Error() string {
	return fmt.Sprintf("%s: no active session", e.Op)
}

// Kind classifies an error for the UI.
type Kind int

const (
	KindNone Kind = iota
	KindAuth
	KindValidation
	KindSessionMissing
	KindNetwork
	KindBackend
	KindMalformed
	KindRejected // local rejection or stale result
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindSessionMissing:
		return "session-missing"
	case KindNetwork:
		return "network"
	case KindBackend:
		return "backend"
	case KindMalformed:
		return "malformed"
	case KindRejected:
		return "rejected"
	}
	return "unknown"
}

// Recoverable reports whether the user can retry or correct the action.
// Auth and malformed-response errors are fatal for the action.
func (k Kind) Recoverable() bool {
	switch k {
	case KindAuth, KindMalformed, KindUnknown:
		return false
	}
	return true
}

// Classify returns the Kind of err.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var authErr *identity.AuthError
	var valErr *ValidationError
	var missErr *SessionMissingError
	var netErr *backend.NetworkError
	var backErr *backend.BackendError
	var malErr *backend.MalformedResponseError

	switch {
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &missErr):
		return KindSessionMissing
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindNetwork
	case errors.As(err, &backErr):
		return KindBackend
	case errors.As(err, &malErr):
		return KindMalformed
	case errors.Is(err, ErrNoAnswer),
		errors.Is(err, ErrBusy),
		errors.Is(err, ErrStaleDelivery),
		errors.Is(err, ErrSessionActive),
		errors.Is(err, ErrSessionEnding),
		errors.Is(err, ErrStaleResult):
		return KindRejected
	}
	return KindUnknown
}

// Message returns the text shown to the user for err.
func Message(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindAuth:
		return "Please sign in to continue."
	case KindValidation:
		var valErr *ValidationError
		errors.As(err, &valErr)
		return valErr.Message
	case KindSessionMissing:
		return "No active session. Start a new practice session."
	case KindNetwork:
		return "Network problem. Check your connection and try again."
	case KindBackend:
		var backErr *backend.BackendError
		errors.As(err, &backErr)
		return backErr.Message
	case KindRejected:
		return err.Error()
	}
	return "Something went wrong. Please try again."
}
