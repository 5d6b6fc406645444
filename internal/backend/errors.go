package backend

import (
	"encoding/json"
	"fmt"
)

// NetworkError indicates a transport failure or timeout. State is unchanged
// and the call may be retried.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BackendError carries an error reported by the backend. Message is shown to
// the user verbatim.
type BackendError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// MalformedResponseError indicates a response whose shape does not match the
// protocol. It is fatal for the call that produced it.
type MalformedResponseError struct {
	Endpoint string
	Body     json.RawMessage
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
