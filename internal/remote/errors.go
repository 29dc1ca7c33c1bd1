package remote

import (
	"errors"
	"fmt"
)

// ErrClientClosed is returned for requests sent after the client closed,
// and for requests still queued or in flight when it closed.
var ErrClientClosed = errors.New("remote client closed")

// Error is an explicit error answer from the remote service.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// TransportError wraps a lower-level failure such as lost connectivity.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DefaultMessage is shown when a failure carries no message of its own.
const DefaultMessage = "Telegram error"

// Message returns the user-facing text of err.
func Message(err error) string {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		if remoteErr.Message == "" {
			return DefaultMessage
		}
		return remoteErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Err != nil && transportErr.Err.Error() != "" {
		return transportErr.Err.Error()
	}
	if err == nil || err.Error() == "" {
		return DefaultMessage
	}
	return err.Error()
}
