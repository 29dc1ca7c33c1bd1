package remote

// AuthState is the backend's own authorization state.
type AuthState string

const (
	StateWaitParameters AuthState = "WAIT_PARAMETERS"
	StateWaitPhone      AuthState = "WAIT_PHONE"
	StateWaitCode       AuthState = "WAIT_CODE"
	StateWaitPassword   AuthState = "WAIT_PASSWORD"
	StateReady          AuthState = "READY"
	StateLoggingOut     AuthState = "LOGGING_OUT"
	StateClosing        AuthState = "CLOSING"
	StateClosed         AuthState = "CLOSED"
)

// ConnState is the backend's connection state.
type ConnState string

const (
	ConnConnecting ConnState = "CONNECTING"
	ConnOnline     ConnState = "ONLINE"
)

// Notification is an unsolicited event pushed by the backend.
type Notification interface {
	isNotification()
}

// AuthStateChanged reports a new authorization state.
type AuthStateChanged struct {
	State AuthState
}

// ConnectionChanged reports a connection state change.
type ConnectionChanged struct {
	State ConnState
}

func (AuthStateChanged) isNotification()  {}
func (ConnectionChanged) isNotification() {}
