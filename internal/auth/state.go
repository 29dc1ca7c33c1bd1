package auth

import "github.com/matheus3301/tele/internal/remote"

// State is the authorization step presented to the user.
type State string

const (
	Uninitialized        State = "UNINITIALIZED"
	AwaitingCredentials  State = "AWAITING_CREDENTIALS"
	AwaitingPhone        State = "AWAITING_PHONE"
	AwaitingCode         State = "AWAITING_CODE"
	AwaitingSecondFactor State = "AWAITING_SECOND_FACTOR"
	Authorized           State = "AUTHORIZED"
	LoggingOut           State = "LOGGING_OUT"
	Closing              State = "CLOSING"
	Closed               State = "CLOSED"
)

// Messages shown alongside a state.
const (
	MsgEnterCredentials = "Enter your Telegram API ID and Hash"
	MsgLoggingOut       = "Logging out…"
	MsgClosing          = "Closing session…"
	MsgClosed           = "Session closed"
	MsgInvalidAPIID     = "Enter a valid API ID"
	MsgInvalidAPIHash   = "Enter a valid API Hash"
	MsgEnterPhone       = "Enter your phone number"
	MsgEnterCode        = "Enter the code from Telegram"
	MsgEnterPassword    = "Enter your 2FA password"
)

// Snapshot is the published, immutable view of the machine.
type Snapshot struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
	Pending bool   `json:"pending"`
	// APIID pre-fills the credentials form.
	APIID string `json:"api_id,omitempty"`
}

// ReadOnly reports whether the state accepts no input except a fresh query.
func (s State) ReadOnly() bool {
	switch s {
	case LoggingOut, Closing, Closed:
		return true
	}
	return false
}

// fromRemote maps a backend state to the presented step. WaitParameters has
// no direct counterpart; it is resolved by supplying credentials.
func fromRemote(s remote.AuthState) (State, bool) {
	switch s {
	case remote.StateWaitPhone:
		return AwaitingPhone, true
	case remote.StateWaitCode:
		return AwaitingCode, true
	case remote.StateWaitPassword:
		return AwaitingSecondFactor, true
	case remote.StateReady:
		return Authorized, true
	case remote.StateLoggingOut:
		return LoggingOut, true
	case remote.StateClosing:
		return Closing, true
	case remote.StateClosed:
		return Closed, true
	}
	return "", false
}
