package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/tele/internal/bus"
)

// State is the runtime state of the daemon's remote connection.
type State string

const (
	Booting      State = "BOOTING"
	Connecting   State = "CONNECTING"
	Online       State = "ONLINE"
	Reconnecting State = "RECONNECTING"
	Closed       State = "CLOSED"
	Error        State = "ERROR"
)

var validTransitions = map[State][]State{
	Booting:      {Connecting, Closed, Error},
	Connecting:   {Online, Reconnecting, Closed, Error},
	Online:       {Reconnecting, Closed, Error},
	Reconnecting: {Online, Connecting, Closed, Error},
	Error:        {Booting, Connecting, Closed},
	Closed:       {},
}

// Machine tracks the daemon connection state and rejects illegal moves.
type Machine struct {
	mu      sync.RWMutex
	current State
	reason  string
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reason returns the message attached to the last transition, if any.
func (m *Machine) Reason() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reason
}

// Transition attempts to move to a new state.
func (m *Machine) Transition(to State) error {
	return m.TransitionWithReason(to, "")
}

// TransitionWithReason moves to a new state and records why. Moving to the
// current state only refreshes the reason.
func (m *Machine) TransitionWithReason(to State, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.current
	if from != to && !slices.Contains(validTransitions[from], to) {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	m.current = to
	m.reason = reason
	m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to, Reason: reason})
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From   State
	To     State
	Reason string
}
