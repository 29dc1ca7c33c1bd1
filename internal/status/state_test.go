package status

import (
	"testing"
	"time"

	"github.com/matheus3301/tele/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Connecting},
		{Booting, Closed},
		{Connecting, Online},
		{Online, Reconnecting},
		{Reconnecting, Online},
		{Online, Closed},
		{Error, Connecting},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Online); err == nil {
		t.Error("Transition(BOOTING -> ONLINE) should fail")
	}
	walkTo(t, m, Closed)
	if err := m.Transition(Connecting); err == nil {
		t.Error("Transition(CLOSED -> CONNECTING) should fail")
	}
}

func TestSameStateRefreshesReason(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Reconnecting)
	if err := m.TransitionWithReason(Reconnecting, "network down"); err != nil {
		t.Fatal(err)
	}
	if m.Reason() != "network down" {
		t.Errorf("Reason() = %q", m.Reason())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("daemon.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.TransitionWithReason(Connecting, "starting"); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		change, ok := evt.Payload.(StatusChange)
		if !ok {
			t.Fatalf("payload type = %T", evt.Payload)
		}
		if change.From != Booting || change.To != Connecting || change.Reason != "starting" {
			t.Errorf("change = %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:      {},
		Connecting:   {Connecting},
		Online:       {Connecting, Online},
		Reconnecting: {Connecting, Online, Reconnecting},
		Closed:       {Closed},
		Error:        {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
