package bus

import "time"

// Event kinds published inside the daemon.
const (
	KindStatusChanged      = "daemon.status_changed"
	KindAuthChanged        = "auth.changed"
	KindMediaChanged       = "media.changed"
	KindSearchChanged      = "search.changed"
	KindCollectionsChanged = "collections.changed"
)

// Event represents a state change published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
