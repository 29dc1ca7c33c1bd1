package api

import (
	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/collections"
	"github.com/matheus3301/tele/internal/media"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/search"
	"github.com/matheus3301/tele/internal/status"
)

// StatusReply describes the daemon and its remote session.
type StatusReply struct {
	Session    string        `json:"session"`
	PID        int           `json:"pid"`
	Connection status.State  `json:"connection"`
	Reason     string        `json:"reason,omitempty"`
	Auth       auth.Snapshot `json:"auth"`
	UptimeMs   int64         `json:"uptime_ms"`
}

type CredentialsRequest struct {
	APIID   string `json:"api_id"`
	APIHash string `json:"api_hash"`
}

type PhoneRequest struct {
	Phone string `json:"phone"`
}

type CodeRequest struct {
	Code string `json:"code"`
}

type PasswordRequest struct {
	Password string `json:"password"`
}

// LoadRequest selects the collection to browse.
type LoadRequest struct {
	Collection model.CollectionRef `json:"collection"`
}

// ItemRequest addresses one item. CollectionID is ignored by Focus and
// ResolveLink, which only look at the browsed collection.
type ItemRequest struct {
	CollectionID int64 `json:"collection_id"`
	ItemID       int64 `json:"item_id"`
}

type LinkReply struct {
	URL string `json:"url"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SelectRequest struct {
	Result model.SearchResult `json:"result"`
}

// FlagReply carries the value of a consumed one-shot flag.
type FlagReply struct {
	Value bool `json:"value"`
}

// Watch topics.
const (
	TopicStatus     = "status"
	TopicAuth       = "auth"
	TopicMedia      = "media"
	TopicSearch     = "search"
	TopicCandidates = "candidates"
)

// AllTopics lists every watch topic.
var AllTopics = []string{TopicStatus, TopicAuth, TopicMedia, TopicSearch, TopicCandidates}

// WatchRequest filters the watch stream. No topics means all of them.
type WatchRequest struct {
	Topics []string `json:"topics,omitempty"`
}

// Envelope is one watch stream message. Exactly one snapshot is set,
// matching Topic.
type Envelope struct {
	ID         string             `json:"id"`
	Topic      string             `json:"topic"`
	AtUnixMs   int64              `json:"at_unix_ms"`
	Status     *StatusReply       `json:"status,omitempty"`
	Auth       *auth.Snapshot     `json:"auth,omitempty"`
	Media      *media.State       `json:"media,omitempty"`
	Search     *search.Snapshot   `json:"search,omitempty"`
	Candidates *collections.State `json:"candidates,omitempty"`
}
