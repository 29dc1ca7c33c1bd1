// Package collections lists named collections worth browsing, such as chats
// with an active voice or video call.
package collections

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/bus"
	"github.com/matheus3301/tele/internal/logging"
	"github.com/matheus3301/tele/internal/metrics"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
)

const DefaultLimit = 40

// Client is the part of the remote adapter the indexer needs.
type Client interface {
	Send(req remote.Request, done remote.Callback) *remote.Call
	Do(ctx context.Context, req remote.Request) (remote.Response, error)
}

// Gate reports whether listing is permitted.
type Gate interface {
	Authorized() bool
}

// State is the published sidebar state. Candidates starts with the
// personal store once loaded.
type State struct {
	Candidates []model.CollectionRef `json:"candidates"`
	Loading    bool                  `json:"loading"`
	Error      string                `json:"error,omitempty"`
}

// Indexer lists candidate collections.
type Indexer struct {
	client  Client
	gate    Gate
	limit   int
	bus     *bus.Bus
	metrics *metrics.Metrics
	log     *zap.Logger

	mu    sync.Mutex
	state State
	gen   uint64
}

// NewIndexer creates an indexer listing up to limit candidates.
func NewIndexer(client Client, gate Gate, limit int, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *Indexer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Indexer{
		client:  client,
		gate:    gate,
		limit:   limit,
		bus:     b,
		metrics: m,
		log:     logging.OrNop(logger).Named("collections"),
	}
}

// List returns named collections with recent call activity in remote order.
func (x *Indexer) List(ctx context.Context, limit int) ([]model.CollectionRef, error) {
	if x.gate != nil && !x.gate.Authorized() {
		return nil, model.ErrNotAuthorized
	}
	if limit <= 0 {
		limit = x.limit
	}
	list, err := remote.As[remote.CollectionList](x.client.Do(ctx, remote.ListCollections{Limit: limit}))
	if err != nil {
		return nil, err
	}
	return list.Collections, nil
}

// Snapshot returns the current sidebar state.
func (x *Indexer) Snapshot() State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// LoadIfNeeded refreshes the sidebar unless it is loading or populated.
func (x *Indexer) LoadIfNeeded() error {
	st := x.Snapshot()
	if st.Loading || len(st.Candidates) > 0 {
		return nil
	}
	return x.Refresh()
}

// Refresh reloads the sidebar in the background.
func (x *Indexer) Refresh() error {
	if x.gate != nil && !x.gate.Authorized() {
		return model.ErrNotAuthorized
	}
	x.mu.Lock()
	x.gen++
	gen := x.gen
	next := x.state
	next.Loading = true
	next.Error = ""
	x.setLocked(next)
	x.mu.Unlock()

	x.client.Send(remote.ListCollections{Limit: x.limit}, func(resp remote.Response, err error) {
		list, err := remote.As[remote.CollectionList](resp, err)

		x.mu.Lock()
		defer x.mu.Unlock()
		if gen != x.gen {
			x.metrics.Stale("collections")
			return
		}
		next := x.state
		next.Loading = false
		if err != nil {
			next.Error = remote.Message(err)
			x.log.Warn("list collections failed", zap.Error(err))
		} else {
			next.Candidates = append([]model.CollectionRef{model.PersonalStore()}, list.Collections...)
			x.log.Debug("collections listed", zap.Int("count", len(list.Collections)))
		}
		x.setLocked(next)
	})
	return nil
}

func (x *Indexer) setLocked(next State) {
	x.state = next
	x.bus.Emit(bus.KindCollectionsChanged, next)
}
