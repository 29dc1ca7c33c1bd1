// Package media pages through the personal store or a named collection.
//
// Every fetch is tagged with the generation and collection it was issued
// for. Responses whose tag no longer matches are discarded when applied.
package media

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/matheus3301/tele/internal/bus"
	"github.com/matheus3301/tele/internal/logging"
	"github.com/matheus3301/tele/internal/metrics"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
)

const (
	DefaultPageSize   = 30
	DefaultRetryDelay = 1500 * time.Millisecond
	pathCacheSize     = 512
	thumbnailTimeout  = time.Minute
)

// Client is the part of the remote adapter the engine needs.
type Client interface {
	Send(req remote.Request, done remote.Callback) *remote.Call
	Do(ctx context.Context, req remote.Request) (remote.Response, error)
}

// Gate reports whether media operations are permitted.
type Gate interface {
	Authorized() bool
}

// Options tunes paging and thumbnail retry.
type Options struct {
	PageSize   int
	RetryDelay time.Duration
}

type fetchTag struct {
	gen        uint64
	collection model.CollectionRef
}

// Engine is the paged media retrieval engine.
type Engine struct {
	client  Client
	gate    Gate
	bus     *bus.Bus
	metrics *metrics.Metrics
	log     *zap.Logger
	opts    Options
	flights singleflight.Group
	paths   *lru.Cache[string, string]

	mu      sync.Mutex
	state   State
	gen     uint64
	timers  map[*time.Timer]struct{}
	stopped bool
}

// NewEngine creates an idle engine.
func NewEngine(client Client, gate Gate, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger, opts Options) *Engine {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	paths, _ := lru.New[string, string](pathCacheSize)
	return &Engine{
		client:  client,
		gate:    gate,
		bus:     b,
		metrics: m,
		log:     logging.OrNop(logger).Named("media"),
		opts:    opts,
		paths:   paths,
		state:   State{Cursor: model.CursorStart, HasMore: true},
		timers:  make(map[*time.Timer]struct{}),
	}
}

// Snapshot returns the current published state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Item returns the held item with the given id.
func (e *Engine) Item(itemID int64) (model.MediaItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.state.Find(itemID); i >= 0 {
		return e.state.Items[i], true
	}
	return model.MediaItem{}, false
}

// LoadFresh starts over at the first page of ref. Switching collections
// clears the held items; refreshing the same collection keeps them until
// the first page arrives. A refresh of a collection that is already loading
// with items held is a no-op.
func (e *Engine) LoadFresh(ref model.CollectionRef) error {
	if !e.authorized() {
		return model.ErrNotAuthorized
	}

	e.mu.Lock()
	cur := e.state
	same := cur.Active && cur.Collection.Same(ref)
	if same && cur.Loading && len(cur.Items) > 0 {
		e.mu.Unlock()
		return nil
	}
	e.gen++
	tag := fetchTag{gen: e.gen, collection: ref}
	next := cur
	if !same {
		next.Items = nil
	}
	next.Active = true
	next.Collection = ref
	next.Cursor = model.CursorStart
	next.HasMore = true
	next.Loading = true
	next.LoadingMore = false
	next.Error = ""
	e.setLocked(next)
	e.mu.Unlock()

	e.log.Debug("load fresh",
		zap.Int64("collection_id", ref.ID),
		zap.Bool("personal", ref.IsPersonalStore),
		zap.Uint64("generation", tag.gen))
	e.fetch(tag, model.CursorStart, true)
	return nil
}

// LoadIfNeeded loads the personal store unless something is loading or
// already displayed.
func (e *Engine) LoadIfNeeded() error {
	st := e.Snapshot()
	if st.Loading || len(st.Items) > 0 {
		return nil
	}
	return e.LoadFresh(model.PersonalStore())
}

// LoadMore requests the page after the stored cursor. It does nothing while
// a load is running, when no more pages exist or when nothing is held yet.
func (e *Engine) LoadMore() error {
	if !e.authorized() {
		return model.ErrNotAuthorized
	}

	e.mu.Lock()
	cur := e.state
	if !cur.Active || cur.Loading || cur.LoadingMore || !cur.HasMore || len(cur.Items) == 0 {
		e.mu.Unlock()
		return nil
	}
	tag := fetchTag{gen: e.gen, collection: cur.Collection}
	from := cur.Cursor
	cur.LoadingMore = true
	e.setLocked(cur)
	e.mu.Unlock()

	e.fetch(tag, from, false)
	return nil
}

func (e *Engine) fetch(tag fetchTag, from model.Cursor, fresh bool) {
	req := remote.GetHistory{Collection: tag.collection, From: from, Limit: e.opts.PageSize}
	e.client.Send(req, func(resp remote.Response, err error) {
		page, err := remote.As[remote.Page](resp, err)
		e.onPage(tag, fresh, page, err)
	})
}

func (e *Engine) onPage(tag fetchTag, fresh bool, page remote.Page, err error) {
	e.mu.Lock()
	if !e.currentLocked(tag) {
		e.mu.Unlock()
		e.stale(tag)
		return
	}
	next := e.state
	if fresh {
		next.Loading = false
	} else {
		next.LoadingMore = false
	}
	if err != nil {
		next.Error = remote.Message(err)
		e.setLocked(next)
		e.mu.Unlock()
		e.log.Warn("page failed", zap.Int64("collection_id", tag.collection.ID), zap.Error(err))
		return
	}

	items := e.withCachedPaths(page.Items)
	if fresh {
		next.Items = appendUnique(nil, items)
	} else {
		next.Items = appendUnique(next.Items, items)
	}
	next.Cursor = normalizeCursor(page.Next)
	next.HasMore = !next.Cursor.Done()
	next.Error = ""
	e.setLocked(next)
	e.mu.Unlock()

	e.log.Debug("page applied",
		zap.Int64("collection_id", tag.collection.ID),
		zap.Uint64("generation", tag.gen),
		zap.Int("items", len(page.Items)),
		zap.Stringer("next", next.Cursor))

	if fresh || len(items) > 0 {
		e.sweep(tag, items)
		e.scheduleRetry(tag)
	}
}

// Delete removes an item remotely and, once acknowledged, locally. done,
// if set, receives the outcome.
func (e *Engine) Delete(collectionID, itemID int64, done func(error)) error {
	if !e.authorized() {
		return model.ErrNotAuthorized
	}
	e.client.Send(remote.DeleteItem{CollectionID: collectionID, ItemID: itemID}, func(_ remote.Response, err error) {
		e.mu.Lock()
		next := e.state
		if err != nil {
			next.Error = remote.Message(err)
		} else if i := next.Find(itemID); i >= 0 && next.Items[i].CollectionID == collectionID {
			next.Items = slices.Delete(slices.Clone(next.Items), i, i+1)
		}
		e.setLocked(next)
		e.mu.Unlock()

		if err != nil {
			e.log.Warn("delete failed", zap.Int64("item_id", itemID), zap.Error(err))
		} else {
			e.log.Info("item deleted", zap.Int64("collection_id", collectionID), zap.Int64("item_id", itemID))
		}
		if done != nil {
			done(err)
		}
	})
	return nil
}

// ResolveLink obtains a direct playback URL for a video item.
func (e *Engine) ResolveLink(ctx context.Context, item model.MediaItem) (string, error) {
	if !e.authorized() {
		return "", model.ErrNotAuthorized
	}
	if item.Kind != model.KindVideo {
		return "", model.Invalid("item", "Only videos can be played")
	}
	link, err := remote.As[remote.Link](e.client.Do(ctx, remote.ResolveLink{Item: item}))
	if err != nil {
		return "", err
	}
	if link.URL == "" {
		return "", errors.New("no link received")
	}
	return link.URL, nil
}

// DismissError clears a transient error.
func (e *Engine) DismissError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Error == "" {
		return
	}
	next := e.state
	next.Error = ""
	e.setLocked(next)
}

// Stop cancels pending retry sweeps.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for t := range e.timers {
		t.Stop()
	}
	clear(e.timers)
}

func (e *Engine) authorized() bool {
	return e.gate == nil || e.gate.Authorized()
}

func (e *Engine) currentLocked(tag fetchTag) bool {
	return tag.gen == e.gen && e.state.Active && e.state.Collection.Same(tag.collection)
}

func (e *Engine) stale(tag fetchTag) {
	e.metrics.Stale("media")
	e.log.Debug("stale page discarded",
		zap.Int64("collection_id", tag.collection.ID),
		zap.Uint64("generation", tag.gen))
}

func (e *Engine) setLocked(next State) {
	e.state = next
	e.bus.Emit(bus.KindMediaChanged, next)
}
