package media

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
)

// Thumbnail outcome labels.
const (
	thumbResolved  = "resolved"
	thumbFailed    = "failed"
	thumbDiscarded = "discarded"
	thumbCached    = "cached"
)

// Focus resolves the focused item's thumbnail if it is still missing.
func (e *Engine) Focus(itemID int64) {
	e.mu.Lock()
	i := e.state.Find(itemID)
	if i < 0 || !e.state.Items[i].NeedsThumbnail() {
		e.mu.Unlock()
		return
	}
	item := e.state.Items[i]
	collection := e.state.Collection
	e.mu.Unlock()

	e.resolve(collection, item)
}

// withCachedPaths attaches already known thumbnail paths to a fresh page.
func (e *Engine) withCachedPaths(items []model.MediaItem) []model.MediaItem {
	out := make([]model.MediaItem, len(items))
	for i, item := range items {
		if item.NeedsThumbnail() {
			if path, ok := e.paths.Get(item.ThumbnailRef); ok {
				item.ThumbnailPath = path
				e.metrics.Thumbnail(thumbCached)
			}
		}
		out[i] = item
	}
	return out
}

func (e *Engine) sweep(tag fetchTag, items []model.MediaItem) {
	for _, item := range items {
		if item.NeedsThumbnail() {
			e.resolve(tag.collection, item)
		}
	}
}

// scheduleRetry arms the single delayed sweep for a page load. The sweep is
// skipped when a fresh load superseded the tag by then.
func (e *Engine) scheduleRetry(tag fetchTag) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(e.opts.RetryDelay, func() {
		e.mu.Lock()
		delete(e.timers, t)
		if e.stopped || !e.currentLocked(tag) {
			e.mu.Unlock()
			return
		}
		var missing []model.MediaItem
		for _, item := range e.state.Items {
			if item.NeedsThumbnail() {
				missing = append(missing, item)
			}
		}
		e.mu.Unlock()

		if len(missing) > 0 {
			e.log.Debug("thumbnail retry sweep", zap.Int("missing", len(missing)), zap.Uint64("generation", tag.gen))
		}
		e.sweep(tag, missing)
	})
	e.timers[t] = struct{}{}
}

// resolve fetches one thumbnail. Concurrent resolutions of the same ref
// share a single remote request.
func (e *Engine) resolve(collection model.CollectionRef, item model.MediaItem) {
	ref := item.ThumbnailRef
	if path, ok := e.paths.Get(ref); ok {
		if e.applyThumbnail(collection, item.ItemID, ref, path) {
			e.metrics.Thumbnail(thumbCached)
		}
		return
	}
	go func() {
		v, err, _ := e.flights.Do(ref, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), thumbnailTimeout)
			defer cancel()
			file, err := remote.As[remote.ThumbnailFile](e.client.Do(ctx, remote.GetThumbnail{Ref: ref}))
			if err != nil {
				return "", err
			}
			return file.Path, nil
		})
		path, _ := v.(string)
		if err != nil || path == "" {
			e.metrics.Thumbnail(thumbFailed)
			e.log.Debug("thumbnail not resolved", zap.Int64("item_id", item.ItemID), zap.Error(err))
			return
		}
		e.paths.Add(ref, path)
		if e.applyThumbnail(collection, item.ItemID, ref, path) {
			e.metrics.Thumbnail(thumbResolved)
		} else {
			e.metrics.Thumbnail(thumbDiscarded)
		}
	}()
}

// applyThumbnail attaches path to the matching item if it is still held
// for the same collection.
func (e *Engine) applyThumbnail(collection model.CollectionRef, itemID int64, ref, path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Active || !e.state.Collection.Same(collection) {
		return false
	}
	i := e.state.Find(itemID)
	if i < 0 || e.state.Items[i].ThumbnailRef != ref {
		return false
	}
	if e.state.Items[i].ThumbnailPath == path {
		return true
	}
	next := e.state
	next.Items = append([]model.MediaItem(nil), next.Items...)
	next.Items[i].ThumbnailPath = path
	e.setLocked(next)
	return true
}
