// Package search runs conversational searches against the search bot.
package search

import (
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/bus"
	"github.com/matheus3301/tele/internal/logging"
	"github.com/matheus3301/tele/internal/metrics"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
)

// Phase is the search adapter's state.
type Phase string

const (
	Idle       Phase = "IDLE"
	Searching  Phase = "SEARCHING"
	Displaying Phase = "DISPLAYING"
	Error      Phase = "ERROR"
)

const (
	minQueryLen   = 2
	MsgQueryShort = "Enter at least 2 characters"
	excludedLabel = "srt"
)

// Snapshot is the published search state.
type Snapshot struct {
	Phase            Phase                `json:"phase"`
	Query            string               `json:"query"`
	Results          []model.SearchResult `json:"results"`
	Error            string               `json:"error,omitempty"`
	HasSearched      bool                 `json:"has_searched"`
	FocusFirstResult bool                 `json:"focus_first_result"`
	RefreshMedia     bool                 `json:"refresh_media"`
}

// Client is the part of the remote adapter search needs.
type Client interface {
	Send(req remote.Request, done remote.Callback) *remote.Call
}

// Gate reports whether search is permitted.
type Gate interface {
	Authorized() bool
}

// Adapter is the conversational search state machine. Every query and
// selection bumps a generation; answers for older generations are dropped.
type Adapter struct {
	client  Client
	gate    Gate
	bus     *bus.Bus
	metrics *metrics.Metrics
	log     *zap.Logger

	mu           sync.Mutex
	snap         Snapshot
	gen          uint64
	pendingFocus bool
}

// NewAdapter creates an idle search adapter.
func NewAdapter(client Client, gate Gate, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *Adapter {
	return &Adapter{
		client:  client,
		gate:    gate,
		bus:     b,
		metrics: m,
		log:     logging.OrNop(logger).Named("search"),
		snap:    Snapshot{Phase: Idle},
	}
}

// Snapshot returns the current published state.
func (a *Adapter) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

// Search sends query to the search bot. Queries shorter than two
// characters are rejected without contacting the bot.
func (a *Adapter) Search(query string) error {
	if a.gate != nil && !a.gate.Authorized() {
		return model.ErrNotAuthorized
	}
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < minQueryLen {
		a.mu.Lock()
		a.gen++
		a.pendingFocus = false
		next := a.snap
		next.Phase = Error
		next.Error = MsgQueryShort
		next.Results = nil
		next.HasSearched = true
		a.setLocked(next)
		a.mu.Unlock()
		return model.Invalid("query", MsgQueryShort)
	}

	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.pendingFocus = false
	next := a.snap
	next.Phase = Searching
	next.Query = trimmed
	next.Results = nil
	next.Error = ""
	next.HasSearched = true
	a.setLocked(next)
	a.mu.Unlock()

	a.log.Debug("search", zap.Uint64("generation", gen))
	a.client.Send(remote.SearchQuery{Query: trimmed}, func(resp remote.Response, err error) {
		a.onAnswer(gen, resp, err)
	})
	return nil
}

// SelectResult presses result on the bot. It is ignored while a request is
// already running.
func (a *Adapter) SelectResult(result model.SearchResult) error {
	if a.gate != nil && !a.gate.Authorized() {
		return model.ErrNotAuthorized
	}
	a.mu.Lock()
	if a.snap.Phase == Searching {
		a.mu.Unlock()
		return nil
	}
	a.gen++
	gen := a.gen
	a.pendingFocus = result.IsPaginationMarker
	next := a.snap
	next.Phase = Searching
	next.Error = ""
	a.setLocked(next)
	a.mu.Unlock()

	req := remote.SelectResult{
		Token:        result.Token,
		CollectionID: result.SourceCollectionID,
		ItemID:       result.SourceItemID,
	}
	a.client.Send(req, func(resp remote.Response, err error) {
		a.onAnswer(gen, resp, err)
	})
	return nil
}

// Clear resets the search view and drops any answer still in flight.
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.pendingFocus = false
	next := Snapshot{Phase: Idle, RefreshMedia: a.snap.RefreshMedia}
	a.setLocked(next)
}

// ConsumeFocusFirstResult reports and clears the focus-first-result flag.
func (a *Adapter) ConsumeFocusFirstResult() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.snap.FocusFirstResult {
		return false
	}
	next := a.snap
	next.FocusFirstResult = false
	a.setLocked(next)
	return true
}

// ConsumeRefreshMedia reports and clears the refresh-media flag.
func (a *Adapter) ConsumeRefreshMedia() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.snap.RefreshMedia {
		return false
	}
	next := a.snap
	next.RefreshMedia = false
	a.setLocked(next)
	return true
}

func (a *Adapter) onAnswer(gen uint64, resp remote.Response, err error) {
	answer, err := remote.As[remote.SearchAnswer](resp, err)
	if err != nil {
		a.finish(gen, func(s *Snapshot) {
			s.Phase = Error
			s.Error = remote.Message(err)
		})
		return
	}

	r := answer.Response
	switch r.Type {
	case model.ResultList:
		a.finish(gen, func(s *Snapshot) {
			s.Phase = Displaying
			s.Results = Filter(r.Results)
			s.Error = ""
			s.HasSearched = true
			if a.pendingFocus {
				s.FocusFirstResult = true
				a.pendingFocus = false
			}
		})
	case model.ResolvedMedia:
		if r.Media == nil {
			a.finish(gen, func(s *Snapshot) {
				s.Phase = Error
				s.Error = remote.DefaultMessage
			})
			return
		}
		a.save(gen, *r.Media)
	case model.Failure:
		a.finish(gen, func(s *Snapshot) {
			s.Phase = Error
			s.Error = r.Failure
		})
	default:
		a.log.Warn("unknown search answer", zap.Int("type", int(r.Type)))
	}
}

// save copies resolved media into the personal store, then clears the
// search and asks for a media refresh.
func (a *Adapter) save(gen uint64, item model.MediaItem) {
	if !a.current(gen) {
		return
	}
	a.log.Info("saving resolved media", zap.Int64("item_id", item.ItemID))
	a.client.Send(remote.SaveItem{Item: item}, func(_ remote.Response, err error) {
		a.finish(gen, func(s *Snapshot) {
			if err != nil {
				s.Phase = Error
				s.Error = remote.Message(err)
				return
			}
			*s = Snapshot{Phase: Idle, RefreshMedia: true}
			a.pendingFocus = false
		})
	})
}

func (a *Adapter) current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		a.metrics.Stale("search")
		a.log.Debug("stale search answer discarded", zap.Uint64("generation", gen))
		return false
	}
	return true
}

func (a *Adapter) finish(gen uint64, fn func(*Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		a.metrics.Stale("search")
		a.log.Debug("stale search answer discarded", zap.Uint64("generation", gen))
		return
	}
	next := a.snap
	fn(&next)
	a.setLocked(next)
}

func (a *Adapter) setLocked(next Snapshot) {
	a.snap = next
	a.bus.Emit(bus.KindSearchChanged, next)
}

// Filter drops subtitle-file noise from bot results.
func Filter(results []model.SearchResult) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Label), excludedLabel) {
			continue
		}
		out = append(out, r)
	}
	return out
}
