package media

import "github.com/matheus3301/tele/internal/model"

// State is the published retrieval state of the active collection. Items is
// never mutated after publication; every change builds a new slice.
type State struct {
	// Active is false until a collection has been selected.
	Active      bool                `json:"active"`
	Collection  model.CollectionRef `json:"collection"`
	Items       []model.MediaItem   `json:"items"`
	Cursor      model.Cursor        `json:"cursor"`
	HasMore     bool                `json:"has_more"`
	Loading     bool                `json:"loading"`
	LoadingMore bool                `json:"loading_more"`
	Error       string              `json:"error,omitempty"`
}

// Find returns the index of the item with the given id, or -1.
func (s State) Find(itemID int64) int {
	for i, item := range s.Items {
		if item.ItemID == itemID {
			return i
		}
	}
	return -1
}

// appendUnique returns held followed by every item of page whose id is not
// already present, keeping first-seen order. held is not modified.
func appendUnique(held, page []model.MediaItem) []model.MediaItem {
	seen := make(map[int64]struct{}, len(held)+len(page))
	out := make([]model.MediaItem, 0, len(held)+len(page))
	for _, item := range held {
		seen[item.ItemID] = struct{}{}
		out = append(out, item)
	}
	for _, item := range page {
		if _, dup := seen[item.ItemID]; dup {
			continue
		}
		seen[item.ItemID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// normalizeCursor maps any non-positive continuation to CursorEnd; a page
// can never ask to start over.
func normalizeCursor(c model.Cursor) model.Cursor {
	if c <= 0 {
		return model.CursorEnd
	}
	return c
}
