package model

// Kind is the media kind of an item.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// MediaItem identifies a piece of content held in a collection.
// ItemID is unique within a single collection fetch session.
type MediaItem struct {
	CollectionID     int64  `json:"collection_id"`
	ItemID           int64  `json:"item_id"`
	Timestamp        int64  `json:"timestamp"` // unix seconds
	Kind             Kind   `json:"kind"`
	Title            string `json:"title"`
	ContentRef       string `json:"content_ref,omitempty"`
	ThumbnailRef     string `json:"thumbnail_ref,omitempty"`
	ThumbnailPath    string `json:"thumbnail_path,omitempty"`
	ThumbnailPreview []byte `json:"thumbnail_preview,omitempty"`
	ThumbnailWidth   int    `json:"thumbnail_width"`
	ThumbnailHeight  int    `json:"thumbnail_height"`
	DurationSeconds  int    `json:"duration_seconds"`
	SizeBytes        int64  `json:"size_bytes"`
}

// NeedsThumbnail reports whether the item carries a thumbnail reference
// that has not been resolved to a local path yet.
func (m MediaItem) NeedsThumbnail() bool {
	return m.ThumbnailRef != "" && m.ThumbnailPath == ""
}

// CollectionRef is a pageable source: the personal store or a named collection.
type CollectionRef struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	IsPersonalStore bool   `json:"is_personal_store"`
}

// PersonalStoreTitle is the display title of the personal store.
const PersonalStoreTitle = "Saved Messages"

// PersonalStore returns the reference to the user's own archive.
func PersonalStore() CollectionRef {
	return CollectionRef{Title: PersonalStoreTitle, IsPersonalStore: true}
}

// Same reports whether two references address the same pageable source.
func (c CollectionRef) Same(o CollectionRef) bool {
	if c.IsPersonalStore || o.IsPersonalStore {
		return c.IsPersonalStore == o.IsPersonalStore
	}
	return c.ID == o.ID
}

// SearchResult is one selectable entry returned by the search bot.
// Token is echoed back verbatim on selection and never interpreted.
type SearchResult struct {
	Label              string `json:"label"`
	Token              []byte `json:"token"`
	SourceCollectionID int64  `json:"source_collection_id"`
	SourceItemID       int64  `json:"source_item_id"`
	IsPaginationMarker bool   `json:"is_pagination_marker"`
}

// SearchResponse is the decoded answer of the search bot. Exactly one of
// Results, Media or Failure is meaningful, selected by Type.
type SearchResponse struct {
	Type    SearchResponseType
	Results []SearchResult
	Media   *MediaItem
	Failure string
}

// SearchResponseType tags a SearchResponse.
type SearchResponseType int

const (
	ResultList SearchResponseType = iota + 1
	ResolvedMedia
	Failure
)

// Results builds a ResultList response.
func Results(results []SearchResult) SearchResponse {
	return SearchResponse{Type: ResultList, Results: results}
}

// Resolved builds a ResolvedMedia response.
func Resolved(item MediaItem) SearchResponse {
	return SearchResponse{Type: ResolvedMedia, Media: &item}
}

// Failed builds a Failure response.
func Failed(reason string) SearchResponse {
	return SearchResponse{Type: Failure, Failure: reason}
}
