package remote

import "github.com/matheus3301/tele/internal/model"

// Response is the decoded success payload of a request. Consumers switch
// over the concrete types below.
type Response interface {
	isResponse()
}

// Ok acknowledges a request that carries no payload.
type Ok struct{}

// AuthStateResult answers GetAuthState.
type AuthStateResult struct {
	State AuthState
}

// Page answers GetHistory. Next is model.CursorEnd when the collection is
// exhausted.
type Page struct {
	Items []model.MediaItem
	Next  model.Cursor
}

// ThumbnailFile answers GetThumbnail.
type ThumbnailFile struct {
	Ref  string
	Path string
}

// CollectionList answers ListCollections in remote order.
type CollectionList struct {
	Collections []model.CollectionRef
}

// SearchAnswer answers SearchQuery and SelectResult.
type SearchAnswer struct {
	Response model.SearchResponse
}

// Link answers ResolveLink.
type Link struct {
	URL string
}

func (Ok) isResponse()              {}
func (AuthStateResult) isResponse() {}
func (Page) isResponse()            {}
func (ThumbnailFile) isResponse()   {}
func (CollectionList) isResponse()  {}
func (SearchAnswer) isResponse()    {}
func (Link) isResponse()            {}
