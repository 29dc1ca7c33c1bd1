package remote

import "github.com/matheus3301/tele/internal/model"

// Request is a typed payload sent to the backend. Kind is used for logs
// and metric labels.
type Request interface {
	Kind() string
}

// SetParameters hands the application credentials to the backend.
type SetParameters struct {
	APIID   int64
	APIHash string
}

// GetAuthState asks the backend to report its authorization state. Only
// changes are pushed as AuthStateChanged; the current state is the response.
type GetAuthState struct{}

type SetPhone struct{ Phone string }

type CheckCode struct{ Code string }

type CheckPassword struct{ Password string }

// LogOut ends the remote session. The backend walks LoggingOut, Closing and
// Closed notifications afterwards.
type LogOut struct{}

// GetHistory lists media items of a collection older than From.
type GetHistory struct {
	Collection model.CollectionRef
	From       model.Cursor
	Limit      int
}

// GetThumbnail downloads a thumbnail to a local file.
type GetThumbnail struct {
	Ref string
}

// ListCollections lists named collections with recent call activity.
type ListCollections struct {
	Limit int
}

// SearchQuery sends free text to the search bot.
type SearchQuery struct {
	Query string
}

// SelectResult presses a result's callback button on the search bot.
type SelectResult struct {
	Token        []byte
	CollectionID int64
	ItemID       int64
}

// SaveItem copies an item into the personal store.
type SaveItem struct {
	Item model.MediaItem
}

// DeleteItem removes an item for everyone.
type DeleteItem struct {
	CollectionID int64
	ItemID       int64
}

// ResolveLink asks the link bot for a direct playback URL of an item.
type ResolveLink struct {
	Item model.MediaItem
}

func (SetParameters) Kind() string   { return "set_parameters" }
func (GetAuthState) Kind() string    { return "get_auth_state" }
func (SetPhone) Kind() string        { return "set_phone" }
func (CheckCode) Kind() string       { return "check_code" }
func (CheckPassword) Kind() string   { return "check_password" }
func (LogOut) Kind() string          { return "log_out" }
func (GetHistory) Kind() string      { return "get_history" }
func (GetThumbnail) Kind() string    { return "get_thumbnail" }
func (ListCollections) Kind() string { return "list_collections" }
func (SearchQuery) Kind() string     { return "search_query" }
func (SelectResult) Kind() string    { return "select_result" }
func (SaveItem) Kind() string        { return "save_item" }
func (DeleteItem) Kind() string      { return "delete_item" }
func (ResolveLink) Kind() string     { return "resolve_link" }
