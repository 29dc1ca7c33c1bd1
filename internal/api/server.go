// Package api exposes the daemon's components over gRPC.
package api

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/bus"
	"github.com/matheus3301/tele/internal/collections"
	"github.com/matheus3301/tele/internal/logging"
	"github.com/matheus3301/tele/internal/media"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/search"
	"github.com/matheus3301/tele/internal/status"
)

// AuthMachine is the authorization state machine as seen by the API.
type AuthMachine interface {
	Snapshot() auth.Snapshot
	Query()
	SubmitCredentials(apiID, apiHash string) error
	SubmitPhone(phone string) error
	SubmitCode(code string) error
	SubmitPassword(password string) error
	LogOut() error
}

// MediaEngine is the paged media retrieval engine as seen by the API.
type MediaEngine interface {
	Snapshot() media.State
	Item(itemID int64) (model.MediaItem, bool)
	LoadFresh(ref model.CollectionRef) error
	LoadIfNeeded() error
	LoadMore() error
	Focus(itemID int64)
	Delete(collectionID, itemID int64, done func(error)) error
	ResolveLink(ctx context.Context, item model.MediaItem) (string, error)
	DismissError()
}

// SearchAdapter is the conversational search adapter as seen by the API.
type SearchAdapter interface {
	Snapshot() search.Snapshot
	Search(query string) error
	SelectResult(result model.SearchResult) error
	Clear()
	ConsumeFocusFirstResult() bool
	ConsumeRefreshMedia() bool
}

// CollectionIndexer publishes the candidate collections for the sidebar.
type CollectionIndexer interface {
	Snapshot() collections.State
	LoadIfNeeded() error
	Refresh() error
}

// ConnectionStatus reports the daemon's connection state.
type ConnectionStatus interface {
	Current() status.State
	Reason() string
}

// Deps groups the components served by the API.
type Deps struct {
	Session     string
	Auth        AuthMachine
	Media       MediaEngine
	Search      SearchAdapter
	Collections CollectionIndexer
	Status      ConnectionStatus
	Bus         *bus.Bus
	Logger      *zap.Logger
}

// Server implements TeleServer.
type Server struct {
	session     string
	startedAt   time.Time
	auth        AuthMachine
	media       MediaEngine
	search      SearchAdapter
	collections CollectionIndexer
	status      ConnectionStatus
	bus         *bus.Bus
	log         *zap.Logger
}

var _ TeleServer = (*Server)(nil)

// NewServer creates the API implementation over the given components.
func NewServer(d Deps) *Server {
	return &Server{
		session:     d.Session,
		startedAt:   time.Now(),
		auth:        d.Auth,
		media:       d.Media,
		search:      d.Search,
		collections: d.Collections,
		status:      d.Status,
		bus:         d.Bus,
		log:         logging.OrNop(d.Logger).Named("api"),
	}
}

func (s *Server) GetStatus(_ context.Context, _ *emptypb.Empty) (*StatusReply, error) {
	reply := s.statusReply()
	return &reply, nil
}

func (s *Server) statusReply() StatusReply {
	return StatusReply{
		Session:    s.session,
		PID:        os.Getpid(),
		Connection: s.status.Current(),
		Reason:     s.status.Reason(),
		Auth:       s.auth.Snapshot(),
		UptimeMs:   time.Since(s.startedAt).Milliseconds(),
	}
}
