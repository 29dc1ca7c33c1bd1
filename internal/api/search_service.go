package api

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/matheus3301/tele/internal/search"
)

func (s *Server) GetSearchState(_ context.Context, _ *emptypb.Empty) (*search.Snapshot, error) {
	return s.searchState(nil)
}

func (s *Server) Search(_ context.Context, req *SearchRequest) (*search.Snapshot, error) {
	return s.searchState(s.search.Search(req.Query))
}

func (s *Server) SelectResult(_ context.Context, req *SelectRequest) (*search.Snapshot, error) {
	return s.searchState(s.search.SelectResult(req.Result))
}

func (s *Server) ClearSearch(_ context.Context, _ *emptypb.Empty) (*search.Snapshot, error) {
	s.search.Clear()
	return s.searchState(nil)
}

func (s *Server) ConsumeFocusFirstResult(_ context.Context, _ *emptypb.Empty) (*FlagReply, error) {
	return &FlagReply{Value: s.search.ConsumeFocusFirstResult()}, nil
}

func (s *Server) ConsumeRefreshMedia(_ context.Context, _ *emptypb.Empty) (*FlagReply, error) {
	return &FlagReply{Value: s.search.ConsumeRefreshMedia()}, nil
}

// searchState returns the current snapshot, or the intent's error. A short
// query is also recorded in the snapshot, so watchers see it either way.
func (s *Server) searchState(err error) (*search.Snapshot, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	snap := s.search.Snapshot()
	return &snap, nil
}
