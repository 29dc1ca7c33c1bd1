package api

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/matheus3301/tele/internal/collections"
	"github.com/matheus3301/tele/internal/media"
)

func (s *Server) GetMediaState(_ context.Context, _ *emptypb.Empty) (*media.State, error) {
	return s.mediaState(nil)
}

func (s *Server) LoadFresh(_ context.Context, req *LoadRequest) (*media.State, error) {
	return s.mediaState(s.media.LoadFresh(req.Collection))
}

func (s *Server) LoadIfNeeded(_ context.Context, _ *emptypb.Empty) (*media.State, error) {
	return s.mediaState(s.media.LoadIfNeeded())
}

func (s *Server) LoadMore(_ context.Context, _ *emptypb.Empty) (*media.State, error) {
	return s.mediaState(s.media.LoadMore())
}

func (s *Server) Focus(_ context.Context, req *ItemRequest) (*emptypb.Empty, error) {
	s.media.Focus(req.ItemID)
	return &emptypb.Empty{}, nil
}

// DeleteItem blocks until the remote deletion completes or ctx ends.
func (s *Server) DeleteItem(ctx context.Context, req *ItemRequest) (*media.State, error) {
	done := make(chan error, 1)
	if err := s.media.Delete(req.CollectionID, req.ItemID, func(err error) { done <- err }); err != nil {
		return nil, toStatus(err)
	}
	select {
	case err := <-done:
		if err != nil {
			s.log.Warn("delete failed",
				zap.Int64("collection_id", req.CollectionID),
				zap.Int64("item_id", req.ItemID),
				zap.Error(err))
			return nil, toStatus(err)
		}
	case <-ctx.Done():
		return nil, toStatus(ctx.Err())
	}
	return s.mediaState(nil)
}

func (s *Server) ResolveLink(ctx context.Context, req *ItemRequest) (*LinkReply, error) {
	item, ok := s.media.Item(req.ItemID)
	if !ok {
		return nil, grpcstatus.Errorf(codes.NotFound, "item %d is not loaded", req.ItemID)
	}
	url, err := s.media.ResolveLink(ctx, item)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LinkReply{URL: url}, nil
}

func (s *Server) DismissError(_ context.Context, _ *emptypb.Empty) (*media.State, error) {
	s.media.DismissError()
	return s.mediaState(nil)
}

func (s *Server) mediaState(err error) (*media.State, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	st := s.media.Snapshot()
	return &st, nil
}

func (s *Server) GetCandidates(_ context.Context, _ *emptypb.Empty) (*collections.State, error) {
	if err := s.collections.LoadIfNeeded(); err != nil {
		return nil, toStatus(err)
	}
	st := s.collections.Snapshot()
	return &st, nil
}

func (s *Server) ListCandidates(_ context.Context, _ *emptypb.Empty) (*collections.State, error) {
	if err := s.collections.Refresh(); err != nil {
		return nil, toStatus(err)
	}
	st := s.collections.Snapshot()
	return &st, nil
}
