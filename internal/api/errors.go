package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
)

// toStatus maps a component error onto a gRPC status carrying the
// user-facing message.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var remoteErr *remote.Error
	var transportErr *remote.TransportError
	switch {
	case model.IsValidation(err):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, auth.ErrReadOnly), errors.Is(err, model.ErrNotAuthorized):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &remoteErr):
		return grpcstatus.Error(codes.FailedPrecondition, remote.Message(err))
	case errors.Is(err, remote.ErrClientClosed), errors.As(err, &transportErr):
		return grpcstatus.Error(codes.Unavailable, remote.Message(err))
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, err.Error())
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}
