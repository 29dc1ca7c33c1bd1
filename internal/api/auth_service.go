package api

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/matheus3301/tele/internal/auth"
)

func (s *Server) GetAuthState(_ context.Context, _ *emptypb.Empty) (*auth.Snapshot, error) {
	snap := s.auth.Snapshot()
	return &snap, nil
}

func (s *Server) QueryAuth(_ context.Context, _ *emptypb.Empty) (*auth.Snapshot, error) {
	s.auth.Query()
	snap := s.auth.Snapshot()
	return &snap, nil
}

func (s *Server) SubmitCredentials(_ context.Context, req *CredentialsRequest) (*auth.Snapshot, error) {
	return s.authIntent(s.auth.SubmitCredentials(req.APIID, req.APIHash))
}

func (s *Server) SubmitPhone(_ context.Context, req *PhoneRequest) (*auth.Snapshot, error) {
	return s.authIntent(s.auth.SubmitPhone(req.Phone))
}

func (s *Server) SubmitCode(_ context.Context, req *CodeRequest) (*auth.Snapshot, error) {
	return s.authIntent(s.auth.SubmitCode(req.Code))
}

func (s *Server) SubmitPassword(_ context.Context, req *PasswordRequest) (*auth.Snapshot, error) {
	return s.authIntent(s.auth.SubmitPassword(req.Password))
}

func (s *Server) LogOut(_ context.Context, _ *emptypb.Empty) (*auth.Snapshot, error) {
	return s.authIntent(s.auth.LogOut())
}

// authIntent returns the snapshot after an accepted intent. Validation
// failures are also reflected in the snapshot message, but the caller
// still gets an error status.
func (s *Server) authIntent(err error) (*auth.Snapshot, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	snap := s.auth.Snapshot()
	return &snap, nil
}
