package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/session"
)

// sessionStorage keeps the gotd session blob in the daemon database.
type sessionStorage struct {
	store Store
}

func (s *sessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := s.store.LoadSessionBlob(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(data) == 0 {
		return nil, session.ErrNotFound
	}
	return data, nil
}

func (s *sessionStorage) StoreSession(ctx context.Context, data []byte) error {
	if err := s.store.StoreSessionBlob(ctx, data); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}
