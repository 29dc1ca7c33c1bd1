package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/remote"
)

// authorized caches the self user and marks the session ready.
func (b *Backend) authorized(ctx context.Context) error {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return &remote.Error{Code: 400, Message: "Not connected"}
	}
	self, err := client.Self(ctx)
	if err != nil {
		return fmt.Errorf("get self: %w", err)
	}
	b.mu.Lock()
	b.selfID = self.ID
	b.phone, b.codeHash = "", ""
	b.mu.Unlock()
	b.peers.Add(self.ID, &tg.InputPeerSelf{})
	b.setState(remote.StateReady)
	return nil
}

func (b *Backend) setPhone(ctx context.Context, phone string) error {
	_, client, err := b.conn()
	if err != nil {
		return err
	}
	sent, err := client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return err
	}
	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return fmt.Errorf("unexpected sent code type: %T", sent)
	}
	b.mu.Lock()
	b.phone, b.codeHash = phone, code.PhoneCodeHash
	b.mu.Unlock()
	b.setState(remote.StateWaitCode)
	return nil
}

func (b *Backend) checkCode(ctx context.Context, code string) error {
	_, client, err := b.conn()
	if err != nil {
		return err
	}
	b.mu.Lock()
	phone, hash := b.phone, b.codeHash
	b.mu.Unlock()
	if hash == "" {
		return &remote.Error{Code: 400, Message: "Request a code first"}
	}

	_, err = client.Auth().SignIn(ctx, phone, code, hash)
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		b.setState(remote.StateWaitPassword)
		return nil
	}
	if err != nil {
		return err
	}
	return b.authorized(ctx)
}

func (b *Backend) checkPassword(ctx context.Context, password string) error {
	_, client, err := b.conn()
	if err != nil {
		return err
	}
	if _, err := client.Auth().Password(ctx, password); err != nil {
		return err
	}
	return b.authorized(ctx)
}

// logOut answers before the session reaches Closed, so the request is not
// failed by its own close.
func (b *Backend) logOut(ctx context.Context, reply func(remote.Response, error)) {
	api, _, err := b.conn()
	if err != nil {
		reply(nil, err)
		return
	}
	b.setState(remote.StateLoggingOut)
	if _, err := api.AuthLogOut(ctx); err != nil {
		b.log.Warn("log out", zap.Error(err))
	}
	if err := b.store.ClearSessionBlob(ctx); err != nil {
		b.log.Warn("clear session", zap.Error(err))
	}
	reply(remote.Ok{}, nil)

	b.setState(remote.StateClosing)
	b.stopRun()
	b.mu.Lock()
	b.selfID = 0
	b.mu.Unlock()
	b.peers.Purge()
	b.setState(remote.StateClosed)
}
