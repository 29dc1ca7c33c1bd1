package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
)

type recordingSink struct {
	mu     sync.Mutex
	events []remote.Notification
	errs   []error
}

func (s *recordingSink) Notify(n remote.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, n)
}

func (s *recordingSink) TransportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) notifications() []remote.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.Notification(nil), s.events...)
}

type nopStore struct{}

func (nopStore) LoadSessionBlob(context.Context) ([]byte, error)       { return nil, nil }
func (nopStore) StoreSessionBlob(context.Context, []byte) error        { return nil }
func (nopStore) ClearSessionBlob(context.Context) error                { return nil }
func (nopStore) ThumbnailPath(context.Context, string) (string, error) { return "", nil }
func (nopStore) PutThumbnail(context.Context, string, string) error    { return nil }
func (nopStore) DeleteThumbnail(context.Context, string) error         { return nil }

func send(t *testing.T, b *Backend, req remote.Request) (remote.Response, error) {
	t.Helper()
	type result struct {
		resp remote.Response
		err  error
	}
	ch := make(chan result, 1)
	b.Send(req, func(resp remote.Response, err error) { ch <- result{resp, err} })
	select {
	case r := <-ch:
		return r.resp, r.err
	case <-time.After(2 * time.Second):
		t.Fatalf("no reply to %s", req.Kind())
		return nil, nil
	}
}

func TestStartAnnouncesWaitParameters(t *testing.T) {
	b := New(nopStore{}, Options{}, nil)
	sink := &recordingSink{}
	if err := b.Start(context.Background(), sink); err != nil {
		t.Fatal(err)
	}
	got := sink.notifications()
	if len(got) != 1 || got[0] != (remote.AuthStateChanged{State: remote.StateWaitParameters}) {
		t.Fatalf("notifications = %v", got)
	}

	resp, err := send(t, b, remote.GetAuthState{})
	if err != nil {
		t.Fatal(err)
	}
	if resp != (remote.AuthStateResult{State: remote.StateWaitParameters}) {
		t.Errorf("GetAuthState = %v", resp)
	}
	if len(sink.notifications()) != 1 {
		t.Error("GetAuthState should not push a notification")
	}
}

func TestRequestsBeforeConnectFail(t *testing.T) {
	b := New(nopStore{}, Options{}, nil)
	if err := b.Start(context.Background(), &recordingSink{}); err != nil {
		t.Fatal(err)
	}
	for _, req := range []remote.Request{
		remote.SetPhone{Phone: "+100"},
		remote.GetHistory{Collection: model.PersonalStore(), Limit: 30},
		remote.ListCollections{Limit: 40},
		remote.SearchQuery{Query: "dune"},
		remote.LogOut{},
	} {
		_, err := send(t, b, req)
		if remote.Message(err) != "Not connected" {
			t.Errorf("%s: err = %v, want Not connected", req.Kind(), err)
		}
	}
}

func TestResolveLinkRejectsImages(t *testing.T) {
	b := New(nopStore{}, Options{}, nil)
	_, err := send(t, b, remote.ResolveLink{Item: model.MediaItem{Kind: model.KindImage}})
	if remote.Message(err) != "Only videos can be played" {
		t.Errorf("err = %v", err)
	}
}

func TestMalformedThumbnailRef(t *testing.T) {
	b := New(nopStore{}, Options{ThumbnailDir: t.TempDir()}, nil)
	_, err := send(t, b, remote.GetThumbnail{Ref: "nope"})
	if remote.Message(err) != errBadRef.Error() {
		t.Errorf("err = %v", err)
	}
}
