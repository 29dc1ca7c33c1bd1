package remote_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
	"github.com/matheus3301/tele/internal/remote/remotetest"
)

type recorder struct {
	mu      sync.Mutex
	results []string
	errs    []error
}

func (r *recorder) callback(label string) remote.Callback {
	return func(_ remote.Response, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.results = append(r.results, label)
		r.errs = append(r.errs, err)
	}
}

func (r *recorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...), append([]error(nil), r.errs...)
}

type doubleReplyBackend struct{}

func (doubleReplyBackend) Start(context.Context, remote.Sink) error { return nil }
func (doubleReplyBackend) Close() error                             { return nil }
func (doubleReplyBackend) Send(_ remote.Request, reply func(remote.Response, error)) {
	go func() {
		reply(remote.Ok{}, nil)
		reply(nil, errors.New("second reply"))
	}()
}

func TestSendDeliversExactlyOnce(t *testing.T) {
	adapter := remote.New(doubleReplyBackend{}, nil, nil)
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = adapter.Close() }()
	rec := &recorder{}

	adapter.Send(remote.GetAuthState{}, rec.callback("auth"))

	remotetest.Eventually(t, func() bool {
		got, _ := rec.snapshot()
		return len(got) == 1
	}, "callback delivered")
	time.Sleep(30 * time.Millisecond)
	got, errs := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("callback ran %d times, want 1", len(got))
	}
	if errs[0] != nil {
		t.Errorf("first reply should win, got error %v", errs[0])
	}
}

func TestCompletionsMayArriveOutOfOrder(t *testing.T) {
	adapter, backend := remotetest.Started(t)
	rec := &recorder{}

	adapter.Send(remote.GetHistory{Collection: model.PersonalStore()}, rec.callback("first"))
	adapter.Send(remote.ListCollections{Limit: 5}, rec.callback("second"))

	first := backend.Next(t)
	second := backend.Next(t)
	second.Reply(remote.CollectionList{})
	first.Reply(remote.Page{Next: model.CursorEnd})

	remotetest.Eventually(t, func() bool {
		got, _ := rec.snapshot()
		return len(got) == 2
	}, "both callbacks delivered")
	got, _ := rec.snapshot()
	if got[0] != "second" || got[1] != "first" {
		t.Errorf("delivery order = %v, want [second first]", got)
	}
}

func TestRequestsDispatchInSendOrder(t *testing.T) {
	adapter, backend := remotetest.Started(t)

	for _, phone := range []string{"1", "2", "3"} {
		adapter.Send(remote.SetPhone{Phone: phone}, nil)
	}
	for _, want := range []string{"1", "2", "3"} {
		_, req := remotetest.NextOf[remote.SetPhone](t, backend)
		if req.Phone != want {
			t.Fatalf("dispatched %q, want %q", req.Phone, want)
		}
	}
}

func TestDoReturnsTypedResponse(t *testing.T) {
	adapter, backend := remotetest.Started(t)
	backend.SetResponder(func(req remote.Request) (remote.Response, error, bool) {
		if _, ok := req.(remote.ResolveLink); ok {
			return remote.Link{URL: "https://example.test/v"}, nil, true
		}
		return nil, nil, false
	})

	link, err := remote.As[remote.Link](adapter.Do(context.Background(), remote.ResolveLink{}))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if link.URL != "https://example.test/v" {
		t.Errorf("URL = %q", link.URL)
	}

	_, err = remote.As[remote.Page](adapter.Do(context.Background(), remote.ResolveLink{}))
	if err == nil {
		t.Error("As() with wrong type should fail")
	}
}

func TestDoHonorsContext(t *testing.T) {
	adapter, _ := remotetest.Started(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := adapter.Do(ctx, remote.GetAuthState{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want deadline exceeded", err)
	}
}

func TestClosedNotificationFailsPendingAndNewRequests(t *testing.T) {
	adapter, backend := remotetest.Started(t)
	rec := &recorder{}

	adapter.Send(remote.SearchQuery{Query: "dune"}, rec.callback("inflight"))
	inflight := backend.Next(t)

	backend.Auth(remote.StateClosed)
	remotetest.Eventually(t, adapter.Closed, "adapter closed")

	adapter.Send(remote.SearchQuery{Query: "late"}, rec.callback("late"))
	inflight.Reply(remote.SearchAnswer{})

	remotetest.Eventually(t, func() bool {
		got, _ := rec.snapshot()
		return len(got) == 2
	}, "both requests failed")
	_, errs := rec.snapshot()
	for i, err := range errs {
		if !errors.Is(err, remote.ErrClientClosed) {
			t.Errorf("result %d error = %v, want ErrClientClosed", i, err)
		}
	}
	if n := backend.Count(remote.SearchQuery{}); n != 1 {
		t.Errorf("backend saw %d searches, want 1", n)
	}
}

func TestReopenAfterClosed(t *testing.T) {
	adapter, backend := remotetest.Started(t)
	backend.Auth(remote.StateClosed)
	remotetest.Eventually(t, adapter.Closed, "adapter closed")

	if err := adapter.Reopen(context.Background()); err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if adapter.Closed() {
		t.Fatal("adapter still closed after Reopen")
	}
	if backend.Starts() != 2 {
		t.Errorf("backend starts = %d, want 2", backend.Starts())
	}

	adapter.Send(remote.GetAuthState{}, nil)
	backend.Next(t)
}

func TestCloseFailsQueuedRequests(t *testing.T) {
	backend := remotetest.New()
	adapter := remote.New(backend, nil, nil)
	rec := &recorder{}

	adapter.Send(remote.GetAuthState{}, rec.callback("queued"))
	if err := adapter.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	adapter.Send(remote.GetAuthState{}, rec.callback("after"))

	remotetest.Eventually(t, func() bool {
		got, _ := rec.snapshot()
		return len(got) == 2
	}, "queued and late requests failed")
	_, errs := rec.snapshot()
	for _, err := range errs {
		if !errors.Is(err, remote.ErrClientClosed) {
			t.Errorf("error = %v, want ErrClientClosed", err)
		}
	}
	if len(backend.Requests()) != 0 {
		t.Error("backend received a request before start")
	}
	if err := adapter.Reopen(context.Background()); !errors.Is(err, remote.ErrClientClosed) {
		t.Errorf("Reopen() after Close error = %v", err)
	}
}

func TestNotificationsAreOrdered(t *testing.T) {
	adapter, backend := remotetest.Started(t)

	var (
		mu  sync.Mutex
		got []remote.AuthState
	)
	unsub := adapter.Subscribe(func(n remote.Notification) {
		if change, ok := n.(remote.AuthStateChanged); ok {
			mu.Lock()
			got = append(got, change.State)
			mu.Unlock()
		}
	}, nil)
	defer unsub()

	want := []remote.AuthState{remote.StateWaitPhone, remote.StateWaitCode, remote.StateReady}
	for _, s := range want {
		backend.Auth(s)
	}
	remotetest.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(want)
	}, "all notifications delivered")
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notifications = %v, want %v", got, want)
		}
	}
}

func TestTransportErrorsAreWrapped(t *testing.T) {
	adapter, backend := remotetest.Started(t)

	errs := make(chan error, 1)
	adapter.Subscribe(nil, func(err error) { errs <- err })
	backend.TransportError(remotetest.ErrNetwork)

	select {
	case err := <-errs:
		var te *remote.TransportError
		if !errors.As(err, &te) {
			t.Fatalf("error %T is not a TransportError", err)
		}
		if !errors.Is(err, remotetest.ErrNetwork) {
			t.Errorf("cause lost: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("transport error not delivered")
	}
}

func TestStartFailure(t *testing.T) {
	backend := remotetest.New()
	backend.FailStart(errors.New("no network"))
	adapter := remote.New(backend, nil, nil)
	if err := adapter.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error")
	}
	select {
	case <-adapter.Ready():
		t.Fatal("Ready closed after failed start")
	default:
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"remote", &remote.Error{Code: 400, Message: "PHONE_CODE_INVALID"}, "PHONE_CODE_INVALID"},
		{"remote without message", &remote.Error{Code: 500}, remote.DefaultMessage},
		{"transport", &remote.TransportError{Err: errors.New("dial tcp: timeout")}, "dial tcp: timeout"},
		{"nil", nil, remote.DefaultMessage},
		{"plain", errors.New("x"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := remote.Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}
