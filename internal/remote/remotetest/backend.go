// Package remotetest provides a scriptable remote.Backend for tests.
//
// Requests are held until the test answers them, so completions can be
// delivered in any order.
package remotetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/tele/internal/remote"
)

// Timeout bounds every wait in this package.
const Timeout = 2 * time.Second

// Pending is a request the fake has received but not answered.
type Pending struct {
	Req remote.Request

	once  sync.Once
	reply func(remote.Response, error)
}

// Reply completes the request successfully.
func (p *Pending) Reply(resp remote.Response) {
	p.once.Do(func() { p.reply(resp, nil) })
}

// Fail completes the request with err.
func (p *Pending) Fail(err error) {
	p.once.Do(func() { p.reply(nil, err) })
}

// Responder answers a request immediately. Returning handled=false leaves
// the request pending for the test.
type Responder func(req remote.Request) (resp remote.Response, err error, handled bool)

// Backend is a fake remote.Backend.
type Backend struct {
	mu       sync.Mutex
	sink     remote.Sink
	starts   int
	closed   bool
	queue    []*Pending
	received []remote.Request
	auto     Responder
	arrived  chan struct{}
	startErr error
}

// New returns an idle fake backend.
func New() *Backend {
	return &Backend{arrived: make(chan struct{}, 1)}
}

// SetResponder installs an automatic responder.
func (b *Backend) SetResponder(r Responder) {
	b.mu.Lock()
	b.auto = r
	b.mu.Unlock()
}

// FailStart makes the next Start return err.
func (b *Backend) FailStart(err error) {
	b.mu.Lock()
	b.startErr = err
	b.mu.Unlock()
}

func (b *Backend) Start(_ context.Context, sink remote.Sink) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.startErr; err != nil {
		b.startErr = nil
		return err
	}
	b.sink = sink
	b.starts++
	b.closed = false
	return nil
}

func (b *Backend) Send(req remote.Request, reply func(remote.Response, error)) {
	b.mu.Lock()
	b.received = append(b.received, req)
	auto := b.auto
	b.mu.Unlock()

	if auto != nil {
		if resp, err, ok := auto(req); ok {
			go reply(resp, err)
			return
		}
	}

	b.mu.Lock()
	b.queue = append(b.queue, &Pending{Req: req, reply: reply})
	b.mu.Unlock()
	select {
	case b.arrived <- struct{}{}:
	default:
	}
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Starts returns how many times Start succeeded.
func (b *Backend) Starts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts
}

// IsClosed reports whether Close was called.
func (b *Backend) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Requests returns every request received so far, in arrival order.
func (b *Backend) Requests() []remote.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]remote.Request(nil), b.received...)
}

// Count returns how many received requests match the kind of sample.
func (b *Backend) Count(sample remote.Request) int {
	n := 0
	for _, req := range b.Requests() {
		if req.Kind() == sample.Kind() {
			n++
		}
	}
	return n
}

// Next waits for the oldest unanswered request.
func (b *Backend) Next(t testing.TB) *Pending {
	t.Helper()
	deadline := time.After(Timeout)
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			p := b.queue[0]
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return p
		}
		b.mu.Unlock()
		select {
		case <-b.arrived:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("timeout waiting for a remote request")
			return nil
		}
	}
}

// NextOf waits for the oldest unanswered request and asserts its type.
func NextOf[T remote.Request](t testing.TB, b *Backend) (*Pending, T) {
	t.Helper()
	p := b.Next(t)
	req, ok := p.Req.(T)
	if !ok {
		var want T
		t.Fatalf("next request = %T, want %T", p.Req, want)
	}
	return p, req
}

// NoPending asserts that no unanswered request arrives within d.
func (b *Backend) NoPending(t testing.TB, d time.Duration) {
	t.Helper()
	time.Sleep(d)
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) > 0 {
		t.Fatalf("unexpected request %T", b.queue[0].Req)
	}
}

// Notify pushes a notification through the adapter.
func (b *Backend) Notify(n remote.Notification) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink.Notify(n)
	}
}

// Auth pushes an AuthStateChanged notification.
func (b *Backend) Auth(state remote.AuthState) {
	b.Notify(remote.AuthStateChanged{State: state})
}

// TransportError pushes a transport failure through the adapter.
func (b *Backend) TransportError(err error) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink.TransportError(err)
	}
}

// ErrBoom is a convenient remote failure.
var ErrBoom = &remote.Error{Code: 400, Message: "boom"}

// ErrNetwork is a convenient transport failure cause.
var ErrNetwork = errors.New("network unreachable")

// Eventually polls cond until it holds or Timeout elapses.
func Eventually(t testing.TB, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(Timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Started returns an adapter over a fresh fake backend, started and closed
// with the test.
func Started(t testing.TB) (*remote.Adapter, *Backend) {
	t.Helper()
	backend := New()
	adapter := remote.New(backend, nil, nil)
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("start adapter: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter, backend
}
