// Package remote turns the messaging backend's callback API into one
// asynchronous request primitive plus an ordered notification stream.
//
// A single worker goroutine dispatches every request and delivers every
// completion and notification, so callers observe them serially.
package remote

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/logging"
	"github.com/matheus3301/tele/internal/metrics"
)

// Sink receives unsolicited events from a Backend. Its methods never block.
type Sink interface {
	Notify(Notification)
	TransportError(error)
}

// Backend is the messaging library behind the adapter.
type Backend interface {
	// Start prepares the backend and begins emitting notifications to sink.
	// ctx bounds the start itself, not the backend's lifetime. Start is
	// called again to open a fresh session after a Closed notification.
	Start(ctx context.Context, sink Sink) error
	// Send must not block and must call reply exactly once, from any goroutine.
	Send(req Request, reply func(Response, error))
	Close() error
}

// Callback receives the outcome of a request on the worker goroutine.
type Callback func(Response, error)

// Call is one in-flight request.
type Call struct {
	ID      string
	Request Request

	done Callback
	sent time.Time
}

type subscriber struct {
	onNotification   func(Notification)
	onTransportError func(error)
}

// Adapter serializes access to a Backend.
type Adapter struct {
	backend Backend
	log     *zap.Logger
	metrics *metrics.Metrics
	box     *mailbox
	ready   chan struct{}
	stop    chan struct{}
	exited  chan struct{}

	mu       sync.Mutex
	started  bool
	shutdown bool
	closed   bool
	pending  map[string]*Call
	subs     map[int]subscriber
	nextSub  int
}

// New wraps backend. The worker starts with Start.
func New(backend Backend, logger *zap.Logger, m *metrics.Metrics) *Adapter {
	return &Adapter{
		backend: backend,
		log:     logging.OrNop(logger).Named("remote"),
		metrics: m,
		box:     newMailbox(),
		ready:   make(chan struct{}),
		stop:    make(chan struct{}),
		exited:  make(chan struct{}),
		pending: make(map[string]*Call),
		subs:    make(map[int]subscriber),
	}
}

// Start starts the backend and then the worker. Requests sent earlier stay
// queued until the worker runs.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started || a.shutdown {
		a.mu.Unlock()
		return errors.New("remote adapter already started")
	}
	a.started = true
	a.mu.Unlock()

	if err := a.backend.Start(ctx, sink{a}); err != nil {
		return fmt.Errorf("start backend: %w", err)
	}
	go a.run()
	close(a.ready)
	a.log.Info("remote adapter started")
	return nil
}

// Ready is closed once the adapter has started.
func (a *Adapter) Ready() <-chan struct{} {
	return a.ready
}

// Closed reports whether the remote session reported Closed or the adapter
// was shut down.
func (a *Adapter) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Send queues req and returns immediately. done is called exactly once on
// the worker goroutine. After Closed, done receives ErrClientClosed.
func (a *Adapter) Send(req Request, done Callback) *Call {
	call := &Call{ID: uuid.NewString(), Request: req, done: done}

	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		go a.finish(call, nil, ErrClientClosed)
		return call
	}
	if a.closed {
		a.mu.Unlock()
		a.box.push(func() { a.finish(call, nil, ErrClientClosed) })
		return call
	}
	a.pending[call.ID] = call
	a.mu.Unlock()

	a.box.push(func() { a.dispatch(call) })
	return call
}

// Do sends req and waits for its outcome or ctx.
func (a *Adapter) Do(ctx context.Context, req Request) (Response, error) {
	type result struct {
		resp Response
		err  error
	}
	ch := make(chan result, 1)
	a.Send(req, func(resp Response, err error) {
		ch <- result{resp, err}
	})
	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers handlers for notifications and transport errors.
// Either may be nil. Handlers run on the worker goroutine.
func (a *Adapter) Subscribe(onNotification func(Notification), onTransportError func(error)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = subscriber{onNotification: onNotification, onTransportError: onTransportError}
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Reopen re-arms the adapter after the remote session reported Closed and
// starts a fresh backend session.
func (a *Adapter) Reopen(ctx context.Context) error {
	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		return ErrClientClosed
	}
	a.closed = false
	a.mu.Unlock()

	if err := a.backend.Start(ctx, sink{a}); err != nil {
		return fmt.Errorf("restart backend: %w", err)
	}
	a.log.Info("remote session reopened")
	return nil
}

// Close fails every pending request with ErrClientClosed, closes the
// backend and stops the worker. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		return nil
	}
	a.shutdown = true
	a.closed = true
	started := a.started
	failed := a.takePendingLocked()
	a.mu.Unlock()

	if started {
		a.box.push(func() {
			for _, call := range failed {
				a.finish(call, nil, ErrClientClosed)
			}
		})
	} else {
		for _, call := range failed {
			go a.finish(call, nil, ErrClientClosed)
		}
	}

	err := a.backend.Close()
	if started {
		close(a.stop)
		<-a.exited
	}
	a.log.Info("remote adapter closed")
	return err
}

func (a *Adapter) run() {
	defer close(a.exited)
	for {
		select {
		case <-a.box.signal:
			a.runTasks()
		case <-a.stop:
			a.runTasks()
			return
		}
	}
}

func (a *Adapter) runTasks() {
	for _, task := range a.box.drain() {
		task()
	}
}

func (a *Adapter) dispatch(call *Call) {
	a.mu.Lock()
	_, ok := a.pending[call.ID]
	a.mu.Unlock()
	if !ok {
		return
	}

	call.sent = time.Now()
	a.log.Debug("dispatch", zap.String("request_id", call.ID), zap.String("kind", call.Request.Kind()))
	a.backend.Send(call.Request, func(resp Response, err error) {
		a.box.push(func() { a.complete(call.ID, resp, err) })
	})
}

func (a *Adapter) complete(id string, resp Response, err error) {
	a.mu.Lock()
	call, ok := a.pending[id]
	delete(a.pending, id)
	a.mu.Unlock()
	if !ok {
		return
	}
	a.finish(call, resp, err)
}

func (a *Adapter) finish(call *Call, resp Response, err error) {
	elapsed := time.Duration(0)
	if !call.sent.IsZero() {
		elapsed = time.Since(call.sent)
	}
	a.metrics.ObserveRemote(call.Request.Kind(), outcome(err), elapsed)
	if err != nil {
		a.log.Debug("request failed",
			zap.String("request_id", call.ID),
			zap.String("kind", call.Request.Kind()),
			zap.Error(err))
	}
	if call.done != nil {
		call.done(resp, err)
	}
}

func (a *Adapter) takePendingLocked() []*Call {
	calls := make([]*Call, 0, len(a.pending))
	for _, call := range a.pending {
		calls = append(calls, call)
	}
	a.pending = make(map[string]*Call)
	return calls
}

func (a *Adapter) notify(n Notification) {
	if change, ok := n.(AuthStateChanged); ok && change.State == StateClosed {
		a.mu.Lock()
		a.closed = true
		failed := a.takePendingLocked()
		a.mu.Unlock()
		for _, call := range failed {
			a.finish(call, nil, ErrClientClosed)
		}
	}
	for _, sub := range a.subscribers() {
		if sub.onNotification != nil {
			sub.onNotification(n)
		}
	}
}

func (a *Adapter) transportError(err error) {
	var te *TransportError
	if !errors.As(err, &te) {
		err = &TransportError{Err: err}
	}
	a.log.Warn("transport error", zap.Error(err))
	for _, sub := range a.subscribers() {
		if sub.onTransportError != nil {
			sub.onTransportError(err)
		}
	}
}

func (a *Adapter) subscribers() []subscriber {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]int, 0, len(a.subs))
	for id := range a.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]subscriber, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, a.subs[id])
	}
	return subs
}

type sink struct {
	a *Adapter
}

func (s sink) Notify(n Notification) {
	s.a.box.push(func() { s.a.notify(n) })
}

func (s sink) TransportError(err error) {
	s.a.box.push(func() { s.a.transportError(err) })
}

func outcome(err error) string {
	var te *TransportError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrClientClosed):
		return metrics.OutcomeClosed
	case errors.As(err, &te):
		return metrics.OutcomeTransport
	default:
		return metrics.OutcomeRemote
	}
}

// As converts a completion into the expected response type.
func As[T Response](resp Response, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := resp.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected response %T, want %T", resp, zero)
	}
	return typed, nil
}
