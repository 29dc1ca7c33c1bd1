// Package telegram implements remote.Backend on top of gotd.
//
// Every request runs on its own goroutine and answers through the reply
// callback; ordering is left to the remote adapter in front of it.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matheus3301/tele/internal/logging"
	"github.com/matheus3301/tele/internal/remote"
)

// Store persists the gotd session and the thumbnail index.
type Store interface {
	LoadSessionBlob(ctx context.Context) ([]byte, error)
	StoreSessionBlob(ctx context.Context, data []byte) error
	ClearSessionBlob(ctx context.Context) error
	ThumbnailPath(ctx context.Context, ref string) (string, error)
	PutThumbnail(ctx context.Context, ref, path string) error
	DeleteThumbnail(ctx context.Context, ref string) error
}

// Options tunes the backend.
type Options struct {
	ThumbnailDir   string
	SearchBot      string
	LinkBot        string
	SearchTimeout  time.Duration
	LinkTimeout    time.Duration
	RequestTimeout time.Duration
	PollInterval   time.Duration
}

const (
	defaultRequestTimeout = 30 * time.Second
	defaultPollInterval   = 700 * time.Millisecond
	startTimeout          = time.Minute
	peerCacheSize         = 1024
	maxRestartDelay       = 5 * time.Second
)

// Backend drives one gotd client per remote session.
type Backend struct {
	store Store
	opts  Options
	log   *zap.Logger
	peers *lru.Cache[int64, tg.InputPeerClass]

	mu       sync.Mutex
	sink     remote.Sink
	state    remote.AuthState
	run      *run
	api      *tg.Client
	sender   *message.Sender
	client   *telegram.Client
	selfID   int64
	bots     map[string]*tg.InputPeerUser
	phone    string
	codeHash string
	failures int
}

type run struct {
	cancel context.CancelFunc
	ready  chan struct{}
	done   chan struct{}
	err    error
}

// New creates a backend. Nothing connects until SetParameters.
func New(st Store, opts Options, logger *zap.Logger) *Backend {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	peers, _ := lru.New[int64, tg.InputPeerClass](peerCacheSize)
	return &Backend{
		store: st,
		opts:  opts,
		log:   logging.OrNop(logger).Named("telegram"),
		peers: peers,
		state: remote.StateWaitParameters,
		bots:  make(map[string]*tg.InputPeerUser),
	}
}

// Start implements remote.Backend. It resets the session to WaitParameters.
func (b *Backend) Start(_ context.Context, sink remote.Sink) error {
	b.stopRun()
	b.mu.Lock()
	b.sink = sink
	b.state = remote.StateWaitParameters
	b.phone, b.codeHash = "", ""
	b.mu.Unlock()
	sink.Notify(remote.AuthStateChanged{State: remote.StateWaitParameters})
	return nil
}

// Send implements remote.Backend.
func (b *Backend) Send(req remote.Request, reply func(remote.Response, error)) {
	go b.handle(req, reply)
}

// Close stops the gotd client.
func (b *Backend) Close() error {
	b.stopRun()
	return nil
}

func (b *Backend) handle(req remote.Request, reply func(remote.Response, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout(req))
	defer cancel()

	if _, ok := req.(remote.LogOut); ok {
		b.logOut(ctx, reply)
		return
	}

	resp, err := b.serve(ctx, req)
	if err != nil {
		err = mapError(err)
	}
	reply(resp, err)
}

func (b *Backend) timeout(req remote.Request) time.Duration {
	switch req.(type) {
	case remote.SetParameters:
		return startTimeout
	case remote.SearchQuery, remote.SelectResult:
		return b.opts.SearchTimeout + b.opts.RequestTimeout
	case remote.ResolveLink:
		return b.opts.LinkTimeout + b.opts.RequestTimeout
	default:
		return b.opts.RequestTimeout
	}
}

func (b *Backend) serve(ctx context.Context, req remote.Request) (remote.Response, error) {
	switch r := req.(type) {
	case remote.SetParameters:
		return remote.Ok{}, b.setParameters(ctx, r)
	case remote.GetAuthState:
		return remote.AuthStateResult{State: b.authState()}, nil
	case remote.SetPhone:
		return remote.Ok{}, b.setPhone(ctx, r.Phone)
	case remote.CheckCode:
		return remote.Ok{}, b.checkCode(ctx, r.Code)
	case remote.CheckPassword:
		return remote.Ok{}, b.checkPassword(ctx, r.Password)
	case remote.GetHistory:
		return b.history(ctx, r)
	case remote.GetThumbnail:
		return b.thumbnail(ctx, r.Ref)
	case remote.ListCollections:
		return b.collections(ctx, r.Limit)
	case remote.SearchQuery:
		return b.search(ctx, r.Query)
	case remote.SelectResult:
		return b.selectResult(ctx, r)
	case remote.SaveItem:
		return remote.Ok{}, b.save(ctx, r.Item)
	case remote.DeleteItem:
		return remote.Ok{}, b.delete(ctx, r.CollectionID, r.ItemID)
	case remote.ResolveLink:
		return b.resolveLink(ctx, r.Item)
	default:
		return nil, fmt.Errorf("unsupported request %T", req)
	}
}

// setParameters starts the gotd client and returns once it is connected
// and knows whether the stored session is authorized.
func (b *Backend) setParameters(ctx context.Context, p remote.SetParameters) error {
	b.mu.Lock()
	if b.run != nil {
		b.mu.Unlock()
		return nil
	}
	delay := min(time.Duration(b.failures)*time.Second, maxRestartDelay)
	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, ready: make(chan struct{}), done: make(chan struct{})}
	b.run = r
	b.mu.Unlock()

	if delay > 0 {
		b.log.Info("delaying restart", zap.Duration("delay", delay))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			b.discard(r)
			return &remote.TransportError{Err: ctx.Err()}
		}
	}

	client := telegram.NewClient(int(p.APIID), p.APIHash, telegram.Options{
		SessionStorage: &sessionStorage{store: b.store},
		Logger:         b.log.Named("gotd").WithOptions(zap.IncreaseLevel(zapcore.WarnLevel)),
	})
	b.connection(remote.ConnConnecting)

	go func() {
		err := client.Run(runCtx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("auth status: %w", err)
			}
			b.attach(client)
			b.connection(remote.ConnOnline)
			if status.Authorized {
				if err := b.authorized(ctx); err != nil {
					return err
				}
			} else {
				b.setState(remote.StateWaitPhone)
			}
			close(r.ready)
			<-ctx.Done()
			return ctx.Err()
		})
		b.detach(r, err)
	}()

	select {
	case <-r.ready:
		return nil
	case <-r.done:
		return r.err
	case <-ctx.Done():
		b.discard(r)
		return &remote.TransportError{Err: ctx.Err()}
	}
}

func (b *Backend) attach(client *telegram.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = client
	b.api = client.API()
	b.sender = message.NewSender(b.api)
	b.failures = 0
}

// detach records how a run ended. A run that dies after it was ready is
// reported as a transport error and the session falls back to WaitParameters.
func (b *Backend) detach(r *run, err error) {
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	r.err = err
	close(r.done)

	b.mu.Lock()
	if b.run != r {
		b.mu.Unlock()
		return
	}
	b.run = nil
	b.api, b.sender, b.client = nil, nil, nil
	sink := b.sink
	wasReady := isClosed(r.ready)
	if err != nil {
		b.failures++
		b.state = remote.StateWaitParameters
	}
	b.mu.Unlock()

	if err != nil {
		b.log.Warn("client stopped", zap.Error(err))
		if wasReady && sink != nil {
			sink.TransportError(&remote.TransportError{Err: err})
		}
	}
}

func (b *Backend) discard(r *run) {
	b.mu.Lock()
	if b.run == r {
		b.run = nil
	}
	b.mu.Unlock()
	r.cancel()
}

func (b *Backend) stopRun() {
	b.mu.Lock()
	r := b.run
	b.run = nil
	b.api, b.sender, b.client = nil, nil, nil
	b.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (b *Backend) connection(state remote.ConnState) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink.Notify(remote.ConnectionChanged{State: state})
	}
}

func (b *Backend) authState() remote.AuthState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// setState notifies only on change.
func (b *Backend) setState(state remote.AuthState) {
	b.mu.Lock()
	if b.state == state {
		b.mu.Unlock()
		return
	}
	b.log.Info("auth state", zap.String("from", string(b.state)), zap.String("to", string(state)))
	b.state = state
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink.Notify(remote.AuthStateChanged{State: state})
	}
}

func (b *Backend) conn() (*tg.Client, *telegram.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.api == nil {
		return nil, nil, &remote.Error{Code: 400, Message: "Not connected"}
	}
	return b.api, b.client, nil
}

func (b *Backend) self() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selfID
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
