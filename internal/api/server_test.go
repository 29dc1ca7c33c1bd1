package api

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/bus"
	"github.com/matheus3301/tele/internal/collections"
	"github.com/matheus3301/tele/internal/media"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
	"github.com/matheus3301/tele/internal/search"
	"github.com/matheus3301/tele/internal/status"
)

type fakeAuth struct {
	mu      sync.Mutex
	snap    auth.Snapshot
	phone   string
	err     error
	queried int
}

func (f *fakeAuth) Snapshot() auth.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeAuth) Query() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried++
}

func (f *fakeAuth) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeAuth) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeAuth) SubmitCredentials(string, string) error { return f.failure() }

func (f *fakeAuth) SubmitPhone(phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.phone = phone
	f.snap.Pending = true
	return nil
}

func (f *fakeAuth) SubmitCode(string) error     { return f.failure() }
func (f *fakeAuth) SubmitPassword(string) error { return f.failure() }
func (f *fakeAuth) LogOut() error               { return f.failure() }

type fakeMedia struct {
	mu        sync.Mutex
	state     media.State
	items     map[int64]model.MediaItem
	loaded    []model.CollectionRef
	focused   []int64
	deleteErr error
	link      string
}

func (f *fakeMedia) Snapshot() media.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeMedia) Item(id int64) (model.MediaItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	return item, ok
}

func (f *fakeMedia) LoadFresh(ref model.CollectionRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, ref)
	f.state.Collection = ref
	f.state.Loading = true
	return nil
}

func (f *fakeMedia) LoadIfNeeded() error { return nil }
func (f *fakeMedia) LoadMore() error     { return model.ErrNotAuthorized }

func (f *fakeMedia) Focus(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = append(f.focused, id)
}

func (f *fakeMedia) Delete(_, _ int64, done func(error)) error {
	f.mu.Lock()
	err := f.deleteErr
	f.mu.Unlock()
	go done(err)
	return nil
}

func (f *fakeMedia) ResolveLink(_ context.Context, item model.MediaItem) (string, error) {
	if item.Kind != model.KindVideo {
		return "", &remote.Error{Code: 400, Message: "Only videos can be played"}
	}
	return f.link, nil
}

func (f *fakeMedia) DismissError() {}

type fakeSearch struct {
	mu   sync.Mutex
	snap search.Snapshot
}

func (f *fakeSearch) Snapshot() search.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSearch) Search(q string) error {
	if len(q) < 2 {
		return model.Invalid("query", search.MsgQueryShort)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = search.Snapshot{Phase: search.Searching, Query: q, HasSearched: true}
	return nil
}

func (f *fakeSearch) SelectResult(model.SearchResult) error {
	return &remote.TransportError{Err: errors.New("offline")}
}

func (f *fakeSearch) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = search.Snapshot{Phase: search.Idle}
}

func (f *fakeSearch) ConsumeFocusFirstResult() bool { return true }
func (f *fakeSearch) ConsumeRefreshMedia() bool     { return false }

type fakeIndexer struct {
	state collections.State
}

func (f *fakeIndexer) Snapshot() collections.State { return f.state }
func (f *fakeIndexer) LoadIfNeeded() error         { return nil }
func (f *fakeIndexer) Refresh() error              { return nil }

type harness struct {
	conn    *grpc.ClientConn
	bus     *bus.Bus
	machine *status.Machine
	auth    *fakeAuth
	media   *fakeMedia
	search  *fakeSearch
}

func startServer(t *testing.T) *harness {
	t.Helper()
	// Short path to stay under the Unix socket length limit.
	dir, err := os.MkdirTemp("/tmp", "tele-api-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socketPath := filepath.Join(dir, "d.sock")

	h := &harness{
		bus:    bus.New(),
		auth:   &fakeAuth{snap: auth.Snapshot{State: auth.AwaitingPhone, Message: auth.MsgEnterPhone}},
		media:  &fakeMedia{items: map[int64]model.MediaItem{}, link: "https://example.org/v.mp4"},
		search: &fakeSearch{snap: search.Snapshot{Phase: search.Idle}},
	}
	h.machine = status.NewMachine(h.bus)

	srv := NewServer(Deps{
		Session:     "test",
		Auth:        h.auth,
		Media:       h.media,
		Search:      h.search,
		Collections: &fakeIndexer{state: collections.State{Candidates: []model.CollectionRef{model.PersonalStore()}}},
		Status:      h.machine,
		Bus:         h.bus,
	})
	grpcSrv := grpc.NewServer()
	grpcSrv.RegisterService(&ServiceDesc, srv)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = grpcSrv.Serve(listener) }()
	t.Cleanup(grpcSrv.Stop)

	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	h.conn = conn
	return h
}

func invoke[Resp any](t *testing.T, h *harness, method string, req any) (*Resp, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := new(Resp)
	err := h.conn.Invoke(ctx, Method(method), req, out)
	return out, err
}

func TestGetStatus(t *testing.T) {
	h := startServer(t)
	if err := h.machine.Transition(status.Connecting); err != nil {
		t.Fatal(err)
	}

	resp, err := invoke[StatusReply](t, h, "GetStatus", &emptypb.Empty{})
	if err != nil {
		t.Fatalf("GetStatus error = %v", err)
	}
	if resp.Session != "test" {
		t.Errorf("session = %q, want test", resp.Session)
	}
	if resp.Connection != status.Connecting {
		t.Errorf("connection = %s, want CONNECTING", resp.Connection)
	}
	if resp.Auth.State != auth.AwaitingPhone {
		t.Errorf("auth state = %s, want AWAITING_PHONE", resp.Auth.State)
	}
	if resp.PID != os.Getpid() {
		t.Errorf("pid = %d", resp.PID)
	}
}

func TestAuthIntents(t *testing.T) {
	h := startServer(t)

	snap, err := invoke[auth.Snapshot](t, h, "SubmitPhone", &PhoneRequest{Phone: "+100"})
	if err != nil {
		t.Fatalf("SubmitPhone error = %v", err)
	}
	h.auth.mu.Lock()
	phone := h.auth.phone
	h.auth.mu.Unlock()
	if !snap.Pending || phone != "+100" {
		t.Errorf("snapshot = %+v, phone = %q", snap, phone)
	}

	if _, err := invoke[auth.Snapshot](t, h, "QueryAuth", &emptypb.Empty{}); err != nil {
		t.Fatal(err)
	}
	h.auth.mu.Lock()
	defer h.auth.mu.Unlock()
	if h.auth.queried != 1 {
		t.Errorf("queried = %d, want 1", h.auth.queried)
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(h *harness)
		method string
		req    any
		code   codes.Code
		msg    string
	}{
		{
			name:   "validation",
			setup:  func(h *harness) { h.auth.fail(model.Invalid("phone", auth.MsgEnterPhone)) },
			method: "SubmitPhone",
			req:    &PhoneRequest{},
			code:   codes.InvalidArgument,
			msg:    auth.MsgEnterPhone,
		},
		{
			name:   "read only",
			setup:  func(h *harness) { h.auth.fail(auth.ErrReadOnly) },
			method: "SubmitCode",
			req:    &CodeRequest{Code: "12345"},
			code:   codes.FailedPrecondition,
		},
		{
			name:   "not authorized",
			method: "LoadMore",
			req:    &emptypb.Empty{},
			code:   codes.FailedPrecondition,
			msg:    model.ErrNotAuthorized.Error(),
		},
		{
			name: "remote error",
			setup: func(h *harness) {
				h.media.mu.Lock()
				h.media.deleteErr = &remote.Error{Code: 403, Message: "Message delete forbidden"}
				h.media.mu.Unlock()
			},
			method: "DeleteItem",
			req:    &ItemRequest{CollectionID: 1, ItemID: 2},
			code:   codes.FailedPrecondition,
			msg:    "Message delete forbidden",
		},
		{
			name:   "transport",
			method: "SelectResult",
			req:    &SelectRequest{Result: model.SearchResult{Label: "Dune", Token: []byte("1")}},
			code:   codes.Unavailable,
			msg:    "offline",
		},
		{
			name:   "unknown item",
			method: "ResolveLink",
			req:    &ItemRequest{ItemID: 99},
			code:   codes.NotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := startServer(t)
			if tt.setup != nil {
				tt.setup(h)
			}
			_, err := invoke[emptypb.Empty](t, h, tt.method, tt.req)
			st, _ := grpcstatus.FromError(err)
			if st.Code() != tt.code {
				t.Fatalf("code = %s, want %s (err = %v)", st.Code(), tt.code, err)
			}
			if tt.msg != "" && st.Message() != tt.msg {
				t.Errorf("message = %q, want %q", st.Message(), tt.msg)
			}
		})
	}
}

func TestMediaRPCs(t *testing.T) {
	h := startServer(t)
	h.media.mu.Lock()
	h.media.items[7] = model.MediaItem{ItemID: 7, Kind: model.KindVideo}
	h.media.mu.Unlock()

	ref := model.CollectionRef{ID: 42, Title: "Movies"}
	st, err := invoke[media.State](t, h, "LoadFresh", &LoadRequest{Collection: ref})
	if err != nil {
		t.Fatal(err)
	}
	if !st.Loading || st.Collection.ID != 42 {
		t.Errorf("state = %+v", st)
	}

	if _, err := invoke[emptypb.Empty](t, h, "Focus", &ItemRequest{ItemID: 7}); err != nil {
		t.Fatal(err)
	}
	h.media.mu.Lock()
	focused := append([]int64(nil), h.media.focused...)
	h.media.mu.Unlock()
	if len(focused) != 1 || focused[0] != 7 {
		t.Errorf("focused = %v", focused)
	}

	link, err := invoke[LinkReply](t, h, "ResolveLink", &ItemRequest{ItemID: 7})
	if err != nil {
		t.Fatal(err)
	}
	if link.URL != "https://example.org/v.mp4" {
		t.Errorf("url = %q", link.URL)
	}

	if _, err := invoke[media.State](t, h, "DeleteItem", &ItemRequest{CollectionID: 42, ItemID: 7}); err != nil {
		t.Errorf("DeleteItem error = %v", err)
	}
}

func TestSearchRPCs(t *testing.T) {
	h := startServer(t)

	snap, err := invoke[search.Snapshot](t, h, "Search", &SearchRequest{Query: "dune"})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Phase != search.Searching || snap.Query != "dune" {
		t.Errorf("snapshot = %+v", snap)
	}

	flag, err := invoke[FlagReply](t, h, "ConsumeFocusFirstResult", &emptypb.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if !flag.Value {
		t.Error("ConsumeFocusFirstResult = false, want true")
	}

	snap, err = invoke[search.Snapshot](t, h, "ClearSearch", &emptypb.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Phase != search.Idle {
		t.Errorf("phase after clear = %s", snap.Phase)
	}
}

func TestGetCandidates(t *testing.T) {
	h := startServer(t)
	st, err := invoke[collections.State](t, h, "GetCandidates", &emptypb.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Candidates) != 1 || !st.Candidates[0].IsPersonalStore {
		t.Errorf("candidates = %+v", st.Candidates)
	}
}

func TestWatch(t *testing.T) {
	h := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := h.conn.NewStream(ctx, WatchStreamDesc, Method("Watch"))
	if err != nil {
		t.Fatal(err)
	}
	if err := stream.SendMsg(&WatchRequest{Topics: []string{TopicStatus, TopicMedia}}); err != nil {
		t.Fatal(err)
	}
	if err := stream.CloseSend(); err != nil {
		t.Fatal(err)
	}

	recv := func() *Envelope {
		t.Helper()
		env := new(Envelope)
		if err := stream.RecvMsg(env); err != nil {
			t.Fatalf("RecvMsg error = %v", err)
		}
		return env
	}

	// Initial snapshots in request order.
	if env := recv(); env.Topic != TopicStatus || env.Status == nil || env.Status.Connection != status.Booting {
		t.Fatalf("first envelope = %+v", env)
	}
	if env := recv(); env.Topic != TopicMedia || env.Media == nil {
		t.Fatalf("second envelope = %+v", env)
	}

	// The subscription is registered before the initial sends, so the
	// next publish is observed. Unwatched topics are skipped.
	h.bus.Emit(bus.KindSearchChanged, nil)
	if err := h.machine.Transition(status.Connecting); err != nil {
		t.Fatal(err)
	}
	env := recv()
	if env.Topic != TopicStatus || env.Status.Connection != status.Connecting {
		t.Errorf("change envelope = %+v", env)
	}
	if env.ID == "" {
		t.Error("envelope id is empty")
	}
}

func TestWatchRejectsUnknownTopic(t *testing.T) {
	h := startServer(t)
	stream, err := h.conn.NewStream(context.Background(), WatchStreamDesc, Method("Watch"))
	if err != nil {
		t.Fatal(err)
	}
	if err := stream.SendMsg(&WatchRequest{Topics: []string{"bogus"}}); err != nil {
		t.Fatal(err)
	}
	_ = stream.CloseSend()
	err = stream.RecvMsg(new(Envelope))
	if st, _ := grpcstatus.FromError(err); st.Code() != codes.InvalidArgument {
		t.Errorf("err = %v, want InvalidArgument", err)
	}
}
