package collections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/tele/internal/bus"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
	"github.com/matheus3301/tele/internal/remote/remotetest"
)

type gate bool

func (g gate) Authorized() bool { return bool(g) }

func TestListKeepsRemoteOrder(t *testing.T) {
	client, backend := remotetest.Started(t)
	x := NewIndexer(client, gate(true), 0, nil, nil, nil)
	backend.SetResponder(func(req remote.Request) (remote.Response, error, bool) {
		r, ok := req.(remote.ListCollections)
		if !ok {
			return nil, nil, false
		}
		if r.Limit != 5 {
			t.Errorf("Limit = %d, want 5", r.Limit)
		}
		return remote.CollectionList{Collections: []model.CollectionRef{{ID: 3, Title: "c"}, {ID: 1, Title: "a"}}}, nil, true
	})

	got, err := x.List(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 1 {
		t.Errorf("List() = %+v", got)
	}
}

func TestListDefaultLimit(t *testing.T) {
	client, backend := remotetest.Started(t)
	x := NewIndexer(client, gate(true), 0, nil, nil, nil)

	go func() { _, _ = x.List(context.Background(), 0) }()
	p, req := remotetest.NextOf[remote.ListCollections](t, backend)
	if req.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", req.Limit, DefaultLimit)
	}
	p.Reply(remote.CollectionList{})
}

func TestSidebarStartsWithPersonalStore(t *testing.T) {
	client, backend := remotetest.Started(t)
	b := bus.New()
	events, unsub := b.Subscribe("collections.", 16)
	defer unsub()
	x := NewIndexer(client, gate(true), 40, b, nil, nil)

	if err := x.LoadIfNeeded(); err != nil {
		t.Fatal(err)
	}
	_ = x.LoadIfNeeded()
	if !x.Snapshot().Loading {
		t.Error("Loading = false after LoadIfNeeded")
	}
	p, _ := remotetest.NextOf[remote.ListCollections](t, backend)
	backend.NoPending(t, 20*time.Millisecond)
	p.Reply(remote.CollectionList{Collections: []model.CollectionRef{{ID: 9, Title: "Movie night"}}})

	remotetest.Eventually(t, func() bool { return !x.Snapshot().Loading }, "sidebar loaded")
	st := x.Snapshot()
	if len(st.Candidates) != 2 || !st.Candidates[0].IsPersonalStore || st.Candidates[1].ID != 9 {
		t.Errorf("Candidates = %+v", st.Candidates)
	}
	if len(events) == 0 {
		t.Error("no collections.changed events published")
	}

	_ = x.LoadIfNeeded()
	backend.NoPending(t, 20*time.Millisecond)
}

func TestRefreshErrorKeepsCandidates(t *testing.T) {
	client, backend := remotetest.Started(t)
	x := NewIndexer(client, gate(true), 40, nil, nil, nil)

	_ = x.Refresh()
	p, _ := remotetest.NextOf[remote.ListCollections](t, backend)
	p.Reply(remote.CollectionList{})
	remotetest.Eventually(t, func() bool { return !x.Snapshot().Loading }, "first load")

	_ = x.Refresh()
	p, _ = remotetest.NextOf[remote.ListCollections](t, backend)
	p.Fail(&remote.Error{Code: 500, Message: "INTERNAL"})
	remotetest.Eventually(t, func() bool { return x.Snapshot().Error != "" }, "error shown")
	if st := x.Snapshot(); len(st.Candidates) != 1 || st.Error != "INTERNAL" {
		t.Errorf("state = %+v", st)
	}
}

func TestNotAuthorized(t *testing.T) {
	client, _ := remotetest.Started(t)
	x := NewIndexer(client, gate(false), 40, nil, nil, nil)
	if _, err := x.List(context.Background(), 1); !errors.Is(err, model.ErrNotAuthorized) {
		t.Errorf("List() error = %v", err)
	}
	if err := x.Refresh(); !errors.Is(err, model.ErrNotAuthorized) {
		t.Errorf("Refresh() error = %v", err)
	}
}
