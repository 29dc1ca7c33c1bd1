package media

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/tele/internal/bus"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
	"github.com/matheus3301/tele/internal/remote/remotetest"
)

type gate struct{ ok atomic.Bool }

func (g *gate) Authorized() bool { return g.ok.Load() }

func newTestEngine(t *testing.T) (*Engine, *remotetest.Backend, *gate) {
	t.Helper()
	adapter, backend := remotetest.Started(t)
	g := &gate{}
	g.ok.Store(true)
	e := NewEngine(adapter, g, bus.New(), nil, nil, Options{RetryDelay: 30 * time.Millisecond})
	t.Cleanup(e.Stop)
	return e, backend, g
}

func items(collectionID int64, ids ...int64) []model.MediaItem {
	out := make([]model.MediaItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.MediaItem{CollectionID: collectionID, ItemID: id, Kind: model.KindVideo, Title: fmt.Sprintf("item %d", id)})
	}
	return out
}

func ids(st State) []int64 {
	out := make([]int64, 0, len(st.Items))
	for _, item := range st.Items {
		out = append(out, item.ItemID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitFor(t *testing.T, e *Engine, cond func(State) bool, msg string) State {
	t.Helper()
	remotetest.Eventually(t, func() bool { return cond(e.Snapshot()) }, msg)
	return e.Snapshot()
}

func notLoading(st State) bool { return !st.Loading && !st.LoadingMore }

func checkCursorInvariant(t *testing.T, st State) {
	t.Helper()
	if st.HasMore != !st.Cursor.Done() {
		t.Fatalf("HasMore = %v with cursor %s", st.HasMore, st.Cursor)
	}
}

func TestLoadFreshFirstPage(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	if err := e.LoadFresh(model.PersonalStore()); err != nil {
		t.Fatal(err)
	}
	st := e.Snapshot()
	if !st.Loading || !st.Collection.IsPersonalStore {
		t.Errorf("state after LoadFresh = %+v", st)
	}

	p, req := remotetest.NextOf[remote.GetHistory](t, backend)
	if req.From != model.CursorStart || req.Limit != DefaultPageSize || !req.Collection.IsPersonalStore {
		t.Errorf("request = %+v", req)
	}
	p.Reply(remote.Page{Items: items(0, 30, 20, 10), Next: model.After(10)})

	st = waitFor(t, e, notLoading, "first page applied")
	if !equalIDs(ids(st), []int64{30, 20, 10}) {
		t.Errorf("items = %v", ids(st))
	}
	if !st.HasMore || st.Cursor != model.After(10) {
		t.Errorf("cursor = %s, hasMore = %v", st.Cursor, st.HasMore)
	}
	checkCursorInvariant(t, st)
}

func TestEndCursorMakesLoadMoreNoop(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	_ = e.LoadFresh(model.PersonalStore())
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: items(0, 5), Next: model.CursorEnd})

	st := waitFor(t, e, notLoading, "page applied")
	if st.HasMore {
		t.Fatal("HasMore = true after end cursor")
	}
	checkCursorInvariant(t, st)

	if err := e.LoadMore(); err != nil {
		t.Fatal(err)
	}
	backend.NoPending(t, 30*time.Millisecond)
	if n := backend.Count(remote.GetHistory{}); n != 1 {
		t.Errorf("GetHistory sent %d times, want 1", n)
	}
}

func TestZeroNextCursorMeansNoMore(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	_ = e.LoadFresh(model.PersonalStore())
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: items(0, 5), Next: 0})

	st := waitFor(t, e, notLoading, "page applied")
	if st.HasMore || !st.Cursor.Done() {
		t.Errorf("cursor = %s, hasMore = %v", st.Cursor, st.HasMore)
	}
}

func TestLoadMoreAppendsAndDedups(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	_ = e.LoadFresh(model.PersonalStore())
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: items(0, 9, 8, 7), Next: model.After(7)})
	waitFor(t, e, notLoading, "first page")

	if err := e.LoadMore(); err != nil {
		t.Fatal(err)
	}
	if !e.Snapshot().LoadingMore {
		t.Error("LoadingMore = false right after LoadMore")
	}
	_ = e.LoadMore()

	p, req := remotetest.NextOf[remote.GetHistory](t, backend)
	if req.From != model.After(7) {
		t.Errorf("From = %s, want 7", req.From)
	}
	backend.NoPending(t, 20*time.Millisecond)

	p.Reply(remote.Page{Items: items(0, 7, 6, 5), Next: model.After(5)})
	st := waitFor(t, e, notLoading, "second page")
	if !equalIDs(ids(st), []int64{9, 8, 7, 6, 5}) {
		t.Errorf("items = %v", ids(st))
	}
	checkCursorInvariant(t, st)
}

func TestApplyingSamePageTwiceNeverDuplicates(t *testing.T) {
	page := items(0, 3, 2, 1)
	held := appendUnique(nil, page)
	held = appendUnique(held, page)
	if len(held) != 3 {
		t.Errorf("len = %d, want 3", len(held))
	}
	dupInPage := appendUnique(nil, items(0, 1, 1, 2))
	if len(dupInPage) != 2 {
		t.Errorf("duplicates inside one page kept: %d", len(dupInPage))
	}
}

func TestSwitchingCollectionsDiscardsStalePages(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	a := model.CollectionRef{ID: 100, Title: "A"}
	b := model.CollectionRef{ID: 200, Title: "B"}

	_ = e.LoadFresh(a)
	pa, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	_ = e.LoadFresh(b)
	pb, req := remotetest.NextOf[remote.GetHistory](t, backend)
	if req.Collection.ID != 200 {
		t.Fatalf("second request for %d", req.Collection.ID)
	}

	pb.Reply(remote.Page{Items: items(200, 2, 1), Next: model.CursorEnd})
	waitFor(t, e, notLoading, "B applied")
	pa.Reply(remote.Page{Items: items(100, 99, 98), Next: model.After(98)})
	time.Sleep(30 * time.Millisecond)

	st := e.Snapshot()
	if st.Collection.ID != 200 || !equalIDs(ids(st), []int64{2, 1}) {
		t.Errorf("state = collection %d items %v, want only B", st.Collection.ID, ids(st))
	}
	if st.HasMore {
		t.Error("stale page changed the cursor")
	}
}

func TestStalePageArrivingFirstIsDiscarded(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	a := model.CollectionRef{ID: 100}
	b := model.CollectionRef{ID: 200}

	_ = e.LoadFresh(a)
	pa, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	_ = e.LoadFresh(b)
	pb, _ := remotetest.NextOf[remote.GetHistory](t, backend)

	pa.Reply(remote.Page{Items: items(100, 50), Next: model.CursorEnd})
	time.Sleep(20 * time.Millisecond)
	if st := e.Snapshot(); len(st.Items) != 0 || !st.Loading {
		t.Fatalf("stale page applied: %+v", st)
	}
	pb.Reply(remote.Page{Items: items(200, 7), Next: model.CursorEnd})
	st := waitFor(t, e, notLoading, "B applied")
	if !equalIDs(ids(st), []int64{7}) {
		t.Errorf("items = %v", ids(st))
	}
}

func TestRefreshSameCollectionWhileLoadingIsNoop(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	a := model.CollectionRef{ID: 100}

	_ = e.LoadFresh(a)
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: items(100, 3), Next: model.CursorEnd})
	waitFor(t, e, notLoading, "page applied")

	_ = e.LoadFresh(a)
	st := e.Snapshot()
	if !st.Loading || len(st.Items) != 1 {
		t.Fatalf("refresh should keep items while loading: %+v", st)
	}
	_ = e.LoadFresh(a)

	remotetest.NextOf[remote.GetHistory](t, backend)
	backend.NoPending(t, 20*time.Millisecond)
}

func TestLoadMoreSupersededByFreshLoad(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	a := model.CollectionRef{ID: 100}

	_ = e.LoadFresh(a)
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: items(100, 9), Next: model.After(9)})
	waitFor(t, e, notLoading, "first page")

	_ = e.LoadMore()
	more, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	_ = e.LoadFresh(a)
	if e.Snapshot().LoadingMore {
		t.Error("LoadingMore survived a fresh load")
	}
	fresh, _ := remotetest.NextOf[remote.GetHistory](t, backend)

	more.Reply(remote.Page{Items: items(100, 8), Next: model.CursorEnd})
	fresh.Reply(remote.Page{Items: items(100, 10, 9), Next: model.After(9)})
	st := waitFor(t, e, notLoading, "fresh page")
	time.Sleep(20 * time.Millisecond)
	st = e.Snapshot()
	if !equalIDs(ids(st), []int64{10, 9}) || !st.HasMore {
		t.Errorf("state = %v hasMore=%v", ids(st), st.HasMore)
	}
}

func TestPageErrorKeepsLastGoodItems(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	_ = e.LoadFresh(model.PersonalStore())
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: items(0, 4), Next: model.After(4)})
	waitFor(t, e, notLoading, "first page")

	_ = e.LoadMore()
	p, _ = remotetest.NextOf[remote.GetHistory](t, backend)
	p.Fail(&remote.Error{Code: 420, Message: "FLOOD_WAIT_3"})

	st := waitFor(t, e, func(s State) bool { return s.Error != "" }, "error surfaced")
	if st.Error != "FLOOD_WAIT_3" || st.LoadingMore {
		t.Errorf("state = %+v", st)
	}
	if !equalIDs(ids(st), []int64{4}) || !st.HasMore {
		t.Errorf("items or cursor changed on error: %v %v", ids(st), st.HasMore)
	}

	e.DismissError()
	if e.Snapshot().Error != "" {
		t.Error("DismissError did not clear the error")
	}
}

func TestNotAuthorizedRejectsIntents(t *testing.T) {
	e, backend, g := newTestEngine(t)
	g.ok.Store(false)

	if err := e.LoadFresh(model.PersonalStore()); !errors.Is(err, model.ErrNotAuthorized) {
		t.Errorf("LoadFresh() error = %v", err)
	}
	if err := e.LoadMore(); !errors.Is(err, model.ErrNotAuthorized) {
		t.Errorf("LoadMore() error = %v", err)
	}
	if err := e.Delete(1, 2, nil); !errors.Is(err, model.ErrNotAuthorized) {
		t.Errorf("Delete() error = %v", err)
	}
	backend.NoPending(t, 20*time.Millisecond)
}

func TestLoadIfNeeded(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	_ = e.LoadIfNeeded()
	_ = e.LoadIfNeeded()
	p, req := remotetest.NextOf[remote.GetHistory](t, backend)
	if !req.Collection.IsPersonalStore {
		t.Errorf("LoadIfNeeded loaded %+v", req.Collection)
	}
	backend.NoPending(t, 20*time.Millisecond)

	p.Reply(remote.Page{Items: items(0, 1), Next: model.CursorEnd})
	waitFor(t, e, notLoading, "page applied")
	_ = e.LoadIfNeeded()
	backend.NoPending(t, 20*time.Millisecond)
}

func TestThumbnailsResolveAndApply(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	backend.SetResponder(func(req remote.Request) (remote.Response, error, bool) {
		if r, ok := req.(remote.GetThumbnail); ok {
			return remote.ThumbnailFile{Ref: r.Ref, Path: "/thumbs/" + r.Ref}, nil, true
		}
		return nil, nil, false
	})

	page := items(0, 2, 1)
	page[0].ThumbnailRef = "p2"
	page[1].ThumbnailPath = "/already/there"
	page[1].ThumbnailRef = "p1"

	_ = e.LoadFresh(model.PersonalStore())
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: page, Next: model.CursorEnd})

	st := waitFor(t, e, func(s State) bool {
		return len(s.Items) == 2 && s.Items[0].ThumbnailPath != ""
	}, "thumbnail applied")
	if st.Items[0].ThumbnailPath != "/thumbs/p2" {
		t.Errorf("path = %q", st.Items[0].ThumbnailPath)
	}
	if st.Items[1].ThumbnailPath != "/already/there" {
		t.Errorf("resolved item was overwritten: %q", st.Items[1].ThumbnailPath)
	}
	for _, req := range backend.Requests() {
		if r, ok := req.(remote.GetThumbnail); ok && r.Ref == "p1" {
			t.Error("requested a thumbnail that was already resolved")
		}
	}
}

func TestLateThumbnailForSupersededCollectionIsDiscarded(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	a := model.CollectionRef{ID: 100}
	b := model.CollectionRef{ID: 200}

	page := items(100, 1)
	page[0].ThumbnailRef = "a1"
	_ = e.LoadFresh(a)
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: page, Next: model.CursorEnd})
	thumb, _ := remotetest.NextOf[remote.GetThumbnail](t, backend)

	_ = e.LoadFresh(b)
	p, _ = remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: items(200, 1), Next: model.CursorEnd})
	waitFor(t, e, func(s State) bool { return s.Collection.ID == 200 && notLoading(s) }, "B applied")

	thumb.Reply(remote.ThumbnailFile{Ref: "a1", Path: "/thumbs/a1"})
	time.Sleep(30 * time.Millisecond)
	if got := e.Snapshot().Items[0].ThumbnailPath; got != "" {
		t.Errorf("late thumbnail applied to another collection's item: %q", got)
	}
}

func TestRetrySweepRunsOnce(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	var calls atomic.Int32
	backend.SetResponder(func(req remote.Request) (remote.Response, error, bool) {
		r, ok := req.(remote.GetThumbnail)
		if !ok {
			return nil, nil, false
		}
		if calls.Add(1) == 1 {
			return nil, &remote.Error{Code: 400, Message: "FILE_NOT_READY"}, true
		}
		return remote.ThumbnailFile{Ref: r.Ref, Path: "/thumbs/" + r.Ref}, nil, true
	})

	page := items(0, 1)
	page[0].ThumbnailRef = "slow"
	_ = e.LoadFresh(model.PersonalStore())
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: page, Next: model.CursorEnd})

	st := waitFor(t, e, func(s State) bool {
		return len(s.Items) == 1 && s.Items[0].ThumbnailPath != ""
	}, "retry resolved thumbnail")
	if st.Items[0].ThumbnailPath != "/thumbs/slow" {
		t.Errorf("path = %q", st.Items[0].ThumbnailPath)
	}
	time.Sleep(100 * time.Millisecond)
	if n := calls.Load(); n != 2 {
		t.Errorf("thumbnail requests = %d, want 2 (initial + one retry)", n)
	}
}

func TestFocusResolvesMissingThumbnail(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	page := items(0, 1)
	page[0].ThumbnailRef = "f1"
	_ = e.LoadFresh(model.PersonalStore())
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: page, Next: model.CursorEnd})
	first, _ := remotetest.NextOf[remote.GetThumbnail](t, backend)
	first.Fail(&remote.Error{Code: 400, Message: "nope"})

	e.Focus(1)
	again, req := remotetest.NextOf[remote.GetThumbnail](t, backend)
	if req.Ref != "f1" {
		t.Errorf("Ref = %q", req.Ref)
	}
	again.Reply(remote.ThumbnailFile{Ref: "f1", Path: "/thumbs/f1"})
	waitFor(t, e, func(s State) bool { return s.Items[0].ThumbnailPath == "/thumbs/f1" }, "focus applied thumbnail")

	e.Focus(1)
	e.Focus(404)
}

func TestDeleteRemovesOnlyAfterAck(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	_ = e.LoadFresh(model.PersonalStore())
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: items(0, 3, 2, 1), Next: model.CursorEnd})
	waitFor(t, e, notLoading, "page applied")

	done := make(chan error, 1)
	if err := e.Delete(0, 2, func(err error) { done <- err }); err != nil {
		t.Fatal(err)
	}
	del, req := remotetest.NextOf[remote.DeleteItem](t, backend)
	if req.ItemID != 2 {
		t.Errorf("ItemID = %d", req.ItemID)
	}
	if len(e.Snapshot().Items) != 3 {
		t.Fatal("item removed before acknowledgment")
	}
	del.Reply(remote.Ok{})
	if err := <-done; err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if got := ids(e.Snapshot()); !equalIDs(got, []int64{3, 1}) {
		t.Errorf("items = %v", got)
	}
}

func TestDeleteFailureKeepsItems(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	_ = e.LoadFresh(model.PersonalStore())
	p, _ := remotetest.NextOf[remote.GetHistory](t, backend)
	p.Reply(remote.Page{Items: items(0, 1), Next: model.CursorEnd})
	waitFor(t, e, notLoading, "page applied")

	done := make(chan error, 1)
	_ = e.Delete(0, 1, func(err error) { done <- err })
	del, _ := remotetest.NextOf[remote.DeleteItem](t, backend)
	del.Fail(&remote.Error{Code: 403, Message: "MESSAGE_DELETE_FORBIDDEN"})

	if err := <-done; err == nil {
		t.Fatal("expected delete error")
	}
	st := e.Snapshot()
	if len(st.Items) != 1 || st.Error != "MESSAGE_DELETE_FORBIDDEN" {
		t.Errorf("state = %+v", st)
	}
}

func TestResolveLink(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	backend.SetResponder(func(req remote.Request) (remote.Response, error, bool) {
		if _, ok := req.(remote.ResolveLink); ok {
			return remote.Link{URL: "https://dl.example/v.mp4"}, nil, true
		}
		return nil, nil, false
	})

	_, err := e.ResolveLink(context.Background(), model.MediaItem{Kind: model.KindImage})
	if !model.IsValidation(err) {
		t.Errorf("image ResolveLink error = %v, want validation error", err)
	}

	url, err := e.ResolveLink(context.Background(), model.MediaItem{Kind: model.KindVideo, ItemID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://dl.example/v.mp4" {
		t.Errorf("url = %q", url)
	}
}
