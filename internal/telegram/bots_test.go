package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gotd/td/tg"

	"github.com/matheus3301/tele/internal/model"
)

const botID = 777

func inline(rows ...[]tg.KeyboardButtonClass) *tg.ReplyInlineMarkup {
	markup := &tg.ReplyInlineMarkup{}
	for _, row := range rows {
		markup.Rows = append(markup.Rows, tg.KeyboardButtonRow{Buttons: row})
	}
	return markup
}

func TestDecodeReplyResults(t *testing.T) {
	msg := &tg.Message{
		ID:      50,
		Message: "Found 3 files",
		ReplyMarkup: inline(
			[]tg.KeyboardButtonClass{&tg.KeyboardButtonCallback{Text: "Movie.2024.1080p.mkv", Data: []byte("f:1")}},
			[]tg.KeyboardButtonClass{&tg.KeyboardButtonURL{Text: "Channel", URL: "https://t.me/x"}},
			[]tg.KeyboardButtonClass{
				&tg.KeyboardButtonCallback{Text: "1/4", Data: []byte("p:1")},
				&tg.KeyboardButtonCallback{Text: "Next »", Data: []byte("p:2")},
			},
		),
	}

	resp, final := decodeReply(botID, msg)
	if !final {
		t.Error("result list should end the wait")
	}
	if resp.Type != model.ResultList {
		t.Fatalf("Type = %v, want ResultList", resp.Type)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3 (url buttons skipped)", len(resp.Results))
	}
	first := resp.Results[0]
	if first.Label != "Movie.2024.1080p.mkv" || string(first.Token) != "f:1" || first.IsPaginationMarker {
		t.Errorf("first = %+v", first)
	}
	if first.SourceCollectionID != botID || first.SourceItemID != 50 {
		t.Errorf("source = %d/%d, want %d/50", first.SourceCollectionID, first.SourceItemID, botID)
	}
	if !resp.Results[1].IsPaginationMarker || !resp.Results[2].IsPaginationMarker {
		t.Error("page buttons should be pagination markers")
	}
}

func TestDecodeReplyMedia(t *testing.T) {
	resp, final := decodeReply(botID, videoMessage(60, &tg.DocumentAttributeVideo{Duration: 10}))
	if !final || resp.Type != model.ResolvedMedia {
		t.Fatalf("got %v final=%v, want ResolvedMedia", resp.Type, final)
	}
	if resp.Media.CollectionID != botID || resp.Media.ItemID != 60 {
		t.Errorf("media ids = %d/%d", resp.Media.CollectionID, resp.Media.ItemID)
	}
}

func TestDecodeReplyText(t *testing.T) {
	tests := []struct {
		text      string
		want      string
		wantFinal bool
	}{
		{"Searching…", "Searching…", false},
		{"No results found for your query", "No results found for your query", true},
		{"File NOT FOUND", "File NOT FOUND", true},
		{"   ", "No results", false},
	}
	for _, tt := range tests {
		resp, final := decodeReply(botID, &tg.Message{ID: 1, Message: tt.text})
		if resp.Type != model.Failure || resp.Failure != tt.want {
			t.Errorf("decodeReply(%q) = %v %q", tt.text, resp.Type, resp.Failure)
		}
		if final != tt.wantFinal {
			t.Errorf("decodeReply(%q) final = %v, want %v", tt.text, final, tt.wantFinal)
		}
	}
}

func TestIsPageButton(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"Next ▶", true},
		{"« Prev", true},
		{"2 / 10", true},
		{"➡️", true},
		{"Avatar (2009) 720p", false},
		{"S01E02.mkv", false},
	}
	for _, tt := range tests {
		if got := isPageButton(tt.label); got != tt.want {
			t.Errorf("isPageButton(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestExtractLink(t *testing.T) {
	tests := []struct {
		name string
		msg  *tg.Message
		want string
	}{
		{
			name: "plain text",
			msg:  &tg.Message{Message: "Your link: https://dl.example.com/f/abc."},
			want: "https://dl.example.com/f/abc",
		},
		{
			name: "stream preferred",
			msg: &tg.Message{
				Message: "Download: https://dl.example.com/f/abc\nStream: https://dl.example.com/stream/abc",
			},
			want: "https://dl.example.com/stream/abc",
		},
		{
			name: "text url entity",
			msg: &tg.Message{
				Message:  "Watch here",
				Entities: []tg.MessageEntityClass{&tg.MessageEntityTextURL{Offset: 0, Length: 10, URL: "https://v.example.com/watch/1"}},
			},
			want: "https://v.example.com/watch/1",
		},
		{
			name: "url entity after emoji",
			msg: &tg.Message{
				Message:  "🎬 https://x.example.com/a",
				Entities: []tg.MessageEntityClass{&tg.MessageEntityURL{Offset: 3, Length: 23}},
			},
			want: "https://x.example.com/a",
		},
		{
			name: "url button",
			msg: &tg.Message{
				Message:     "Ready",
				ReplyMarkup: inline([]tg.KeyboardButtonClass{&tg.KeyboardButtonURL{Text: "Open", URL: "https://b.example.com/1"}}),
			},
			want: "https://b.example.com/1",
		},
		{
			name: "none",
			msg:  &tg.Message{Message: "Processing your file, please wait"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractLink(tt.msg); got != tt.want {
				t.Errorf("extractLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeHistory serves a scripted bot chat.
type fakeHistory struct {
	mu    sync.Mutex
	msgs  []tg.MessageClass
	calls int
	err   error
}

func (f *fakeHistory) MessagesGetHistory(_ context.Context, _ *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]tg.MessageClass, len(f.msgs))
	for i, m := range f.msgs {
		cp := *m.(*tg.Message)
		out[len(f.msgs)-1-i] = &cp
	}
	return &tg.MessagesMessages{Messages: out}, nil
}

func (f *fakeHistory) add(msg *tg.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeHistory) edit(id int, fn func(*tg.Message)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if msg := m.(*tg.Message); msg.ID == id {
			fn(msg)
		}
	}
}

func TestReplyWatchIgnoresOldAndOutgoing(t *testing.T) {
	api := &fakeHistory{}
	api.add(&tg.Message{ID: 1, Message: "old reply"})
	ctx := context.Background()

	w, err := newWatch(ctx, api, &tg.InputPeerUser{UserID: botID}, 5*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	api.add(&tg.Message{ID: 2, Out: true, Message: "my query"})
	api.add(&tg.Message{ID: 3, Message: "fresh reply"})

	var got []string
	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err = w.wait(waitCtx, func(msg *tg.Message) bool {
		got = append(got, msg.Message)
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "fresh reply" {
		t.Errorf("accepted %v, want [fresh reply]", got)
	}
}

func TestReplyWatchSeesEdits(t *testing.T) {
	api := &fakeHistory{}
	api.add(&tg.Message{ID: 10, Message: "page 1"})
	ctx := context.Background()

	w, err := newWatch(ctx, api, &tg.InputPeerUser{UserID: botID}, 5*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		api.edit(10, func(m *tg.Message) {
			m.Message = "page 2"
			m.EditDate = 1700000500
		})
	}()

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	var got string
	if err := w.wait(waitCtx, func(msg *tg.Message) bool {
		got = msg.Message
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if got != "page 2" {
		t.Errorf("accepted %q, want page 2", got)
	}
}

func TestReplyWatchTimesOut(t *testing.T) {
	api := &fakeHistory{}
	w, err := newWatch(context.Background(), api, &tg.InputPeerUser{UserID: botID}, 5*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = w.wait(ctx, func(*tg.Message) bool { return true })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wait() = %v, want deadline exceeded", err)
	}
}

func TestReplyWatchReportsHistoryErrors(t *testing.T) {
	api := &fakeHistory{err: errors.New("boom")}
	if _, err := newWatch(context.Background(), api, &tg.InputPeerSelf{}, time.Millisecond); err == nil {
		t.Error("newWatch() should fail when history fails")
	}
}
