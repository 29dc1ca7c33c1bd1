package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
)

const (
	watchDepth         = 10
	msgNoResults       = "No results"
	msgNoSearchAnswer  = "No response from search bot"
	msgOnlyVideos      = "Only videos can be played"
	msgNoLink          = "No link received"
	botResponseTimeout = "BOT_RESPONSE_TIMEOUT"
)

var (
	urlPattern  = regexp.MustCompile(`https?://[^\s<>"']+`)
	pagePattern = regexp.MustCompile(`^\s*\d+\s*/\s*\d+\s*$`)

	pageMarkers  = []string{"next", "prev", "»", "«", "➡", "⬅", "▶", "◀", "⏩", "⏪", "›", "‹"}
	finalMarkers = []string{"no result", "not found", "nothing found"}
	linkMarkers  = []string{"stream", "watch"}
)

// search sends a query to the search bot and waits for its answer.
func (b *Backend) search(ctx context.Context, query string) (remote.Response, error) {
	api, _, err := b.conn()
	if err != nil {
		return nil, err
	}
	bot, err := b.bot(ctx, b.opts.SearchBot)
	if err != nil {
		return nil, err
	}
	w, err := newWatch(ctx, api, bot, b.opts.PollInterval)
	if err != nil {
		return nil, err
	}
	if _, err := message.NewSender(api).To(bot).Text(ctx, query); err != nil {
		return nil, fmt.Errorf("send query: %w", err)
	}
	b.log.Debug("query sent", zap.String("bot", b.opts.SearchBot))
	return b.awaitAnswer(ctx, w, bot.UserID, msgNoSearchAnswer)
}

// selectResult presses a result button and waits for the bot to answer
// with a new or edited message.
func (b *Backend) selectResult(ctx context.Context, req remote.SelectResult) (remote.Response, error) {
	api, _, err := b.conn()
	if err != nil {
		return nil, err
	}
	bot, err := b.bot(ctx, b.opts.SearchBot)
	if err != nil {
		return nil, err
	}
	w, err := newWatch(ctx, api, bot, b.opts.PollInterval)
	if err != nil {
		return nil, err
	}

	answer, err := api.MessagesGetBotCallbackAnswer(ctx, &tg.MessagesGetBotCallbackAnswerRequest{
		Peer:  bot,
		MsgID: int(req.ItemID),
		Data:  req.Token,
	})
	if err != nil && !tgerr.Is(err, botResponseTimeout) {
		return nil, fmt.Errorf("press button: %w", err)
	}
	fallback := msgNoSearchAnswer
	if answer != nil && answer.Message != "" {
		if answer.Alert {
			return remote.SearchAnswer{Response: model.Failed(answer.Message)}, nil
		}
		fallback = answer.Message
	}
	return b.awaitAnswer(ctx, w, bot.UserID, fallback)
}

func (b *Backend) awaitAnswer(ctx context.Context, w *replyWatch, botID int64, fallback string) (remote.Response, error) {
	waitCtx, cancel := context.WithTimeout(ctx, b.opts.SearchTimeout)
	defer cancel()

	var last *model.SearchResponse
	err := w.wait(waitCtx, func(msg *tg.Message) bool {
		resp, final := decodeReply(botID, msg)
		last = &resp
		return final
	})
	switch {
	case err == nil:
		return remote.SearchAnswer{Response: *last}, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		if last != nil {
			return remote.SearchAnswer{Response: *last}, nil
		}
		return remote.SearchAnswer{Response: model.Failed(fallback)}, nil
	default:
		return nil, err
	}
}

// resolveLink forwards a video to the link bot and waits for a playback URL.
func (b *Backend) resolveLink(ctx context.Context, item model.MediaItem) (remote.Response, error) {
	if item.Kind != model.KindVideo {
		return nil, &remote.Error{Code: 400, Message: msgOnlyVideos}
	}
	api, _, err := b.conn()
	if err != nil {
		return nil, err
	}
	bot, err := b.bot(ctx, b.opts.LinkBot)
	if err != nil {
		return nil, err
	}
	from, err := b.inputPeer(ctx, item.CollectionID)
	if err != nil {
		return nil, err
	}
	w, err := newWatch(ctx, api, bot, b.opts.PollInterval)
	if err != nil {
		return nil, err
	}
	if err := forward(ctx, api, from, item.ItemID, bot); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.opts.LinkTimeout)
	defer cancel()
	var link string
	err = w.wait(waitCtx, func(msg *tg.Message) bool {
		link = extractLink(msg)
		return link != ""
	})
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &remote.Error{Code: 408, Message: msgNoLink}
	}
	if err != nil {
		return nil, err
	}
	b.log.Info("link resolved", zap.Int64("collection_id", item.CollectionID), zap.Int64("item_id", item.ItemID))
	return remote.Link{URL: link}, nil
}

// bot resolves a bot username once per session.
func (b *Backend) bot(ctx context.Context, username string) (*tg.InputPeerUser, error) {
	b.mu.Lock()
	cached, ok := b.bots[username]
	sender := b.sender
	b.mu.Unlock()
	if ok {
		return cached, nil
	}
	if sender == nil {
		return nil, &remote.Error{Code: 400, Message: "Not connected"}
	}

	peer, err := sender.Resolve(username).AsInputPeer(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve @%s: %w", username, err)
	}
	user, ok := peer.(*tg.InputPeerUser)
	if !ok {
		return nil, &remote.Error{Code: 400, Message: fmt.Sprintf("@%s is not a bot", username)}
	}
	b.mu.Lock()
	b.bots[username] = user
	b.mu.Unlock()
	b.peers.Add(user.UserID, user)
	return user, nil
}

type historyAPI interface {
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
}

// replyWatch polls a bot chat for incoming messages, new or edited, that
// were not there when the watch started.
type replyWatch struct {
	api      historyAPI
	peer     tg.InputPeerClass
	interval time.Duration
	seen     map[int]int
}

func newWatch(ctx context.Context, api historyAPI, peer tg.InputPeerClass, interval time.Duration) (*replyWatch, error) {
	w := &replyWatch{api: api, peer: peer, interval: interval, seen: make(map[int]int)}
	if _, err := w.poll(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// poll returns the unseen incoming messages, oldest first, and marks them seen.
func (w *replyWatch) poll(ctx context.Context) ([]*tg.Message, error) {
	res, err := w.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  w.peer,
		Limit: watchDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("get bot history: %w", err)
	}
	var fresh []*tg.Message
	for _, msg := range messagesOf(res) {
		if edit, ok := w.seen[msg.ID]; ok && edit == msg.EditDate {
			continue
		}
		w.seen[msg.ID] = msg.EditDate
		if !msg.Out {
			fresh = append(fresh, msg)
		}
	}
	slices.SortFunc(fresh, func(a, b *tg.Message) int { return a.ID - b.ID })
	return fresh, nil
}

// wait polls until accept returns true or ctx ends.
func (w *replyWatch) wait(ctx context.Context, accept func(*tg.Message) bool) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		msgs, err := w.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		for _, msg := range msgs {
			if accept(msg) {
				return nil
			}
		}
	}
}

// decodeReply turns a bot message into a search response. The boolean
// reports whether the response ends the wait: media and result buttons do,
// plain text only when it reads as a definite miss.
func decodeReply(botID int64, msg *tg.Message) (model.SearchResponse, bool) {
	if item, ok := parseMedia(botID, msg); ok {
		return model.Resolved(item), true
	}
	if results := resultButtons(botID, msg); len(results) > 0 {
		return model.Results(results), true
	}
	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return model.Failed(msgNoResults), false
	}
	lower := strings.ToLower(text)
	final := slices.ContainsFunc(finalMarkers, func(m string) bool { return strings.Contains(lower, m) })
	return model.Failed(text), final
}

func resultButtons(botID int64, msg *tg.Message) []model.SearchResult {
	markup, ok := msg.ReplyMarkup.(*tg.ReplyInlineMarkup)
	if !ok {
		return nil
	}
	var results []model.SearchResult
	for _, row := range markup.Rows {
		for _, button := range row.Buttons {
			cb, ok := button.(*tg.KeyboardButtonCallback)
			if !ok {
				continue
			}
			results = append(results, model.SearchResult{
				Label:              cb.Text,
				Token:              cb.Data,
				SourceCollectionID: botID,
				SourceItemID:       int64(msg.ID),
				IsPaginationMarker: isPageButton(cb.Text),
			})
		}
	}
	return results
}

func isPageButton(label string) bool {
	if pagePattern.MatchString(label) {
		return true
	}
	lower := strings.ToLower(label)
	return slices.ContainsFunc(pageMarkers, func(m string) bool { return strings.Contains(lower, m) })
}

// extractLink finds a playback URL in a link bot reply. Links that look
// like streaming links win over download links.
func extractLink(msg *tg.Message) string {
	var urls []string
	add := func(u string) {
		u = strings.TrimRight(u, ".,)")
		if (strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")) && !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}

	if markup, ok := msg.ReplyMarkup.(*tg.ReplyInlineMarkup); ok {
		for _, row := range markup.Rows {
			for _, button := range row.Buttons {
				if u, ok := button.(*tg.KeyboardButtonURL); ok {
					add(u.URL)
				}
			}
		}
	}
	for _, entity := range msg.Entities {
		switch e := entity.(type) {
		case *tg.MessageEntityTextURL:
			add(e.URL)
		case *tg.MessageEntityURL:
			add(utf16Slice(msg.Message, e.Offset, e.Length))
		}
	}
	for _, u := range urlPattern.FindAllString(msg.Message, -1) {
		add(u)
	}

	for _, u := range urls {
		lower := strings.ToLower(u)
		if slices.ContainsFunc(linkMarkers, func(m string) bool { return strings.Contains(lower, m) }) {
			return u
		}
	}
	if len(urls) > 0 {
		return urls[0]
	}
	return ""
}

// utf16Slice cuts text by entity offsets, which count UTF-16 code units.
func utf16Slice(text string, offset, length int) string {
	units := utf16.Encode([]rune(text))
	if offset < 0 || length < 0 || offset+length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[offset : offset+length]))
}
