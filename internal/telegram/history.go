package telegram

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/remote"
)

const dialogsPageSize = 100

var errChatNotFound = &remote.Error{Code: 400, Message: "Chat not found"}

// history lists photo and video messages older than the cursor.
func (b *Backend) history(ctx context.Context, req remote.GetHistory) (remote.Response, error) {
	api, _, err := b.conn()
	if err != nil {
		return nil, err
	}

	collectionID := req.Collection.ID
	var peer tg.InputPeerClass = &tg.InputPeerSelf{}
	if req.Collection.IsPersonalStore {
		collectionID = b.self()
	} else if peer, err = b.inputPeer(ctx, collectionID); err != nil {
		return nil, err
	}

	res, err := api.MessagesSearch(ctx, &tg.MessagesSearchRequest{
		Peer:     peer,
		Filter:   &tg.InputMessagesFilterPhotoVideo{},
		OffsetID: int(req.From.FromItemID()),
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	var items []model.MediaItem
	for _, msg := range messagesOf(res) {
		if item, ok := parseMedia(collectionID, msg); ok {
			items = append(items, item)
		}
	}
	next := model.After(int64(lowestID(res)))
	b.log.Debug("history page",
		zap.Int64("collection_id", collectionID),
		zap.Stringer("from", req.From),
		zap.Int("items", len(items)),
		zap.Stringer("next", next))
	return remote.Page{Items: items, Next: next}, nil
}

// collections lists group chats and channels with an active call, in
// dialog order.
func (b *Backend) collections(ctx context.Context, limit int) (remote.Response, error) {
	api, _, err := b.conn()
	if err != nil {
		return nil, err
	}
	res, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogsPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}

	dialogs, chats, users := dialogsOf(res)
	b.rememberUsers(users)
	active := b.rememberChats(chats)

	var refs []model.CollectionRef
	for _, d := range dialogs {
		dialog, ok := d.(*tg.Dialog)
		if !ok {
			continue
		}
		id := markedID(dialog.Peer)
		title, ok := active[id]
		if !ok {
			continue
		}
		refs = append(refs, model.CollectionRef{ID: id, Title: title})
		if limit > 0 && len(refs) >= limit {
			break
		}
	}
	return remote.CollectionList{Collections: refs}, nil
}

func dialogsOf(res tg.MessagesDialogsClass) ([]tg.DialogClass, []tg.ChatClass, []tg.UserClass) {
	switch r := res.(type) {
	case *tg.MessagesDialogs:
		return r.Dialogs, r.Chats, r.Users
	case *tg.MessagesDialogsSlice:
		return r.Dialogs, r.Chats, r.Users
	default:
		return nil, nil, nil
	}
}

func (b *Backend) rememberUsers(users []tg.UserClass) {
	for _, u := range users {
		if user, ok := u.(*tg.User); ok && !user.Self {
			b.peers.Add(user.ID, &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash})
		}
	}
}

// rememberChats caches input peers and returns the titles of chats with an
// active call keyed by marked id.
func (b *Backend) rememberChats(chats []tg.ChatClass) map[int64]string {
	active := make(map[int64]string)
	for _, c := range chats {
		switch chat := c.(type) {
		case *tg.Chat:
			id := markedID(&tg.PeerChat{ChatID: chat.ID})
			b.peers.Add(id, &tg.InputPeerChat{ChatID: chat.ID})
			if chat.CallActive {
				active[id] = chat.Title
			}
		case *tg.Channel:
			id := markedID(&tg.PeerChannel{ChannelID: chat.ID})
			b.peers.Add(id, &tg.InputPeerChannel{ChannelID: chat.ID, AccessHash: chat.AccessHash})
			if chat.CallActive {
				active[id] = chat.Title
			}
		}
	}
	return active
}

// inputPeer resolves a collection id, reloading dialogs once on a miss.
func (b *Backend) inputPeer(ctx context.Context, collectionID int64) (tg.InputPeerClass, error) {
	if collectionID == b.self() {
		return &tg.InputPeerSelf{}, nil
	}
	if peer, ok := b.peers.Get(collectionID); ok {
		return peer, nil
	}
	if _, err := b.collections(ctx, 0); err != nil {
		return nil, err
	}
	if peer, ok := b.peers.Get(collectionID); ok {
		return peer, nil
	}
	return nil, errChatNotFound
}

// save copies an item into Saved Messages.
func (b *Backend) save(ctx context.Context, item model.MediaItem) error {
	api, _, err := b.conn()
	if err != nil {
		return err
	}
	from, err := b.inputPeer(ctx, item.CollectionID)
	if err != nil {
		return err
	}
	return forward(ctx, api, from, item.ItemID, &tg.InputPeerSelf{})
}

// delete removes an item for everyone.
func (b *Backend) delete(ctx context.Context, collectionID, itemID int64) error {
	api, _, err := b.conn()
	if err != nil {
		return err
	}
	peer, err := b.inputPeer(ctx, collectionID)
	if err != nil {
		return err
	}
	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		_, err = api.ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      []int{int(itemID)},
		})
	} else {
		_, err = api.MessagesDeleteMessages(ctx, &tg.MessagesDeleteMessagesRequest{
			Revoke: true,
			ID:     []int{int(itemID)},
		})
	}
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	b.log.Info("deleted item", zap.Int64("collection_id", collectionID), zap.Int64("item_id", itemID))
	return nil
}

func forward(ctx context.Context, api *tg.Client, from tg.InputPeerClass, itemID int64, to tg.InputPeerClass) error {
	_, err := api.MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
		FromPeer: from,
		ID:       []int{int(itemID)},
		RandomID: []int64{randomID()},
		ToPeer:   to,
	})
	if err != nil {
		return fmt.Errorf("forward message: %w", err)
	}
	return nil
}

func randomID() int64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return int64(binary.LittleEndian.Uint64(buf[:]))
}
