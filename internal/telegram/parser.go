package telegram

import (
	"strconv"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/matheus3301/tele/internal/model"
)

// preferredThumbWidth is the smallest width worth showing on a card.
const preferredThumbWidth = 320

// parseMedia converts a photo or video message into a media item. Other
// messages report false.
func parseMedia(collectionID int64, msg *tg.Message) (model.MediaItem, bool) {
	item := model.MediaItem{
		CollectionID: collectionID,
		ItemID:       int64(msg.ID),
		Timestamp:    int64(msg.Date),
		Title:        caption(msg.Message),
	}

	switch m := msg.Media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return model.MediaItem{}, false
		}
		item.Kind = model.KindImage
		item.ContentRef = refPhoto + ":" + strconv.FormatInt(photo.ID, 10)
		thumb := pickThumb(photo.Sizes)
		if thumb.typ != "" {
			item.ThumbnailRef = thumbRef{
				kind:       refPhoto,
				id:         photo.ID,
				accessHash: photo.AccessHash,
				sizeType:   thumb.typ,
				fileRef:    photo.FileReference,
			}.String()
		}
		item.ThumbnailWidth, item.ThumbnailHeight = thumb.w, thumb.h
		item.ThumbnailPreview = stripped(photo.Sizes)
		item.SizeBytes = largestSize(photo.Sizes)
		if item.Title == "" {
			item.Title = "Photo"
		}

	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return model.MediaItem{}, false
		}
		kind, duration, name := classify(doc)
		if kind == "" {
			return model.MediaItem{}, false
		}
		item.Kind = kind
		item.DurationSeconds = duration
		item.SizeBytes = doc.Size
		item.ContentRef = refDoc + ":" + strconv.FormatInt(doc.ID, 10)
		thumb := pickThumb(doc.Thumbs)
		if thumb.typ != "" {
			item.ThumbnailRef = thumbRef{
				kind:       refDoc,
				id:         doc.ID,
				accessHash: doc.AccessHash,
				sizeType:   thumb.typ,
				fileRef:    doc.FileReference,
			}.String()
		}
		item.ThumbnailWidth, item.ThumbnailHeight = thumb.w, thumb.h
		item.ThumbnailPreview = stripped(doc.Thumbs)
		if item.Title == "" {
			item.Title = name
		}
		if item.Title == "" {
			item.Title = "Video"
			if kind == model.KindImage {
				item.Title = "Photo"
			}
		}

	default:
		return model.MediaItem{}, false
	}
	return item, true
}

// classify reports the media kind of a document: videos (not GIFs or round
// messages) and image files. Anything else has an empty kind.
func classify(doc *tg.Document) (model.Kind, int, string) {
	var (
		video, animated, round bool
		duration               int
		name                   string
	)
	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeVideo:
			video = true
			round = a.RoundMessage
			duration = int(a.Duration)
		case *tg.DocumentAttributeAnimated:
			animated = true
		case *tg.DocumentAttributeFilename:
			name = a.FileName
		}
	}
	switch {
	case round || animated:
		return "", 0, ""
	case video:
		return model.KindVideo, duration, name
	case strings.HasPrefix(doc.MimeType, "video/"):
		return model.KindVideo, duration, name
	case strings.HasPrefix(doc.MimeType, "image/") && doc.MimeType != "image/gif" && doc.MimeType != "image/webp":
		return model.KindImage, 0, name
	default:
		return "", 0, ""
	}
}

type thumbSize struct {
	typ  string
	w, h int
}

// pickThumb prefers the smallest downloadable size at least
// preferredThumbWidth wide, falling back to the largest one.
func pickThumb(sizes []tg.PhotoSizeClass) thumbSize {
	var fit, largest thumbSize
	for _, s := range sizes {
		var cur thumbSize
		switch sz := s.(type) {
		case *tg.PhotoSize:
			cur = thumbSize{sz.Type, sz.W, sz.H}
		case *tg.PhotoSizeProgressive:
			cur = thumbSize{sz.Type, sz.W, sz.H}
		case *tg.PhotoCachedSize:
			cur = thumbSize{sz.Type, sz.W, sz.H}
		default:
			continue
		}
		if cur.w*cur.h > largest.w*largest.h || largest.typ == "" {
			largest = cur
		}
		if cur.w >= preferredThumbWidth && (fit.typ == "" || cur.w < fit.w) {
			fit = cur
		}
	}
	if fit.typ != "" {
		return fit
	}
	return largest
}

func stripped(sizes []tg.PhotoSizeClass) []byte {
	for _, s := range sizes {
		if sz, ok := s.(*tg.PhotoStrippedSize); ok {
			return sz.Bytes
		}
	}
	return nil
}

func largestSize(sizes []tg.PhotoSizeClass) int64 {
	var n int
	for _, s := range sizes {
		switch sz := s.(type) {
		case *tg.PhotoSize:
			n = max(n, sz.Size)
		case *tg.PhotoSizeProgressive:
			for _, p := range sz.Sizes {
				n = max(n, p)
			}
		}
	}
	return int64(n)
}

// caption returns the first non-empty line of a message text.
func caption(text string) string {
	for line := range strings.SplitSeq(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func rawMessages(res tg.MessagesMessagesClass) []tg.MessageClass {
	switch r := res.(type) {
	case *tg.MessagesMessages:
		return r.Messages
	case *tg.MessagesMessagesSlice:
		return r.Messages
	case *tg.MessagesChannelMessages:
		return r.Messages
	default:
		return nil
	}
}

// messagesOf keeps the regular messages of a history answer.
func messagesOf(res tg.MessagesMessagesClass) []*tg.Message {
	raw := rawMessages(res)
	msgs := make([]*tg.Message, 0, len(raw))
	for _, m := range raw {
		if msg, ok := m.(*tg.Message); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// lowestID returns the smallest message id of a page, including service
// messages, or 0 for an empty page.
func lowestID(res tg.MessagesMessagesClass) int {
	lowest := 0
	for _, m := range rawMessages(res) {
		if id := m.GetID(); lowest == 0 || id < lowest {
			lowest = id
		}
	}
	return lowest
}
