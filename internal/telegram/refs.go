package telegram

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"
)

// A thumbnail ref carries everything needed to build the file location:
//
//	<photo|doc>:<id>:<access hash>:<size type>:<base64url file reference>
const (
	refPhoto = "photo"
	refDoc   = "doc"
)

var errBadRef = errors.New("malformed thumbnail ref")

type thumbRef struct {
	kind       string
	id         int64
	accessHash int64
	sizeType   string
	fileRef    []byte
}

func (r thumbRef) String() string {
	return strings.Join([]string{
		r.kind,
		strconv.FormatInt(r.id, 10),
		strconv.FormatInt(r.accessHash, 10),
		r.sizeType,
		base64.RawURLEncoding.EncodeToString(r.fileRef),
	}, ":")
}

func parseRef(s string) (thumbRef, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 || (parts[0] != refPhoto && parts[0] != refDoc) || parts[3] == "" {
		return thumbRef{}, errBadRef
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return thumbRef{}, errBadRef
	}
	hash, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return thumbRef{}, errBadRef
	}
	fileRef, err := base64.RawURLEncoding.DecodeString(parts[4])
	if err != nil {
		return thumbRef{}, errBadRef
	}
	return thumbRef{kind: parts[0], id: id, accessHash: hash, sizeType: parts[3], fileRef: fileRef}, nil
}

func (r thumbRef) location() tg.InputFileLocationClass {
	if r.kind == refPhoto {
		return &tg.InputPhotoFileLocation{
			ID:            r.id,
			AccessHash:    r.accessHash,
			FileReference: r.fileRef,
			ThumbSize:     r.sizeType,
		}
	}
	return &tg.InputDocumentFileLocation{
		ID:            r.id,
		AccessHash:    r.accessHash,
		FileReference: r.fileRef,
		ThumbSize:     r.sizeType,
	}
}

// Collection ids use the marked form: users keep their id, basic groups are
// negated and channels are offset below -1e12.
const channelOffset = 1_000_000_000_000

func markedID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return -channelOffset - p.ChannelID
	default:
		return 0
	}
}
