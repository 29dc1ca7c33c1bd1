package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gotd/td/telegram/downloader"
	"go.uber.org/zap"

	"github.com/matheus3301/tele/internal/remote"
)

// thumbnail returns the local file of a thumbnail ref, downloading it when
// the index has no live file for it.
func (b *Backend) thumbnail(ctx context.Context, ref string) (remote.Response, error) {
	if path, ok := b.cachedThumbnail(ctx, ref); ok {
		return remote.ThumbnailFile{Ref: ref, Path: path}, nil
	}

	parsed, err := parseRef(ref)
	if err != nil {
		return nil, &remote.Error{Code: 400, Message: err.Error()}
	}
	api, _, err := b.conn()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(b.opts.ThumbnailDir, 0o700); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}

	path := thumbnailFile(b.opts.ThumbnailDir, ref)
	tmp := path + ".part"
	if _, err := downloader.NewDownloader().Download(api, parsed.location()).ToPath(ctx, tmp); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("download thumbnail: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("move thumbnail: %w", err)
	}
	if err := b.store.PutThumbnail(ctx, ref, path); err != nil {
		b.log.Warn("index thumbnail", zap.Error(err))
	}
	return remote.ThumbnailFile{Ref: ref, Path: path}, nil
}

// cachedThumbnail consults the index and drops entries whose file vanished.
func (b *Backend) cachedThumbnail(ctx context.Context, ref string) (string, bool) {
	path, err := b.store.ThumbnailPath(ctx, ref)
	if err != nil {
		b.log.Warn("lookup thumbnail", zap.Error(err))
		return "", false
	}
	if path == "" {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		_ = b.store.DeleteThumbnail(ctx, ref)
		return "", false
	}
	return path, true
}

// thumbnailFile names the file of a ref. Refs embed file references that
// change over time, so the name derives from the whole ref.
func thumbnailFile(dir, ref string) string {
	return filepath.Join(dir, uuid.NewSHA1(uuid.NameSpaceOID, []byte(ref)).String()+".jpg")
}
