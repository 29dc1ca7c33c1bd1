package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ThumbnailPath returns the local path recorded for a thumbnail reference,
// or "" when it was never fetched.
func (db *DB) ThumbnailPath(ctx context.Context, ref string) (string, error) {
	var path string
	err := db.QueryRowContext(ctx, `SELECT path FROM thumbnails WHERE ref = ?`, ref).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return path, err
}

// PutThumbnail records where a thumbnail reference was downloaded to.
func (db *DB) PutThumbnail(ctx context.Context, ref, path string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO thumbnails (ref, path, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			path = excluded.path,
			fetched_at = excluded.fetched_at`,
		ref, path, time.Now().UnixMilli())
	return err
}

// DeleteThumbnail forgets a thumbnail reference, used when its file vanished.
func (db *DB) DeleteThumbnail(ctx context.Context, ref string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM thumbnails WHERE ref = ?`, ref)
	return err
}

// PruneThumbnails removes entries fetched before the cutoff and returns
// their paths so callers can delete the files.
func (db *DB) PruneThumbnails(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT path FROM thumbnails WHERE fetched_at < ?`, before.UnixMilli())
	if err != nil {
		return nil, err
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return nil, err
		}
		paths = append(paths, p)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM thumbnails WHERE fetched_at < ?`, before.UnixMilli()); err != nil {
		return nil, err
	}
	return paths, nil
}
