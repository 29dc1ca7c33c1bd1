package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// LoadSessionBlob returns the serialized remote session, or nil when the
// client has never logged in.
func (db *DB) LoadSessionBlob(ctx context.Context) ([]byte, error) {
	var data []byte
	err := db.QueryRowContext(ctx, `SELECT data FROM tg_session WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return data, err
}

// StoreSessionBlob replaces the serialized remote session.
func (db *DB) StoreSessionBlob(ctx context.Context, data []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tg_session (id, data, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		data, time.Now().UnixMilli())
	return err
}

// ClearSessionBlob forgets the remote session, used after logout.
func (db *DB) ClearSessionBlob(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM tg_session WHERE id = 1`)
	return err
}
