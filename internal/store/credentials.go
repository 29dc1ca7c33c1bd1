package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Credentials are the application credentials for the remote service.
type Credentials struct {
	APIID     int64
	APIHash   string
	UpdatedAt time.Time
}

// SaveCredentials stores the single credentials row, replacing any previous one.
func (db *DB) SaveCredentials(ctx context.Context, apiID int64, apiHash string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO credentials (id, api_id, api_hash, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			api_id = excluded.api_id,
			api_hash = excluded.api_hash,
			updated_at = excluded.updated_at`,
		apiID, apiHash, time.Now().UnixMilli())
	return err
}

// LoadCredentials returns the stored credentials, or nil when none exist.
func (db *DB) LoadCredentials(ctx context.Context) (*Credentials, error) {
	var (
		c       Credentials
		updated int64
	)
	err := db.QueryRowContext(ctx, `SELECT api_id, api_hash, updated_at FROM credentials WHERE id = 1`).
		Scan(&c.APIID, &c.APIHash, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.UpdatedAt = time.UnixMilli(updated)
	return &c, nil
}

// ClearCredentials removes the stored credentials.
func (db *DB) ClearCredentials(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`)
	return err
}
