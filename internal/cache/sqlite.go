package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// pruneEvery is the number of writes between sweeps of expired rows
const pruneEvery = 256

// SQLiteCache keeps encoded payloads in a local SQLite database so that cached
// results survive restarts
type SQLiteCache struct {
	db     *sql.DB
	ttl    time.Duration
	codec  Codec
	writes atomic.Int64
	now    func() time.Time
}

// NewSQLiteCache opens or creates the cache database at path
func NewSQLiteCache(path string, ttl time.Duration, codec Codec) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS results (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			expires_at INTEGER NOT NULL -- unix nanoseconds, 0 = never
		)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl, codec: codec, now: time.Now}, nil
}

// Get returns the decoded payload of key if it has not expired
func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	var expiresAt int64

	err := c.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM results WHERE key = ?`, key).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %s: %w", key, err)
	}

	if expiresAt != 0 && c.now().UnixNano() > expiresAt {
		_, _ = c.db.ExecContext(ctx, `DELETE FROM results WHERE key = ?`, key)
		return nil, false, nil
	}

	value, err := c.codec.Decode(payload)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set encodes and upserts value. Every pruneEvery writes expired rows are deleted.
func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte) error {
	payload, err := c.codec.Encode(value)
	if err != nil {
		return err
	}

	var expiresAt int64
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl).UnixNano()
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO results (key, payload, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		key, payload, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}

	if c.writes.Add(1)%pruneEvery == 0 {
		if _, err := c.Prune(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Prune deletes expired rows and returns how many were removed
func (c *SQLiteCache) Prune(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM results WHERE expires_at != 0 AND expires_at < ?`, c.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
