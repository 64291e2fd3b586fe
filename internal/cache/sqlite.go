// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// SQLiteCache keeps results in one SQLite table. Safe for concurrent use.
type SQLiteCache struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

type reportRow struct {
	TopicHash string `db:"topic_hash"`
	Payload   string `db:"payload"`
	CreatedAt string `db:"created_at"`
}

// OpenSQLite opens or creates the database at path. Entries older than
// ttl are misses; ttl <= 0 keeps them forever.
func OpenSQLite(path string, ttl time.Duration) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	c := &SQLiteCache{db: db, ttl: ttl, now: time.Now}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return c, nil
}

func (c *SQLiteCache) createSchema() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS reports (
		topic_hash TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	return err
}

// Get returns the cached result for key.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*types.Result, bool, error) {
	var row reportRow
	err := c.db.GetContext(ctx, &row, `SELECT topic_hash, payload, created_at FROM reports WHERE topic_hash = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached report: %w", err)
	}

	if c.ttl > 0 {
		created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			return nil, false, fmt.Errorf("parsing created_at %q: %w", row.CreatedAt, err)
		}
		if c.now().Sub(created) > c.ttl {
			return nil, false, nil
		}
	}

	var res types.Result
	if err := json.Unmarshal([]byte(row.Payload), &res); err != nil {
		return nil, false, fmt.Errorf("decoding cached report: %w", err)
	}
	return &res, true, nil
}

// Put stores res under key, replacing any earlier entry.
func (c *SQLiteCache) Put(ctx context.Context, key string, res *types.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = c.db.NamedExecContext(ctx, `INSERT INTO reports (topic_hash, payload, created_at)
		VALUES (:topic_hash, :payload, :created_at)
		ON CONFLICT(topic_hash) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		reportRow{TopicHash: key, Payload: string(payload), CreatedAt: c.now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return fmt.Errorf("writing cached report: %w", err)
	}
	return nil
}

// Close releases the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
