package selstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists selections in a SQLite database, one row per
// document key.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS selections (
	key        TEXT PRIMARY KEY,
	tags       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// NewSQLiteStore opens (and if needed initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open selection db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init selection db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT tags FROM selections WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load selection %s: %w", key, err)
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decode selection %s: %w", key, err)
	}
	return tags, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO selections (key, tags, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET tags = excluded.tags, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save selection %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
