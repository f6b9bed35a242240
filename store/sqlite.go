package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/samber/lo"
)

// SqliteStore keeps documents in a SQLite database. Several areas may share
// one database file; each SqliteStore addresses a single area.
//
// Tables:
//
//	items(area, key, data)  PRIMARY KEY (area, key)
type SqliteStore struct {
	feed
	mu   sync.RWMutex
	db   *sql.DB
	area string
}

func NewSqliteStore(dbPath, area string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS items (
		area TEXT NOT NULL,
		key TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (area, key)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{db: db, area: area}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SqliteStore) load(ctx context.Context, q querier, keys []string) (map[string]any, error) {
	query := "SELECT key, data FROM items WHERE area = ?"
	args := []any{s.area}
	if len(keys) > 0 {
		query += " AND key IN (" + strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",") + ")"
		args = append(args, lo.ToAnySlice(keys)...)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		v, err := decodeValue([]byte(raw))
		if err != nil {
			return nil, err
		}
		result[key] = v
	}
	return result, rows.Err()
}

func (s *SqliteStore) Get(ctx context.Context, keys ...string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx, s.db, lo.Uniq(keys))
}

func (s *SqliteStore) Set(ctx context.Context, items map[string]any) error {
	if len(items) == 0 {
		return nil
	}
	encoded := make(map[string]string, len(items))
	normalized := make(map[string]any, len(items))
	for k, v := range items {
		b, err := encodeValue(v)
		if err != nil {
			return err
		}
		encoded[k] = string(b)
		if normalized[k], err = decodeValue(b); err != nil {
			return err
		}
	}

	s.mu.Lock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	old, err := s.load(ctx, tx, lo.Keys(items))
	if err != nil {
		tx.Rollback()
		s.mu.Unlock()
		return err
	}
	for k, raw := range encoded {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (area, key, data) VALUES (?, ?, ?)
			 ON CONFLICT(area, key) DO UPDATE SET data = excluded.data`,
			s.area, k, raw,
		); err != nil {
			tx.Rollback()
			s.mu.Unlock()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.enqueue(diffSet(old, normalized))
	s.mu.Unlock()

	s.flush()
	return nil
}

func (s *SqliteStore) Remove(ctx context.Context, keys ...string) error {
	keys = lo.Uniq(keys)
	if len(keys) == 0 {
		return nil
	}
	s.mu.Lock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	old, err := s.load(ctx, tx, keys)
	if err != nil {
		tx.Rollback()
		s.mu.Unlock()
		return err
	}
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE area = ? AND key = ?", s.area, k); err != nil {
			tx.Rollback()
			s.mu.Unlock()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.enqueue(diffRemove(old, keys))
	s.mu.Unlock()

	s.flush()
	return nil
}

func (s *SqliteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	old, err := s.load(ctx, tx, nil)
	if err != nil {
		tx.Rollback()
		s.mu.Unlock()
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE area = ?", s.area); err != nil {
		tx.Rollback()
		s.mu.Unlock()
		return err
	}
	if err := tx.Commit(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.enqueue(diffRemove(old, lo.Keys(old)))
	s.mu.Unlock()

	s.flush()
	return nil
}
