package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps documents in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w: %w", path, ErrUnavailable, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w: %w", path, ErrUnavailable, err)
	}
	// A single connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, strings.TrimSpace(schemaSQL)); err != nil {
		return fmt.Errorf("sqlite schema: %w: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, path string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE path = ?`, path).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w: %w", path, ErrUnavailable, err)
	}
	return []byte(body), nil
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]Document, error) {
	p := childPrefix(prefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, body FROM documents WHERE substr(path, 1, ?) = ? AND length(path) > ?`,
		runeLen(p), p, runeLen(p))
	if err != nil {
		return nil, fmt.Errorf("sqlite list %s: %w: %w", prefix, ErrUnavailable, err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var path, body string
		if err := rows.Scan(&path, &body); err != nil {
			return nil, fmt.Errorf("sqlite list %s: %w: %w", prefix, ErrUnavailable, err)
		}
		docs = append(docs, Document{Path: path, Body: []byte(body)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list %s: %w: %w", prefix, ErrUnavailable, err)
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *SQLiteStore) Set(ctx context.Context, path string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(path, body) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET body = excluded.body`,
		path, string(body))
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w: %w", path, ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, path string) error {
	p := childPrefix(path)
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE path = ? OR substr(path, 1, ?) = ?`,
		path, runeLen(p), p)
	if err != nil {
		return fmt.Errorf("sqlite remove %s: %w: %w", path, ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping: %w: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
