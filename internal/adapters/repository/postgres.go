package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions controls connection-pool behaviour.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
	ConnTimeout     time.Duration
}

// PostgresStore keeps documents in a Postgres table through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts PoolOptions
}

// OpenPostgres connects to dbURL, verifies connectivity and applies the schema.
func OpenPostgres(ctx context.Context, dbURL string, opts PoolOptions) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}

	connCtx, cancel := withTimeout(ctx, opts.ConnTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w: %w", ErrUnavailable, err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w: %w", ErrUnavailable, err)
	}
	if _, err := pool.Exec(connCtx, strings.TrimSpace(schemaSQL)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w: %w", ErrUnavailable, err)
	}
	return &PostgresStore{pool: pool, opts: opts}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}

func (s *PostgresStore) Get(ctx context.Context, path string) ([]byte, error) {
	var body string
	err := s.pool.QueryRow(ctx, `SELECT body FROM documents WHERE path = $1`, path).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w: %w", path, ErrUnavailable, err)
	}
	return []byte(body), nil
}

func (s *PostgresStore) List(ctx context.Context, prefix string) ([]Document, error) {
	p := childPrefix(prefix)
	rows, err := s.pool.Query(ctx,
		`SELECT path, body FROM documents WHERE substr(path, 1, $1) = $2 AND char_length(path) > $1`,
		runeLen(p), p)
	if err != nil {
		return nil, fmt.Errorf("postgres list %s: %w: %w", prefix, ErrUnavailable, err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var path, body string
		if err := rows.Scan(&path, &body); err != nil {
			return nil, fmt.Errorf("postgres list %s: %w: %w", prefix, ErrUnavailable, err)
		}
		docs = append(docs, Document{Path: path, Body: []byte(body)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres list %s: %w: %w", prefix, ErrUnavailable, err)
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *PostgresStore) Set(ctx context.Context, path string, body []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (path, body) VALUES ($1, $2)
		 ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body`,
		path, string(body))
	if err != nil {
		return fmt.Errorf("postgres set %s: %w: %w", path, ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, path string) error {
	p := childPrefix(path)
	_, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE path = $1 OR substr(path, 1, $2) = $3`,
		path, runeLen(p), p)
	if err != nil {
		return fmt.Errorf("postgres remove %s: %w: %w", path, ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	checkCtx, cancel := withTimeout(ctx, s.opts.ConnTimeout)
	defer cancel()
	if err := s.pool.Ping(checkCtx); err != nil {
		return fmt.Errorf("postgres ping: %w: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Stats exposes pgxpool statistics.
func (s *PostgresStore) Stats() *pgxpool.Stat {
	return s.pool.Stat()
}
