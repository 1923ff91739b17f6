package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/tasting/pkg/logger"
	"github.com/okian/tasting/pkg/metrics"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	SQLitePath  string
	PostgresURL string
	Pool        PoolOptions
	Logger      logger.Logger
}

// Open returns the configured backend wrapped with latency and error metrics.
func Open(ctx context.Context, opts Options) (Store, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Named("repository")
	}
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendMemory
	}

	var (
		s   Store
		err error
	)
	switch backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendSQLite:
		s, err = OpenSQLite(ctx, opts.SQLitePath)
	case BackendPostgres:
		log.Info(ctx, "initializing postgres pool",
			logger.Int("max_conns", int(opts.Pool.MaxConns)),
			logger.Int("min_conns", int(opts.Pool.MinConns)),
			logger.Duration("max_conn_idle", opts.Pool.MaxConnIdleTime),
			logger.Duration("max_conn_lifetime", opts.Pool.MaxConnLifetime),
		)
		s, err = OpenPostgres(ctx, opts.PostgresURL, opts.Pool)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "document store ready", logger.String("backend", backend))
	return Instrument(s, backend), nil
}

// instrumented records per-operation latency and failures of a Store.
type instrumented struct {
	next    Store
	backend string
}

// Instrument wraps s so every operation is measured under the backend label.
func Instrument(s Store, backend string) Store {
	return &instrumented{next: s, backend: backend}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(i.backend, op, float64(time.Since(start).Microseconds())/1000.0)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(i.backend, op)
		metrics.RecordErrorByComponent("repository", op)
	}
}

func (i *instrumented) Get(ctx context.Context, path string) (body []byte, err error) {
	defer func(start time.Time) { i.observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, path)
}

func (i *instrumented) List(ctx context.Context, prefix string) (docs []Document, err error) {
	defer func(start time.Time) { i.observe("list", start, err) }(time.Now())
	return i.next.List(ctx, prefix)
}

func (i *instrumented) Set(ctx context.Context, path string, body []byte) (err error) {
	defer func(start time.Time) { i.observe("set", start, err) }(time.Now())
	return i.next.Set(ctx, path, body)
}

func (i *instrumented) Remove(ctx context.Context, path string) (err error) {
	defer func(start time.Time) { i.observe("remove", start, err) }(time.Now())
	return i.next.Remove(ctx, path)
}

func (i *instrumented) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { i.observe("ping", start, err) }(time.Now())
	return i.next.Ping(ctx)
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
