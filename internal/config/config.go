// Package config defines service configuration and how it is loaded.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend picks the document store: memory, sqlite or postgres.
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresURL is the DSN used by the postgres backend.
	PostgresURL string `koanf:"postgres_url"`

	// Postgres pool tuning.
	DBMaxConns            int32 `koanf:"db_max_conns"`
	DBMinConns            int32 `koanf:"db_min_conns"`
	DBMaxConnIdleSecs     int   `koanf:"db_max_conn_idle_secs"`
	DBMaxConnLifetimeSecs int   `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs     int   `koanf:"db_conn_timeout_secs"`

	// WorkerCount sets the number of reconcile workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the reconcile queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many submission ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// ReconcileIntervalSecs schedules a sweep over every item; 0 disables it.
	ReconcileIntervalSecs int `koanf:"reconcile_interval_secs"`

	// MaxLeaderboardLimit caps GET /leaderboard/*?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// GuestName is the participant bucket for reports without a name.
	GuestName string `koanf:"guest_name"`

	// SeedFile optionally points at a YAML item catalog loaded at startup.
	SeedFile string `koanf:"seed_file"`
}

// New returns a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		StoreBackend:          "memory",
		SQLitePath:            "data/tasting.db",
		DBMaxConns:            10,
		DBMinConns:            2,
		DBMaxConnIdleSecs:     300,
		DBMaxConnLifetimeSecs: 3600,
		DBConnTimeoutSecs:     5,
		WorkerCount:           runtime.NumCPU(),
		QueueSize:             1024,
		DedupeSize:            50_000,
		ReconcileIntervalSecs: 0,
		MaxLeaderboardLimit:   100,
		GuestName:             "ゲスト",
	}
}

// ReconcileInterval returns ReconcileIntervalSecs as a duration.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSecs) * time.Second
}

// DBMaxConnIdle returns DBMaxConnIdleSecs as a duration.
func (c *Config) DBMaxConnIdle() time.Duration {
	return time.Duration(c.DBMaxConnIdleSecs) * time.Second
}

// DBMaxConnLifetime returns DBMaxConnLifetimeSecs as a duration.
func (c *Config) DBMaxConnLifetime() time.Duration {
	return time.Duration(c.DBMaxConnLifetimeSecs) * time.Second
}

// DBConnTimeout returns DBConnTimeoutSecs as a duration.
func (c *Config) DBConnTimeout() time.Duration {
	return time.Duration(c.DBConnTimeoutSecs) * time.Second
}
