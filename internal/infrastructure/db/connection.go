// Package db bootstraps the optional PostgreSQL connection the Ledger
// and webhook receipt audit trail persist to. Both stay in-memory when
// the connection is disabled, so a single binary runs with or without
// a database configured.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/marketsignal/decisionengine/internal/ledger"
	ledgerpg "github.com/marketsignal/decisionengine/internal/ledger/postgres"
	"github.com/marketsignal/decisionengine/internal/webhookreceipt"
	receiptpg "github.com/marketsignal/decisionengine/internal/webhookreceipt/postgres"
)

// Config holds database connection configuration.
type Config struct {
	DSN             string        `yaml:"dsn" env:"PG_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"PG_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"PG_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"PG_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"PG_CONN_MAX_IDLE_TIME"`
	QueryTimeout    time.Duration `yaml:"query_timeout" env:"PG_QUERY_TIMEOUT"`
	Enabled         bool          `yaml:"enabled" env:"PG_ENABLED"`
}

// DefaultConfig returns reasonable defaults for database connections.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		QueryTimeout:    30 * time.Second,
		Enabled:         false,
	}
}

// Manager owns the pooled connection and the two Postgres-backed
// stores built on top of it.
type Manager struct {
	db       *sqlx.DB
	config   Config
	ledger   ledger.Ledger
	receipts webhookreceipt.Recorder
	health   *healthChecker
}

// NewManager opens the connection (when enabled) and wires the Ledger
// and webhook-receipt stores atop it.
func NewManager(config Config) (*Manager, error) {
	if !config.Enabled {
		return &Manager{config: config, health: &healthChecker{enabled: false}}, nil
	}

	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required when enabled")
	}

	db, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Manager{
		db:       db,
		config:   config,
		ledger:   ledgerpg.New(db, config.QueryTimeout),
		receipts: receiptpg.New(db, config.QueryTimeout),
		health:   &healthChecker{enabled: true, db: db, timeout: config.QueryTimeout},
	}, nil
}

// Ledger returns the Postgres-backed Ledger, or nil if the database is
// disabled.
func (m *Manager) Ledger() ledger.Ledger {
	return m.ledger
}

// Receipts returns the Postgres-backed receipt recorder, or nil if the
// database is disabled.
func (m *Manager) Receipts() webhookreceipt.Recorder {
	return m.receipts
}

// DB returns the underlying connection, for running migrations.
func (m *Manager) DB() *sqlx.DB {
	return m.db
}

// IsEnabled reports whether database persistence is configured.
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled && m.db != nil
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Health reports connection health, for the /health endpoint.
func (m *Manager) Health(ctx context.Context) HealthCheck {
	return m.health.check(ctx)
}

// HealthCheck is the outcome of one database health probe.
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connectionPool"`
	ResponseTimeMS int64          `json:"responseTimeMs"`
}

type healthChecker struct {
	enabled bool
	db      *sqlx.DB
	timeout time.Duration
}

func (h *healthChecker) check(ctx context.Context) HealthCheck {
	if !h.enabled {
		return HealthCheck{Healthy: true, Errors: []string{"database persistence disabled"}}
	}

	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var errs []string
	healthy := true
	if err := h.db.PingContext(pingCtx); err != nil {
		errs = append(errs, fmt.Sprintf("ping failed: %v", err))
		healthy = false
	}

	stats := h.db.Stats()
	return HealthCheck{
		Healthy: healthy,
		Errors:  errs,
		ConnectionPool: map[string]int{
			"max_open": stats.MaxOpenConnections,
			"open":     stats.OpenConnections,
			"in_use":   stats.InUse,
			"idle":     stats.Idle,
		},
		ResponseTimeMS: time.Since(start).Milliseconds(),
	}
}
