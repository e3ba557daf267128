// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/trademark-harvester/internal/harvest"
)

const defaultTable = "trademark_days"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DayStoreConfig controls the Postgres connection pool used for day rows.
type DayStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type txPool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// DayStore upserts harvested days, one row per lodgement date.
type DayStore struct {
	pool  txPool
	table string
	now   func() time.Time
}

var _ harvest.Exporter = (*DayStore)(nil)

// NewDayStore connects to Postgres using cfg.
func NewDayStore(ctx context.Context, cfg DayStoreConfig) (*DayStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewDayStoreWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewDayStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewDayStoreWithPool(pool txPool, table string) (*DayStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &DayStore{pool: pool, table: table, now: time.Now}, nil
}

// Close releases the underlying pool resources.
func (s *DayStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the day table when it does not exist.
func (s *DayStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	lodgement_date DATE PRIMARY KEY,
	item_count     INTEGER NOT NULL,
	items          JSONB NOT NULL,
	run_id         TEXT NOT NULL,
	harvested_at   TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// ExportDays upserts every entry in one transaction. A later run overwrites
// the row for a date it fetched again.
func (s *DayStore) ExportDays(ctx context.Context, runID string, entries []harvest.Entry) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("day store is not configured")
	}
	if len(entries) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
INSERT INTO %s (lodgement_date, item_count, items, run_id, harvested_at)
VALUES ($1::date, $2, $3, $4, $5)
ON CONFLICT (lodgement_date) DO UPDATE SET
	item_count = EXCLUDED.item_count,
	items = EXCLUDED.items,
	run_id = EXCLUDED.run_id,
	harvested_at = EXCLUDED.harvested_at`, s.table)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	at := s.now().UTC()
	for _, e := range entries {
		items, err := json.Marshal(e.Items)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("marshal items for %s: %w", e.Date, err)
		}
		if _, err := tx.Exec(ctx, query, e.Date, e.Count, items, runID, at); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("upsert day %s: %w", e.Date, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit days: %w", err)
	}
	return nil
}
