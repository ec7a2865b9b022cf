// Package sqlstore implements the storage backend over a relational
// database. Three dialects are supported: sqlite, mysql and postgres.
// Queries are written once with ? placeholders and rebound per dialect.
package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/devvoxel/itemdb/internal/common"
	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/logging"
	"github.com/devvoxel/itemdb/internal/storage/clock"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Table names are fixed; migrations own them.
const (
	itemsTable    = "itemdb_items"
	versionsTable = "itemdb_versions"
	auditTable    = "itemdb_audit"
)

// Store is the SQL-backed storage implementation.
type Store struct {
	db      *sqlx.DB
	log     logging.Logger
	clock   clock.Clock
	dialect dialect
}

type dialect struct {
	name     string // config backend name
	driver   string // database/sql driver name
	goose    string // goose dialect name
	bindType int    // sqlx bindvar style
}

var dialects = map[string]dialect{
	config.BackendSQLite:   {name: config.BackendSQLite, driver: "sqlite", goose: "sqlite3", bindType: sqlx.QUESTION},
	config.BackendMySQL:    {name: config.BackendMySQL, driver: "mysql", goose: "mysql", bindType: sqlx.QUESTION},
	config.BackendPostgres: {name: config.BackendPostgres, driver: "pgx", goose: "pgx", bindType: sqlx.DOLLAR},
}

// Open connects to the configured database, sizes the pool, runs schema
// migrations and backfills legacy columns. Failures wrap
// common.ErrConnection.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Store, error) {
	d, ok := dialects[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported SQL backend %q", common.ErrConnection, cfg.Backend)
	}

	dsn := cfg.DSN
	if d.name == config.BackendSQLite {
		dsn = cfg.SQLitePath
	}

	db, err := sqlx.ConnectContext(ctx, d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConnection, err)
	}

	if d.name == config.BackendSQLite {
		// sqlite allows one writer; more connections just trade errors
		// for lock contention.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		pool := cfg.PoolSize
		if pool < 1 {
			pool = 1
		}
		db.SetMaxOpenConns(pool)
		idle := pool / 2
		if idle < 2 {
			idle = 2
		}
		db.SetMaxIdleConns(idle)
	}

	s := &Store{db: db, log: log, dialect: d}

	// Legacy columns must exist before migrations run: the schema
	// migration indexes updated_at and would fail on a pre-history table.
	if err := s.ensureLegacyColumns(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: legacy columns: %v", common.ErrConnection, err)
	}
	if err := s.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrations: %v", common.ErrConnection, err)
	}

	log.Info(ctx, "connected to database", "backend", d.name)
	return s, nil
}

// Now returns the next strictly increasing logical timestamp.
func (s *Store) Now() int64 {
	return s.clock.Now()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind converts ?-style placeholders to the dialect's style.
func (s *Store) rebind(query string) string {
	return sqlx.Rebind(s.dialect.bindType, query)
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}
