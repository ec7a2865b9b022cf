package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

// gooseUp is a seam for testing goose.UpContext.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// runMigrations applies the embedded migrations for the active dialect.
func (s *Store) runMigrations(ctx context.Context) error {
	sub, err := fs.Sub(migrations, "migrations/"+s.dialect.name)
	if err != nil {
		return err
	}
	goose.SetBaseFS(sub)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(s.dialect.goose); err != nil {
		return err
	}
	return gooseUp(ctx, s.db.DB, ".")
}

// ensureLegacyColumns upgrades item tables created by pre-history releases,
// which lack updated_at and is_deleted. Added columns are backfilled with a
// current logical timestamp so incremental sync picks the rows up exactly
// once. Runs before migrations; a fresh database has no items table yet and
// is left for the migration to create.
func (s *Store) ensureLegacyColumns(ctx context.Context) error {
	exists, err := s.tableExists(ctx, itemsTable)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	type col struct {
		name, definition string
	}
	cols := []col{
		{"updated_at", "BIGINT NOT NULL DEFAULT 0"},
		{"is_deleted", "BOOLEAN NOT NULL DEFAULT FALSE"},
	}

	for _, c := range cols {
		exists, err := s.columnExists(ctx, itemsTable, c.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", itemsTable, c.name, c.definition)
		if _, err := s.db.ExecContext(ctx, alter); err != nil {
			return err
		}
		if c.name == "updated_at" {
			backfill := s.rebind(fmt.Sprintf("UPDATE %s SET updated_at = ? WHERE updated_at = 0 OR updated_at IS NULL", itemsTable))
			if _, err := s.db.ExecContext(ctx, backfill, s.Now()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var query string
	switch s.dialect.name {
	case "sqlite":
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	case "mysql":
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	default: // postgres
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?"
	}

	var n int
	if err := s.db.GetContext(ctx, &n, s.rebind(query), table); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) columnExists(ctx context.Context, table, column string) (bool, error) {
	var query string
	args := []any{table, column}
	switch s.dialect.name {
	case "sqlite":
		query = "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?"
	case "mysql":
		query = "SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?"
	default: // postgres
		query = "SELECT COUNT(*) FROM information_schema.columns WHERE table_name = ? AND column_name = ?"
	}

	var n int
	if err := s.db.GetContext(ctx, &n, s.rebind(query), args...); err != nil {
		return false, err
	}
	return n > 0, nil
}
