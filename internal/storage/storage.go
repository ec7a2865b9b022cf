// Package storage defines the persistence abstraction behind the record
// store. Two implementations exist with identical behavioral contracts: a
// relational one (sqlstore: sqlite, mysql, postgres) and a document one
// (mongostore). The choice is a deployment concern made once, in Open;
// nothing outside this boundary branches on backend type.
package storage

import (
	"context"
	"fmt"

	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/logging"
	"github.com/devvoxel/itemdb/internal/model"
	"github.com/devvoxel/itemdb/internal/storage/mongostore"
	"github.com/devvoxel/itemdb/internal/storage/sqlstore"
)

// Backend is the contract every storage implementation satisfies.
//
// All operations may block on network or disk I/O. Write operations are
// atomic: on error nothing is committed.
type Backend interface {
	// Now returns a strictly increasing logical timestamp in milliseconds.
	// Successive calls never return the same value, even when the wall
	// clock stands still.
	Now() int64

	// SaveItem upserts the item row, inserts the next Version for the key
	// (1 + current max, computed in the same transaction) and an audit
	// line, atomically.
	SaveItem(ctx context.Context, rec *model.Record, editor, comment string) error

	// MarkDeleted flags the item row deleted at ts and appends a deleted
	// Version plus an audit line, atomically. Returns false when no row
	// existed; that is not an error.
	MarkDeleted(ctx context.Context, rec *model.Record, ts int64, editor, comment string) (bool, error)

	// LoadAllItems returns every non-deleted record.
	LoadAllItems(ctx context.Context) ([]*model.Record, error)

	// FetchChanges returns every record, deleted or not, with
	// UpdatedAt > since.
	FetchChanges(ctx context.Context, since int64) ([]*model.Record, error)

	// FetchHistory returns versions for a key, newest first, capped by
	// limit when limit > 0.
	FetchHistory(ctx context.Context, key string, limit int) ([]*model.Version, error)

	// FetchVersion returns one version, or common.ErrNotFound.
	FetchVersion(ctx context.Context, key string, version int) (*model.Version, error)

	// Search matches query case-insensitively against key, display name
	// and flattened lore of non-deleted records, optionally filtered by
	// custom model data, newest-updated first, capped by limit when > 0.
	Search(ctx context.Context, query string, customModelData *int, limit int) ([]*model.Record, error)

	// RecordAudit inserts a standalone audit line outside any mutation.
	RecordAudit(ctx context.Context, action, itemName, actor, details string, ts int64) error

	Close() error
}

// Open connects the backend selected by cfg.Backend and ensures its schema.
// Connection failures wrap common.ErrConnection and are fatal to startup.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite, config.BackendMySQL, config.BackendPostgres:
		return sqlstore.Open(ctx, cfg, log)
	case config.BackendMongo:
		return mongostore.Open(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Backend)
	}
}
