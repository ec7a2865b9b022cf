package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/devvoxel/itemdb/internal/common"
)

func (s *Store) insertAudit(ctx context.Context, tx *sqlx.Tx, action, itemName, actor, details string, ts int64) error {
	if action == "" {
		return nil
	}
	insert := s.rebind("INSERT INTO " + auditTable + " (action, item_name, actor, details, created_at) VALUES (?, ?, ?, ?, ?)")
	_, err := tx.ExecContext(ctx, insert,
		action, nullString(itemName), nullString(actor), nullString(details), ts)
	return err
}

// RecordAudit inserts a standalone audit line outside any record mutation,
// e.g. an import or export summary.
func (s *Store) RecordAudit(ctx context.Context, action, itemName, actor, details string, ts int64) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.insertAudit(ctx, tx, action, itemName, actor, details, ts)
	})
	if err != nil {
		return fmt.Errorf("%w: audit %s: %v", common.ErrPersistence, action, err)
	}
	return nil
}
