package mongostore

import (
	"context"
	"fmt"

	"github.com/devvoxel/itemdb/internal/common"
)

func (s *Store) insertAudit(ctx context.Context, action, itemName, actor, details string, ts int64) error {
	if action == "" {
		return nil
	}
	doc := auditDoc{
		Action:    action,
		ItemName:  itemName,
		Actor:     actor,
		Details:   details,
		CreatedAt: ts,
	}
	if _, err := s.audit.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%w: audit %s: %v", common.ErrPersistence, action, err)
	}
	return nil
}

// RecordAudit inserts a standalone audit line.
func (s *Store) RecordAudit(ctx context.Context, action, itemName, actor, details string, ts int64) error {
	return s.insertAudit(ctx, action, itemName, actor, details, ts)
}
