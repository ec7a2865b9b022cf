package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/devvoxel/itemdb/internal/common"
	"github.com/devvoxel/itemdb/internal/model"
)

const versionColumns = "id, item_name, version, editor, payload, created_at, comment, is_deleted"

type versionRow struct {
	ID        int64          `db:"id"`
	ItemName  string         `db:"item_name"`
	Version   int            `db:"version"`
	Editor    sql.NullString `db:"editor"`
	Payload   string         `db:"payload"`
	CreatedAt int64          `db:"created_at"`
	Comment   sql.NullString `db:"comment"`
	Deleted   bool           `db:"is_deleted"`
}

// insertVersion assigns 1 + max(version) for the key and inserts the
// snapshot. Runs inside the caller's transaction, so the read and the
// insert cannot be split by a concurrent commit on the same connection.
func (s *Store) insertVersion(ctx context.Context, tx *sqlx.Tx, rec *model.Record, serialized, editor, comment string) error {
	var current int
	selectMax := s.rebind("SELECT COALESCE(MAX(version), 0) FROM " + versionsTable + " WHERE item_name = ?")
	if err := tx.GetContext(ctx, &current, selectMax, rec.Key); err != nil {
		return err
	}

	insert := s.rebind("INSERT INTO " + versionsTable +
		" (item_name, version, editor, payload, created_at, comment, is_deleted) VALUES (?, ?, ?, ?, ?, ?, ?)")
	_, err := tx.ExecContext(ctx, insert,
		rec.Key, current+1, nullString(editor), serialized, rec.UpdatedAt, nullString(comment), rec.Deleted)
	return err
}

// FetchHistory returns versions for a key, newest first.
func (s *Store) FetchHistory(ctx context.Context, key string, limit int) ([]*model.Version, error) {
	var b strings.Builder
	b.WriteString("SELECT " + versionColumns + " FROM " + versionsTable + " WHERE item_name = ? ORDER BY version DESC")
	if limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(limit))
	}

	var rows []versionRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(b.String()), key); err != nil {
		return nil, fmt.Errorf("%w: history %s: %v", common.ErrPersistence, key, err)
	}

	out := make([]*model.Version, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapVersion(row))
	}
	return out, nil
}

// FetchVersion returns one version snapshot, or common.ErrNotFound.
func (s *Store) FetchVersion(ctx context.Context, key string, version int) (*model.Version, error) {
	query := s.rebind("SELECT " + versionColumns + " FROM " + versionsTable + " WHERE item_name = ? AND version = ?")
	var row versionRow
	if err := s.db.GetContext(ctx, &row, query, key, version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: version %s@%d: %v", common.ErrPersistence, key, version, err)
	}
	return mapVersion(row), nil
}

func mapVersion(row versionRow) *model.Version {
	return &model.Version{
		ID:        row.ID,
		ItemName:  row.ItemName,
		Version:   row.Version,
		Editor:    row.Editor.String,
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt,
		Comment:   row.Comment.String,
		Deleted:   row.Deleted,
	}
}
