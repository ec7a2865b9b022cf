package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/devvoxel/itemdb/internal/common"
	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/item"
	"github.com/devvoxel/itemdb/internal/model"
)

const itemColumns = "name, item, display_name, lore, custom_model_data, enchantments, updated_at, is_deleted"

// itemRow is the scan target for the item table.
type itemRow struct {
	Name            string         `db:"name"`
	Item            string         `db:"item"`
	DisplayName     sql.NullString `db:"display_name"`
	Lore            sql.NullString `db:"lore"`
	CustomModelData sql.NullInt64  `db:"custom_model_data"`
	Enchantments    sql.NullString `db:"enchantments"`
	UpdatedAt       int64          `db:"updated_at"`
	Deleted         bool           `db:"is_deleted"`
}

// SaveItem upserts the item row and, in the same transaction, appends the
// next version for the key and an audit line. All-or-nothing.
func (s *Store) SaveItem(ctx context.Context, rec *model.Record, editor, comment string) error {
	serialized, err := item.Encode(rec.Item)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.upsertItemQuery(),
			rec.Key, serialized,
			nullString(rec.DisplayName), nullString(loreToColumn(rec.Lore)),
			nullInt(rec.CustomModelData), nullString(enchantmentsToColumn(rec.Enchantments)),
			rec.UpdatedAt, rec.Deleted,
		); err != nil {
			return err
		}
		if err := s.insertVersion(ctx, tx, rec, serialized, editor, comment); err != nil {
			return err
		}
		return s.insertAudit(ctx, tx, "save", rec.Key, editor, comment, rec.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", common.ErrPersistence, rec.Key, err)
	}
	return nil
}

// MarkDeleted flags the item row deleted at ts and appends a deleted version
// plus an audit line, atomically. Returns false when the key had no row.
func (s *Store) MarkDeleted(ctx context.Context, rec *model.Record, ts int64, editor, comment string) (bool, error) {
	serialized, err := item.Encode(rec.Item)
	if err != nil {
		return false, err
	}

	var existed bool
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.rebind("UPDATE "+itemsTable+" SET is_deleted = TRUE, updated_at = ? WHERE name = ?"),
			ts, rec.Key)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		existed = true
		deleted := rec.MarkDeleted(ts)
		if err := s.insertVersion(ctx, tx, deleted, serialized, editor, comment); err != nil {
			return err
		}
		return s.insertAudit(ctx, tx, "delete", rec.Key, editor, comment, ts)
	})
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %v", common.ErrPersistence, rec.Key, err)
	}
	return existed, nil
}

// LoadAllItems returns every non-deleted record.
func (s *Store) LoadAllItems(ctx context.Context) ([]*model.Record, error) {
	query := s.rebind("SELECT " + itemColumns + " FROM " + itemsTable + " WHERE is_deleted = FALSE")
	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%w: load all: %v", common.ErrPersistence, err)
	}
	return s.mapRecords(ctx, rows), nil
}

// FetchChanges returns every record, deleted or not, updated after since.
func (s *Store) FetchChanges(ctx context.Context, since int64) ([]*model.Record, error) {
	query := s.rebind("SELECT " + itemColumns + " FROM " + itemsTable + " WHERE updated_at > ?")
	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("%w: fetch changes: %v", common.ErrPersistence, err)
	}
	return s.mapRecords(ctx, rows), nil
}

// Search matches query case-insensitively against key, display name and
// flattened lore of non-deleted records, newest-updated first.
func (s *Store) Search(ctx context.Context, query string, customModelData *int, limit int) ([]*model.Record, error) {
	var b strings.Builder
	b.WriteString("SELECT " + itemColumns + " FROM " + itemsTable +
		" WHERE is_deleted = FALSE AND (LOWER(name) LIKE ?" +
		" OR LOWER(COALESCE(display_name, '')) LIKE ?" +
		" OR LOWER(COALESCE(lore, '')) LIKE ?)")
	like := "%" + strings.ToLower(query) + "%"
	args := []any{like, like, like}

	if customModelData != nil {
		b.WriteString(" AND custom_model_data = ?")
		args = append(args, *customModelData)
	}
	b.WriteString(" ORDER BY updated_at DESC")
	if limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(limit))
	}

	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(b.String()), args...); err != nil {
		return nil, fmt.Errorf("%w: search: %v", common.ErrPersistence, err)
	}
	return s.mapRecords(ctx, rows), nil
}

func (s *Store) upsertItemQuery() string {
	if s.dialect.name == config.BackendMySQL {
		return "INSERT INTO " + itemsTable + " (" + itemColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)" +
			" ON DUPLICATE KEY UPDATE item = VALUES(item), display_name = VALUES(display_name)," +
			" lore = VALUES(lore), custom_model_data = VALUES(custom_model_data)," +
			" enchantments = VALUES(enchantments), updated_at = VALUES(updated_at), is_deleted = VALUES(is_deleted)"
	}
	return s.rebind("INSERT INTO " + itemsTable + " (" + itemColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)" +
		" ON CONFLICT (name) DO UPDATE SET item = excluded.item, display_name = excluded.display_name," +
		" lore = excluded.lore, custom_model_data = excluded.custom_model_data," +
		" enchantments = excluded.enchantments, updated_at = excluded.updated_at, is_deleted = excluded.is_deleted")
}

func (s *Store) mapRecords(ctx context.Context, rows []itemRow) []*model.Record {
	out := make([]*model.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := mapRecord(row)
		if err != nil {
			// A corrupt payload should not take the whole load down.
			s.log.Warn(ctx, "skipping undecodable item", "key", row.Name, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

func mapRecord(row itemRow) (*model.Record, error) {
	it, err := item.Decode(row.Item)
	if err != nil {
		return nil, fmt.Errorf("decode item for key %s: %w", row.Name, err)
	}

	var cmd *int
	if row.CustomModelData.Valid {
		v := int(row.CustomModelData.Int64)
		cmd = &v
	}

	return model.NewRecordDirect(
		row.Name, it,
		row.DisplayName.String,
		columnToLore(row.Lore.String),
		cmd,
		columnToEnchantments(row.Enchantments.String),
		row.UpdatedAt, row.Deleted,
	), nil
}

// loreToColumn flattens lore lines into one newline-joined text column.
func loreToColumn(lore []string) string {
	return strings.Join(lore, "\n")
}

func columnToLore(col string) []string {
	if col == "" {
		return nil
	}
	return strings.Split(col, "\n")
}

// enchantmentsToColumn renders "qualified:name:level" lines, sorted so the
// column is deterministic.
func enchantmentsToColumn(ench map[string]int) string {
	if len(ench) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ench))
	for k := range ench {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ench[k]))
	}
	return b.String()
}

func columnToEnchantments(col string) map[string]int {
	if col == "" {
		return nil
	}
	out := make(map[string]int)
	for _, line := range strings.Split(col, "\n") {
		i := strings.LastIndexByte(line, ':')
		if i <= 0 {
			continue
		}
		level, err := strconv.Atoi(line[i+1:])
		if err != nil {
			continue
		}
		out[line[:i]] = level
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
