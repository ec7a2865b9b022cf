package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devvoxel/itemdb/internal/common"
	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/item"
	"github.com/devvoxel/itemdb/internal/logging"
	"github.com/devvoxel/itemdb/internal/model"
)

func TestOpen_UpgradesLegacySchema(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	// Seed a database the way pre-history releases created it: an items
	// table without updated_at and is_deleted.
	seed, err := sqlx.ConnectContext(ctx, "sqlite", cfg.SQLitePath)
	require.NoError(t, err)
	_, err = seed.ExecContext(ctx, `CREATE TABLE `+itemsTable+` (
		name TEXT PRIMARY KEY,
		item TEXT NOT NULL,
		display_name TEXT,
		lore TEXT,
		custom_model_data INTEGER,
		enchantments TEXT
	)`)
	require.NoError(t, err)

	payload, err := item.Encode(swordItem())
	require.NoError(t, err)
	_, err = seed.ExecContext(ctx,
		"INSERT INTO "+itemsTable+" (name, item, display_name) VALUES (?, ?, ?)",
		"relic", payload, "Excalibur")
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	s, err := Open(ctx, cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, col := range []string{"updated_at", "is_deleted"} {
		exists, err := s.columnExists(ctx, itemsTable, col)
		require.NoError(t, err)
		assert.True(t, exists, "column %s not added", col)
	}

	// The old row is alive, undeleted and stamped so sync picks it up.
	all, err := s.LoadAllItems(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "relic", all[0].Key)
	assert.Greater(t, all[0].UpdatedAt, int64(0))
	assert.False(t, all[0].Deleted)

	changes, err := s.FetchChanges(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestOpen_MigrationFailure(t *testing.T) {
	orig := gooseUp
	gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	t.Cleanup(func() { gooseUp = orig })

	_, err := Open(context.Background(), testConfig(t), logging.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConnection))
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{
		db:      sqlx.NewDb(db, "sqlmock"),
		log:     logging.Nop(),
		dialect: dialects[config.BackendSQLite],
	}, mock
}

func TestSaveItem_RollsBackOnVersionFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO " + itemsTable).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COALESCE\\(MAX\\(version\\), 0\\) FROM " + versionsTable).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	rec := model.NewRecord("sword", swordItem(), 1, false)
	err := s.SaveItem(context.Background(), rec, "alice", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPersistence))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAudit_WrapsPersistenceErrors(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO " + auditTable).
		WillReturnError(errors.New("table gone"))
	mock.ExpectRollback()

	err := s.RecordAudit(context.Background(), "import", "sword", "alice", "", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPersistence))
	assert.NoError(t, mock.ExpectationsWereMet())
}
