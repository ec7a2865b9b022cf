package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devvoxel/itemdb/internal/common"
	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/item"
	"github.com/devvoxel/itemdb/internal/logging"
	"github.com/devvoxel/itemdb/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "itemdb.sqlite")
	return cfg
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), testConfig(t), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func swordItem() *item.Item {
	cmd := 42
	return &item.Item{
		Type:            "diamond_sword",
		Amount:          1,
		DisplayName:     "Excalibur",
		Lore:            []string{"An old blade", "still sharp"},
		CustomModelData: &cmd,
		Enchantments:    map[string]int{"minecraft:sharpness": 5},
	}
}

func saveRecord(t *testing.T, s *Store, key string, it *item.Item, editor, comment string) *model.Record {
	t.Helper()
	rec := model.NewRecord(key, it, s.Now(), false)
	require.NoError(t, s.SaveItem(context.Background(), rec, editor, comment))
	return rec
}

func TestOpen_CreatesSchemaAndIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	s, err := Open(ctx, cfg, logging.Nop())
	require.NoError(t, err)

	for _, table := range []string{itemsTable, versionsTable, auditTable} {
		var n int
		require.NoError(t, s.db.Get(&n, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table))
		assert.Equal(t, 1, n, "missing table %s", table)
	}
	require.NoError(t, s.Close())

	// Reopening the same file must not fail or duplicate anything.
	s2, err := Open(ctx, cfg, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestOpen_UnreachableBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = config.BackendPostgres
	cfg.DSN = "postgres://nobody@127.0.0.1:1/void?connect_timeout=1"

	_, err := Open(context.Background(), cfg, logging.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConnection))
}

func TestSaveItem_RoundTripsRecordFields(t *testing.T) {
	s := newTestStore(t)
	saved := saveRecord(t, s, "Event:Sword", swordItem(), "alice", "initial")

	all, err := s.LoadAllItems(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, "event:sword", got.Key)
	assert.Equal(t, saved.Item, got.Item)
	assert.Equal(t, "Excalibur", got.DisplayName)
	assert.Equal(t, []string{"An old blade", "still sharp"}, got.Lore)
	require.NotNil(t, got.CustomModelData)
	assert.Equal(t, 42, *got.CustomModelData)
	assert.Equal(t, map[string]int{"minecraft:sharpness": 5}, got.Enchantments)
	assert.Equal(t, saved.UpdatedAt, got.UpdatedAt)
	assert.False(t, got.Deleted)
}

func TestSaveItem_VersionsAreSequentialAndGapFree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		saveRecord(t, s, "sword", swordItem(), "alice", "edit")
	}

	history, err := s.FetchHistory(ctx, "sword", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Newest first: 3, 2, 1.
	for i, v := range history {
		assert.Equal(t, 3-i, v.Version)
		assert.Equal(t, "sword", v.ItemName)
		assert.Equal(t, "alice", v.Editor)
	}

	// Versions of other keys do not interfere with the sequence.
	saveRecord(t, s, "shield", swordItem(), "bob", "new")
	history, err = s.FetchHistory(ctx, "shield", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Version)
}

func TestFetchHistory_Limit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		saveRecord(t, s, "sword", swordItem(), "", "")
	}

	history, err := s.FetchHistory(context.Background(), "sword", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 5, history[0].Version)
	assert.Equal(t, 4, history[1].Version)
}

func TestFetchVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveRecord(t, s, "sword", swordItem(), "alice", "one")

	v, err := s.FetchVersion(ctx, "sword", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Version)
	assert.Equal(t, "one", v.Comment)

	decoded, err := item.Decode(v.Payload)
	require.NoError(t, err)
	assert.Equal(t, swordItem(), decoded)

	_, err = s.FetchVersion(ctx, "sword", 99)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = s.FetchVersion(ctx, "ghost", 1)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestMarkDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := saveRecord(t, s, "sword", swordItem(), "alice", "initial")

	ts := s.Now()
	existed, err := s.MarkDeleted(ctx, rec, ts, "bob", "Deleted item")
	require.NoError(t, err)
	assert.True(t, existed)

	// Gone from the default view.
	all, err := s.LoadAllItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Still visible to incremental sync, flagged deleted.
	changes, err := s.FetchChanges(ctx, rec.UpdatedAt)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Deleted)
	assert.Equal(t, ts, changes[0].UpdatedAt)

	// History keeps the delete event as its own version.
	history, err := s.FetchHistory(ctx, "sword", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Deleted)
	assert.Equal(t, 2, history[0].Version)
}

func TestMarkDeleted_MissingKeyIsNoop(t *testing.T) {
	s := newTestStore(t)
	rec := model.NewRecord("ghost", swordItem(), s.Now(), false)

	existed, err := s.MarkDeleted(context.Background(), rec, s.Now(), "", "")
	require.NoError(t, err)
	assert.False(t, existed)

	history, err := s.FetchHistory(context.Background(), "ghost", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFetchChanges_SinceFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := saveRecord(t, s, "a", swordItem(), "", "")
	second := saveRecord(t, s, "b", swordItem(), "", "")

	changes, err := s.FetchChanges(ctx, first.UpdatedAt)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "b", changes[0].Key)

	changes, err = s.FetchChanges(ctx, second.UpdatedAt)
	require.NoError(t, err)
	assert.Empty(t, changes)

	changes, err = s.FetchChanges(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sword := swordItem()
	saveRecord(t, s, "event:sword", sword, "", "")

	pick := item.New("iron_pickaxe")
	pick.DisplayName = "Trusty Digger"
	saveRecord(t, s, "tools:pick", pick, "", "")

	paper := item.New("paper")
	paper.Lore = []string{"Map of the western SWAMP"}
	saveRecord(t, s, "maps:west", paper, "", "")

	tests := []struct {
		name  string
		query string
		cmd   *int
		want  []string
	}{
		{"by key substring", "swor", nil, []string{"event:sword"}},
		{"by display name, case-insensitive", "trusty", nil, []string{"tools:pick"}},
		{"by lore text", "swamp", nil, []string{"maps:west"}},
		{"no match", "zombie", nil, nil},
		{"custom model data filter", "s", intPtr(42), []string{"event:sword"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Search(ctx, tc.query, tc.cmd, 10)
			require.NoError(t, err)
			keys := make([]string, 0, len(got))
			for _, r := range got {
				keys = append(keys, r.Key)
			}
			if tc.want == nil {
				assert.Empty(t, keys)
			} else {
				assert.Equal(t, tc.want, keys)
			}
		})
	}
}

func TestSearch_OrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	saveRecord(t, s, "sword:old", swordItem(), "", "")
	saveRecord(t, s, "sword:mid", swordItem(), "", "")
	saveRecord(t, s, "sword:new", swordItem(), "", "")

	got, err := s.Search(context.Background(), "sword", nil, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest updated first.
	assert.Equal(t, "sword:new", got[0].Key)
	assert.Equal(t, "sword:mid", got[1].Key)
}

func TestSearch_ExcludesDeleted(t *testing.T) {
	s := newTestStore(t)
	rec := saveRecord(t, s, "sword", swordItem(), "", "")
	_, err := s.MarkDeleted(context.Background(), rec, s.Now(), "", "")
	require.NoError(t, err)

	got, err := s.Search(context.Background(), "sword", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecordAudit_Standalone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordAudit(ctx, "export", "", "alice", "Exported 3 items", s.Now()))

	var n int
	require.NoError(t, s.db.Get(&n, "SELECT COUNT(*) FROM "+auditTable+" WHERE action = 'export' AND actor = 'alice'"))
	assert.Equal(t, 1, n)
}

func TestMutations_WriteAuditRows(t *testing.T) {
	s := newTestStore(t)
	rec := saveRecord(t, s, "sword", swordItem(), "alice", "made it")
	_, err := s.MarkDeleted(context.Background(), rec, s.Now(), "bob", "Deleted item")
	require.NoError(t, err)

	var actions []string
	require.NoError(t, s.db.Select(&actions, "SELECT action FROM "+auditTable+" ORDER BY id"))
	assert.Equal(t, []string{"save", "delete"}, actions)
}

func intPtr(v int) *int { return &v }
