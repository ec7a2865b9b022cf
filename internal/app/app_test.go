package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/item"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "itemdb.sqlite")
	cfg.LogLevel = "error"
	return cfg
}

func TestNew_WiresStore(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	require.True(t, a.Store().Add(context.Background(), "sword", item.New("diamond_sword"), "test", ""))
	assert.Equal(t, 1, a.Store().Size())

	require.NoError(t, a.Close())
	assert.NoError(t, a.Close(), "second close is a no-op")
}

func TestNew_BadBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = "oracle"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
