package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv writes a config pointing at a throwaway sqlite file and returns a
// runner that executes one command line against it.
func testEnv(t *testing.T) func(args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "itemdb.yaml")
	cfg := fmt.Sprintf("backend: sqlite\nsqlite_path: %s\nlog_level: error\n", filepath.Join(dir, "itemdb.sqlite"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	return func(args ...string) (string, error) {
		cmd := NewRootCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}
}

func TestAddGetRemoveCycle(t *testing.T) {
	run := testEnv(t)

	out, err := run("add", "event:sword", "diamond_sword",
		"--name", "Excalibur", "--lore", "An old blade", "--enchant", "minecraft:sharpness=5")
	require.NoError(t, err)
	assert.Contains(t, out, "added event:sword")

	_, err = run("add", "event:sword", "diamond_sword")
	assert.Error(t, err, "duplicate add must fail")

	out, err = run("get", "event:sword")
	require.NoError(t, err)
	assert.Contains(t, out, "type: diamond_sword")
	assert.Contains(t, out, "display-name: Excalibur")
	assert.Contains(t, out, "lore[0]: An old blade")
	assert.Contains(t, out, "enchantments.minecraft:sharpness: 5")

	out, err = run("remove", "event:sword")
	require.NoError(t, err)
	assert.Contains(t, out, "removed event:sword")

	_, err = run("get", "event:sword")
	assert.Error(t, err)
}

func TestSearchAndHistory(t *testing.T) {
	run := testEnv(t)

	_, err := run("--editor", "alice", "add", "sword", "diamond_sword", "--name", "Excalibur")
	require.NoError(t, err)

	out, err := run("search", "swor")
	require.NoError(t, err)
	assert.Contains(t, out, "sword\tExcalibur")
	assert.Contains(t, out, "1 result(s)")

	out, err = run("history", "sword")
	require.NoError(t, err)
	assert.Contains(t, out, "v1")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "Added item")

	_, err = run("history", "ghost")
	assert.Error(t, err)
}

func TestDiffAndRollback(t *testing.T) {
	run := testEnv(t)

	_, err := run("add", "sword", "diamond_sword", "--name", "Excalibur")
	require.NoError(t, err)
	_, err = run("add", "sword2", "diamond_sword")
	require.NoError(t, err)

	// A second version of sword with a different name.
	_, err = run("rollback", "sword", "1")
	require.NoError(t, err)

	out, err := run("diff", "sword", "1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "no differences")

	out, err = run("diff", "sword", "1", "99")
	require.NoError(t, err)
	assert.Contains(t, out, "no differences")

	_, err = run("diff", "sword", "one", "2")
	assert.Error(t, err)
}

func TestExportImport(t *testing.T) {
	run := testEnv(t)

	_, err := run("add", "a:x", "stick")
	require.NoError(t, err)
	_, err = run("add", "b:y", "stick")
	require.NoError(t, err)

	archive := filepath.Join(t.TempDir(), "items.zip")
	out, err := run("export", archive, "--namespace", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "exported 1 item(s)")

	out, err = run("import", archive, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "total 1, created 0, updated 1 (dry run)")

	out, err = run("import", archive, "--namespace", "fresh")
	require.NoError(t, err)
	assert.Contains(t, out, "total 1, created 1, updated 0")

	out, err = run("get", "fresh:x")
	require.NoError(t, err)
	assert.Contains(t, out, "type: stick")
}

func TestParsePairs(t *testing.T) {
	ench, err := parseIntPairs([]string{"sharpness=5", "mending=1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"sharpness": 5, "mending": 1}, ench)

	_, err = parseIntPairs([]string{"sharpness"})
	assert.Error(t, err)
	_, err = parseIntPairs([]string{"sharpness=max"})
	assert.Error(t, err)

	tags, err := parseStringPairs([]string{"quest=act2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"quest": "act2"}, tags)

	_, err = parseStringPairs([]string{"quest"})
	assert.Error(t, err)

	none, err := parseIntPairs(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}
