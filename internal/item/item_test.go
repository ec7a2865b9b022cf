package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone_IsDeep(t *testing.T) {
	orig := sample()
	cp := orig.Clone()

	require.Equal(t, orig, cp)

	cp.Lore[0] = "tampered"
	cp.Enchantments["minecraft:sharpness"] = 1
	cp.Tags["origin"] = "tampered"
	*cp.CustomModelData = 1

	assert.Equal(t, "Forged in", orig.Lore[0])
	assert.Equal(t, 5, orig.Enchantments["minecraft:sharpness"])
	assert.Equal(t, "event", orig.Tags["origin"])
	assert.Equal(t, 1234, *orig.CustomModelData)
}

func TestClone_Nil(t *testing.T) {
	var it *Item
	assert.Nil(t, it.Clone())
}

func TestMap_OmitsEmptyFields(t *testing.T) {
	m := New("stone").Map()
	assert.Equal(t, map[string]any{"type": "stone", "amount": 1}, m)
}

func TestMap_FullItem(t *testing.T) {
	m := sample().Map()
	assert.Equal(t, "diamond_sword", m["type"])
	assert.Equal(t, true, m["unbreakable"])
	assert.Equal(t, 1234, m["custom-model-data"])
	assert.Equal(t, []any{"Forged in", "the old forge"}, m["lore"])

	ench, ok := m["enchantments"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 5, ench["minecraft:sharpness"])
}

func TestEnchantmentKeys_Sorted(t *testing.T) {
	it := sample()
	assert.Equal(t, []string{"minecraft:sharpness", "minecraft:unbreaking"}, it.EnchantmentKeys())
}
