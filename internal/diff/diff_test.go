package diff

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/devvoxel/itemdb/internal/item"
)

func TestFlatten(t *testing.T) {
	cmd := 3
	it := &item.Item{
		Type:            "bow",
		Amount:          1,
		DisplayName:     "Longshot",
		Lore:            []string{"first", "second"},
		CustomModelData: &cmd,
		Enchantments:    map[string]int{"minecraft:power": 4},
		Tags:            map[string]string{"quest": "act2"},
	}

	got := Flatten(it.Map())
	assert.Equal(t, map[string]string{
		"type":                         "bow",
		"amount":                       "1",
		"display-name":                 "Longshot",
		"lore[0]":                      "first",
		"lore[1]":                      "second",
		"custom-model-data":            "3",
		"enchantments.minecraft:power": "4",
		"tags.quest":                   "act2",
	}, got)
}

func TestCompute_IdenticalSnapshotsAreEmpty(t *testing.T) {
	m := Flatten(item.New("stick").Map())
	assert.Empty(t, Compute(m, m))
}

func TestCompute_Kinds(t *testing.T) {
	old := map[string]string{"amount": "1", "display-name": "Old", "lore[0]": "gone"}
	new := map[string]string{"amount": "2", "display-name": "Old", "tags.quest": "act1"}

	got := Compute(old, new)
	assert.Equal(t, []Entry{
		{Path: "amount", Kind: Changed, Old: "1", New: "2"},
		{Path: "lore[0]", Kind: Removed, Old: "gone"},
		{Path: "tags.quest", Kind: Added, New: "act1"},
	}, got)
}

func TestCompute_SortsCaseInsensitively(t *testing.T) {
	old := map[string]string{}
	new := map[string]string{"Zeta": "1", "alpha": "2", "Beta": "3"}

	got := Compute(old, new)
	paths := make([]string, len(got))
	for i, e := range got {
		paths[i] = e.Path
	}
	assert.Equal(t, []string{"alpha", "Beta", "Zeta"}, paths)
}

func TestEntry_Rendering(t *testing.T) {
	assert.Equal(t, "+ lore[0]: shiny", Entry{Path: "lore[0]", Kind: Added, New: "shiny"}.String())
	assert.Equal(t, "- display-name: Old", Entry{Path: "display-name", Kind: Removed, Old: "Old"}.String())
	assert.Equal(t, "~ amount: 1 -> 2", Entry{Path: "amount", Kind: Changed, Old: "1", New: "2"}.String())
}

func TestCompute_Golden(t *testing.T) {
	cmdOld, cmdNew := 3, 7
	before := &item.Item{
		Type:            "bow",
		Amount:          1,
		DisplayName:     "Longshot",
		Lore:            []string{"first", "second"},
		CustomModelData: &cmdOld,
		Enchantments:    map[string]int{"minecraft:power": 4},
	}
	after := &item.Item{
		Type:            "bow",
		Amount:          1,
		DisplayName:     "Longshot II",
		Lore:            []string{"first"},
		CustomModelData: &cmdNew,
		Enchantments:    map[string]int{"minecraft:power": 5, "minecraft:flame": 1},
	}

	entries := Compute(Flatten(before.Map()), Flatten(after.Map()))
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}

	g := goldie.New(t)
	g.Assert(t, "bow_upgrade", []byte(strings.Join(lines, "\n")+"\n"))
}
