// Package item defines the payload value stored by the record store.
//
// The store treats an Item as opaque: it is serialized as a whole,
// versioned as a whole and never patched in place. The only thing the rest
// of the system reads out of it is the metadata projection (display name,
// lore, custom model data, enchantments) used for indexed columns.
package item

import "sort"

// Item is the payload of one record. Value semantics: an Item handed to or
// returned from the store is always a deep copy, never a shared pointer,
// because the cache may be read concurrently while an edit is in flight.
type Item struct {
	Type            string
	Amount          int
	Unbreakable     bool
	DisplayName     string
	Lore            []string
	CustomModelData *int
	Enchantments    map[string]int
	Tags            map[string]string
}

// New returns a minimal item of the given type with amount 1.
func New(typ string) *Item {
	return &Item{Type: typ, Amount: 1}
}

// Clone returns a deep copy. Safe on nil.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := *it
	if it.Lore != nil {
		out.Lore = append([]string(nil), it.Lore...)
	}
	if it.CustomModelData != nil {
		v := *it.CustomModelData
		out.CustomModelData = &v
	}
	if it.Enchantments != nil {
		out.Enchantments = make(map[string]int, len(it.Enchantments))
		for k, v := range it.Enchantments {
			out.Enchantments[k] = v
		}
	}
	if it.Tags != nil {
		out.Tags = make(map[string]string, len(it.Tags))
		for k, v := range it.Tags {
			out.Tags[k] = v
		}
	}
	return &out
}

// Map renders the item as a generic tree for structural comparison.
// Empty optional fields are omitted so that "unset" and "absent" diff
// identically across versions.
func (it *Item) Map() map[string]any {
	m := map[string]any{
		"type":   it.Type,
		"amount": it.Amount,
	}
	if it.Unbreakable {
		m["unbreakable"] = true
	}
	if it.DisplayName != "" {
		m["display-name"] = it.DisplayName
	}
	if len(it.Lore) > 0 {
		lore := make([]any, len(it.Lore))
		for i, l := range it.Lore {
			lore[i] = l
		}
		m["lore"] = lore
	}
	if it.CustomModelData != nil {
		m["custom-model-data"] = *it.CustomModelData
	}
	if len(it.Enchantments) > 0 {
		ench := make(map[string]any, len(it.Enchantments))
		for k, v := range it.Enchantments {
			ench[k] = v
		}
		m["enchantments"] = ench
	}
	if len(it.Tags) > 0 {
		tags := make(map[string]any, len(it.Tags))
		for k, v := range it.Tags {
			tags[k] = v
		}
		m["tags"] = tags
	}
	return m
}

// EnchantmentKeys returns the enchantment names in sorted order.
func (it *Item) EnchantmentKeys() []string {
	keys := make([]string, 0, len(it.Enchantments))
	for k := range it.Enchantments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
