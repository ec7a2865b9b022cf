// Package model holds the persistent data types shared by the storage
// backends and the record store.
package model

import (
	"strings"

	"github.com/devvoxel/itemdb/internal/item"
)

// Record is the current, live state of one named item: the payload plus the
// indexed metadata projection and the soft-delete flag.
//
// The key is canonicalized to lowercase and immutable after creation. All
// other fields are replaced wholesale on every mutation; there are no
// partial-field updates anywhere in the system.
type Record struct {
	Key             string
	Item            *item.Item
	DisplayName     string
	Lore            []string
	CustomModelData *int
	Enchantments    map[string]int
	UpdatedAt       int64
	Deleted         bool
}

// NormalizeKey canonicalizes a record key.
func NormalizeKey(name string) string {
	return strings.ToLower(name)
}

// NewRecord builds a record from a payload at the given logical timestamp,
// deriving the metadata projection from the payload itself. The payload is
// cloned; the caller keeps ownership of its copy.
func NewRecord(key string, it *item.Item, updatedAt int64, deleted bool) *Record {
	clone := it.Clone()
	r := &Record{
		Key:       NormalizeKey(key),
		Item:      clone,
		UpdatedAt: updatedAt,
		Deleted:   deleted,
	}
	if clone != nil {
		r.DisplayName = clone.DisplayName
		if len(clone.Lore) > 0 {
			r.Lore = append([]string(nil), clone.Lore...)
		}
		if clone.CustomModelData != nil {
			v := *clone.CustomModelData
			r.CustomModelData = &v
		}
		if len(clone.Enchantments) > 0 {
			r.Enchantments = make(map[string]int, len(clone.Enchantments))
			for k, v := range clone.Enchantments {
				r.Enchantments[k] = v
			}
		}
	}
	return r
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return NewRecordDirect(r.Key, r.Item.Clone(), r.DisplayName, r.Lore, r.CustomModelData, r.Enchantments, r.UpdatedAt, r.Deleted)
}

// NewRecordDirect builds a record from already-extracted fields, copying the
// reference-typed ones. Used by backends when mapping rows/documents.
func NewRecordDirect(key string, it *item.Item, displayName string, lore []string, cmd *int, ench map[string]int, updatedAt int64, deleted bool) *Record {
	r := &Record{
		Key:         NormalizeKey(key),
		Item:        it,
		DisplayName: displayName,
		UpdatedAt:   updatedAt,
		Deleted:     deleted,
	}
	if len(lore) > 0 {
		r.Lore = append([]string(nil), lore...)
	}
	if cmd != nil {
		v := *cmd
		r.CustomModelData = &v
	}
	if len(ench) > 0 {
		r.Enchantments = make(map[string]int, len(ench))
		for k, v := range ench {
			r.Enchantments[k] = v
		}
	}
	return r
}

// MarkDeleted returns a copy flagged deleted at the given timestamp.
func (r *Record) MarkDeleted(updatedAt int64) *Record {
	out := r.Clone()
	out.UpdatedAt = updatedAt
	out.Deleted = true
	return out
}

// Version is an immutable snapshot of a record produced by exactly one
// mutation (create, update or delete). Per key, version numbers are a
// gap-free 1-based sequence assigned by the backend inside the same
// transaction as the insert.
type Version struct {
	ID        int64
	ItemName  string
	Version   int
	Editor    string
	Payload   string // serialized item, item.Encode form
	CreatedAt int64
	Comment   string
	Deleted   bool
}

// AuditEntry is one observational log line. It is never read back by the
// core; it exists for operators.
type AuditEntry struct {
	ID        int64
	Action    string
	ItemName  string
	Actor     string
	Details   string
	CreatedAt int64
}
