package store

import (
	"context"
	"fmt"

	"github.com/devvoxel/itemdb/internal/diff"
	"github.com/devvoxel/itemdb/internal/item"
	"github.com/devvoxel/itemdb/internal/model"
)

// UpdateItem applies fn to a clone of the current payload and replaces the
// record with the result. Every edit is a full read-modify-write producing
// a new version; stored metadata is never patched independently of the
// payload. Returns false when the key is absent or the write fails.
func (s *Store) UpdateItem(ctx context.Context, key, editor, comment string, fn func(*item.Item) error) bool {
	key = model.NormalizeKey(key)
	s.mu.RLock()
	rec := s.cache[key]
	s.mu.RUnlock()
	if rec == nil {
		return false
	}

	clone := rec.Item.Clone()
	if err := fn(clone); err != nil {
		s.log.Warn(ctx, "edit rejected", "key", key, "error", err)
		return false
	}
	return s.Replace(ctx, key, clone, editor, comment)
}

// SetDisplayName sets the payload's display name.
func (s *Store) SetDisplayName(ctx context.Context, key, name, editor string) bool {
	return s.UpdateItem(ctx, key, editor, "", func(it *item.Item) error {
		it.DisplayName = name
		return nil
	})
}

// ClearDisplayName removes the payload's display name.
func (s *Store) ClearDisplayName(ctx context.Context, key, editor string) bool {
	return s.UpdateItem(ctx, key, editor, "", func(it *item.Item) error {
		it.DisplayName = ""
		return nil
	})
}

// AddLoreLine appends one lore line.
func (s *Store) AddLoreLine(ctx context.Context, key, line, editor string) bool {
	return s.UpdateItem(ctx, key, editor, "", func(it *item.Item) error {
		it.Lore = append(it.Lore, line)
		return nil
	})
}

// SetLoreLine replaces the lore line at index (0-based).
func (s *Store) SetLoreLine(ctx context.Context, key string, index int, line, editor string) bool {
	return s.UpdateItem(ctx, key, editor, "", func(it *item.Item) error {
		if index < 0 || index >= len(it.Lore) {
			return fmt.Errorf("lore index %d out of range (%d lines)", index, len(it.Lore))
		}
		it.Lore[index] = line
		return nil
	})
}

// ClearLore removes all lore lines.
func (s *Store) ClearLore(ctx context.Context, key, editor string) bool {
	return s.UpdateItem(ctx, key, editor, "", func(it *item.Item) error {
		it.Lore = nil
		return nil
	})
}

// SetCustomModelData sets or clears (nil) the custom model data.
func (s *Store) SetCustomModelData(ctx context.Context, key string, value *int, editor string) bool {
	return s.UpdateItem(ctx, key, editor, "", func(it *item.Item) error {
		if value == nil {
			it.CustomModelData = nil
			return nil
		}
		v := *value
		it.CustomModelData = &v
		return nil
	})
}

// Diff compares two versions of a key. A missing version or undecodable
// payload yields an empty list; identical versions diff to nothing.
func (s *Store) Diff(ctx context.Context, key string, versionA, versionB int) []diff.Entry {
	a := s.versionItem(ctx, key, versionA)
	b := s.versionItem(ctx, key, versionB)
	if a == nil || b == nil {
		return nil
	}
	return diff.Compute(diff.Flatten(a.Map()), diff.Flatten(b.Map()))
}

func (s *Store) versionItem(ctx context.Context, key string, version int) *item.Item {
	v, err := s.backend.FetchVersion(ctx, model.NormalizeKey(key), version)
	if err != nil {
		s.log.Warn(ctx, "version lookup failed", "key", key, "version", version, "error", err)
		return nil
	}
	it, err := item.Decode(v.Payload)
	if err != nil {
		s.log.Warn(ctx, "version payload undecodable", "key", key, "version", version, "error", err)
		return nil
	}
	return it
}

// Rollback replaces the record with the payload snapshot of an earlier
// version. The rollback is itself a new version; history is never
// rewritten. Returns false when the version is missing or the write fails.
func (s *Store) Rollback(ctx context.Context, key string, version int, editor string) bool {
	it := s.versionItem(ctx, key, version)
	if it == nil {
		return false
	}
	return s.Replace(ctx, key, it, editor, fmt.Sprintf("Rollback to version %d", version))
}
