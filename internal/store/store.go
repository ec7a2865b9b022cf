// Package store is the in-process record cache and mutation API. It owns a
// map from key to current record, hydrated from the storage backend at
// startup and refreshed by periodic sync. All mutations go through the
// backend first; the cache is only updated after a successful commit, so it
// never reflects an uncommitted write.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/item"
	"github.com/devvoxel/itemdb/internal/logging"
	"github.com/devvoxel/itemdb/internal/model"
	"github.com/devvoxel/itemdb/internal/notify"
	"github.com/devvoxel/itemdb/internal/resolver"
	"github.com/devvoxel/itemdb/internal/storage"
)

// Default comments attached to mutations when the caller supplies none.
const (
	commentAdded   = "Added item"
	commentUpdated = "Updated item"
	commentDeleted = "Deleted item"
)

// Store is safe for concurrent use. Reads hit only the cache; mutations of
// the same key are serialized, mutations of distinct keys proceed in
// parallel.
type Store struct {
	backend  storage.Backend
	resolver resolver.Provider
	notifier notify.Notifier
	log      logging.Logger

	searchLimit  int
	historyLimit int

	mu    sync.RWMutex
	cache map[string]*model.Record

	keys keyMutex

	syncMu      sync.Mutex
	lastSync    int64
	syncRunning bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New builds a store over an opened backend. Call Load before first use and
// StartSync to begin background refresh.
func New(backend storage.Backend, cfg *config.Config, res resolver.Provider, not notify.Notifier, log logging.Logger) *Store {
	if res == nil {
		res = resolver.Null{}
	}
	if not == nil {
		not = notify.Nop{}
	}
	return &Store{
		backend:      backend,
		resolver:     res,
		notifier:     not,
		log:          log,
		searchLimit:  cfg.SearchLimit,
		historyLimit: cfg.HistoryLimit,
		cache:        make(map[string]*model.Record),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Load hydrates the cache from the backend, replacing any previous content,
// and positions the sync cursor at the newest timestamp seen.
func (s *Store) Load(ctx context.Context) error {
	records, err := s.backend.LoadAllItems(ctx)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}

	fresh := make(map[string]*model.Record, len(records))
	var newest int64
	for _, rec := range records {
		fresh[rec.Key] = rec
		if rec.UpdatedAt > newest {
			newest = rec.UpdatedAt
		}
	}

	s.mu.Lock()
	s.cache = fresh
	s.mu.Unlock()
	s.advanceLastSync(newest)

	s.log.Info(ctx, "cache loaded", "items", len(fresh))
	return nil
}

// Add stores a new record under key. Returns false when the key is already
// present or the write fails.
func (s *Store) Add(ctx context.Context, key string, it *item.Item, editor, comment string) bool {
	key = model.NormalizeKey(key)
	if s.Exists(key) {
		return false
	}
	if comment == "" {
		comment = commentAdded
	}
	return s.replaceInternal(ctx, key, it, editor, comment)
}

// Replace stores a record under key regardless of prior state. The metadata
// projection is re-derived from the payload; nothing from the previous
// record survives.
func (s *Store) Replace(ctx context.Context, key string, it *item.Item, editor, comment string) bool {
	if comment == "" {
		comment = commentUpdated
	}
	return s.replaceInternal(ctx, model.NormalizeKey(key), it, editor, comment)
}

func (s *Store) replaceInternal(ctx context.Context, key string, it *item.Item, editor, comment string) bool {
	unlock := s.keys.lock(key)
	defer unlock()

	rec := model.NewRecord(key, it, s.backend.Now(), false)
	if err := s.backend.SaveItem(ctx, rec, editor, comment); err != nil {
		s.log.Error(ctx, "save failed", "key", key, "error", err)
		s.notifier.NotifyError("save", "could not save "+key, err)
		return false
	}

	s.mu.Lock()
	s.cache[key] = rec
	s.mu.Unlock()
	s.advanceLastSync(rec.UpdatedAt)

	s.notifier.NotifyChange("save", key, editor, comment)
	return true
}

// Remove soft-deletes the record. Returns false when the key is absent or
// the write fails.
func (s *Store) Remove(ctx context.Context, key, editor string) bool {
	key = model.NormalizeKey(key)
	unlock := s.keys.lock(key)
	defer unlock()

	s.mu.RLock()
	rec := s.cache[key]
	s.mu.RUnlock()
	if rec == nil {
		return false
	}

	ts := s.backend.Now()
	existed, err := s.backend.MarkDeleted(ctx, rec, ts, editor, commentDeleted)
	if err != nil {
		s.log.Error(ctx, "delete failed", "key", key, "error", err)
		s.notifier.NotifyError("delete", "could not delete "+key, err)
		return false
	}
	if !existed {
		// Cache had a row the backend no longer knows. Drop it.
		s.log.Warn(ctx, "cached item missing from backend", "key", key)
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	s.advanceLastSync(ts)

	s.notifier.NotifyChange("delete", key, editor, commentDeleted)
	return existed
}

// Get returns a clone of the payload for key. Absent keys fall through to
// the external resolver; resolver failures count as not found.
func (s *Store) Get(ctx context.Context, key string) *item.Item {
	key = model.NormalizeKey(key)
	s.mu.RLock()
	rec := s.cache[key]
	s.mu.RUnlock()
	if rec != nil {
		return rec.Item.Clone()
	}

	it, err := s.resolver.Resolve(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "resolver lookup failed", "key", key, "provider", s.resolver.Name(), "error", err)
		return nil
	}
	return it.Clone()
}

// Record returns a deep copy of the cached record, or nil.
func (s *Store) Record(key string) *model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[model.NormalizeKey(key)].Clone()
}

// Exists reports whether key is present in the cache.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[model.NormalizeKey(key)]
	return ok
}

// Keys returns all cached keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.cache))
	for k := range s.cache {
		out = append(out, k)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Size returns the number of cached records.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Search queries the backend directly; results reflect persisted state, not
// the cache. Failures return an empty result.
func (s *Store) Search(ctx context.Context, query string, customModelData *int, limit int) []*model.Record {
	if limit <= 0 {
		limit = s.searchLimit
	}
	records, err := s.backend.Search(ctx, query, customModelData, limit)
	if err != nil {
		s.log.Error(ctx, "search failed", "query", query, "error", err)
		return nil
	}
	return records
}

// History returns versions for key, newest first. Failures return an empty
// result.
func (s *Store) History(ctx context.Context, key string, limit int) []*model.Version {
	if limit <= 0 {
		limit = s.historyLimit
	}
	versions, err := s.backend.FetchHistory(ctx, model.NormalizeKey(key), limit)
	if err != nil {
		s.log.Error(ctx, "history failed", "key", key, "error", err)
		return nil
	}
	return versions
}

// Version returns one version of key, or an error when it does not exist.
func (s *Store) Version(ctx context.Context, key string, version int) (*model.Version, error) {
	return s.backend.FetchVersion(ctx, model.NormalizeKey(key), version)
}

// keyMutex hands out one mutex per key so mutations of the same key are
// serialized while distinct keys stay independent. Entries are never
// evicted; the map is bounded by the number of distinct keys touched.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (km *keyMutex) lock(key string) (unlock func()) {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*sync.Mutex)
	}
	l, ok := km.locks[key]
	if !ok {
		l = &sync.Mutex{}
		km.locks[key] = l
	}
	km.mu.Unlock()

	l.Lock()
	return l.Unlock
}
