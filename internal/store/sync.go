package store

import (
	"context"
	"time"
)

// Sync intervals below this floor hammer the backend for no freshness gain.
const minSyncInterval = time.Second

// LastSync returns the newest record timestamp the cache has observed.
func (s *Store) LastSync() int64 {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.lastSync
}

func (s *Store) advanceLastSync(ts int64) {
	s.syncMu.Lock()
	if ts > s.lastSync {
		s.lastSync = ts
	}
	s.syncMu.Unlock()
}

// Sync merges backend changes newer than the last observed timestamp into
// the cache: updates overwrite, deletions evict. The cursor only advances on
// success, so a failed sync is retried in full on the next tick.
func (s *Store) Sync(ctx context.Context) error {
	since := s.LastSync()
	changes, err := s.backend.FetchChanges(ctx, since)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	var newest int64
	s.mu.Lock()
	for _, rec := range changes {
		if rec.Deleted {
			delete(s.cache, rec.Key)
		} else {
			s.cache[rec.Key] = rec
		}
		if rec.UpdatedAt > newest {
			newest = rec.UpdatedAt
		}
	}
	s.mu.Unlock()
	s.advanceLastSync(newest)

	s.log.Debug(ctx, "sync merged changes", "count", len(changes), "since", since)
	return nil
}

// StartSync launches the periodic refresh goroutine. Failures are logged
// and retried on the next tick; they never stop the loop.
func (s *Store) StartSync(ctx context.Context, interval time.Duration) {
	if interval < minSyncInterval {
		interval = minSyncInterval
	}
	s.syncMu.Lock()
	s.syncRunning = true
	s.syncMu.Unlock()
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Sync(ctx); err != nil {
					s.log.Error(ctx, "sync failed", "error", err)
					s.notifier.NotifyError("sync", "periodic refresh failed", err)
				}
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops the sync loop. It does not close the backend or notifier;
// their lifecycles belong to the caller that opened them.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.syncMu.Lock()
	running := s.syncRunning
	s.syncMu.Unlock()
	if !running {
		return
	}
	select {
	case <-s.done:
	case <-time.After(time.Second):
	}
}
