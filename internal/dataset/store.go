package dataset

import (
	"sync"
	"time"
)

// Store holds the current snapshot behind a read-write lock: one writer
// replaces the snapshot wholesale, any number of readers get a consistent
// pointer. Last write wins; there is no merge path.
type Store struct {
	mu       sync.RWMutex
	current  *Snapshot
	replaced time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a new snapshot atomically and stamps the replacement
// time on it when the parser left LoadedAt unset.
func (s *Store) Replace(snap *Snapshot) {
	now := time.Now().UTC()
	if snap != nil && snap.LoadedAt.IsZero() {
		snap.LoadedAt = now
	}
	s.mu.Lock()
	s.current = snap
	s.replaced = now
	s.mu.Unlock()
}

// Snapshot returns the current snapshot, false when none has been loaded.
// The returned snapshot is immutable by convention: readers must not
// modify it.
func (s *Store) Snapshot() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

// LastUpdated returns the time of the most recent replacement, zero when
// no snapshot has ever been loaded.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replaced
}
