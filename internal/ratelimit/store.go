package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore is the shared fixed-window counter behind admission.
// Incr must be atomic: it increments the counter for key, starting a
// fresh window of the given width if none is active, and returns the
// new count together with the remaining window time. Two concurrent
// calls near the ceiling must never both observe the same count.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is the single-instance counter store: a mutex-guarded map
// with lazy expiry. Stale windows are dropped on access and by Cleanup.
type MemoryStore struct {
	mutex   sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.entries[key]
	if !ok || !entry.expiresAt.After(now) {
		entry = &memoryEntry{expiresAt: now.Add(window)}
		s.entries[key] = entry
	}

	entry.count++
	return entry.count, entry.expiresAt.Sub(now), nil
}

// Cleanup drops expired windows. Called periodically by the janitor.
func (s *MemoryStore) Cleanup() {
	now := time.Now()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, key)
		}
	}
}

// StartJanitor purges expired windows on an interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
