package handlers

import (
	"sync"
	"time"
)

// TTLStore is a thread-safe in-memory map whose entries expire once they
// have not been touched for ttl.
type TTLStore[V any] struct {
	mu       sync.Mutex
	entries  map[string]*V
	ttl      time.Duration
	lastSeen func(*V) time.Time
}

// NewTTLStore creates a store and starts a goroutine purging expired entries
// every cleanupInterval. lastSeen extracts the time an entry was last touched.
func NewTTLStore[V any](ttl, cleanupInterval time.Duration, lastSeen func(*V) time.Time) *TTLStore[V] {
	s := &TTLStore[V]{
		entries:  make(map[string]*V),
		ttl:      ttl,
		lastSeen: lastSeen,
	}
	go s.cleanup(cleanupInterval)
	return s
}

// Update runs fn on the entry for key while holding the lock. fn receives
// nil when there is no live entry; returning nil removes the key.
func (s *TTLStore[V]) Update(key string, fn func(*V) *V) *V {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[key]
	if ok && s.expired(current, time.Now()) {
		current = nil
	}
	next := fn(current)
	if next == nil {
		delete(s.entries, key)
	} else {
		s.entries[key] = next
	}
	return next
}

// Get returns a copy of the live entry for key.
func (s *TTLStore[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	v, ok := s.entries[key]
	if !ok || s.expired(v, time.Now()) {
		return zero, false
	}
	return *v, true
}

// Delete removes an entry by key.
func (s *TTLStore[V]) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len returns the number of entries, expired or not.
func (s *TTLStore[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *TTLStore[V]) expired(v *V, now time.Time) bool {
	return now.Sub(s.lastSeen(v)) > s.ttl
}

func (s *TTLStore[V]) purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.entries {
		if s.expired(v, now) {
			delete(s.entries, k)
		}
	}
}

func (s *TTLStore[V]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		s.purge()
	}
}
