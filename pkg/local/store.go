// Package local implements the bounded in-process fallback store:
// an LRU-ordered string map with optional per-entry expiry.
package local

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity bounds the store when no capacity is configured.
const DefaultCapacity = 2000

// entry is the value held in the recency list elements.
// The key is duplicated here because eviction starts from list nodes.
type entry struct {
	key       string
	value     string
	expiresAt time.Time
	hasExpiry bool
}

func (e *entry) expired(now time.Time) bool {
	return e.hasExpiry && !e.expiresAt.After(now)
}

// Store is a concurrency-safe bounded LRU store with per-entry TTL.
//
// Recency is tracked with a doubly-linked list: front is the most
// recently used entry, back is the eviction candidate. Expired entries
// are removed lazily on access and in bulk by Sweep.
type Store struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

// NewStore creates a store bounded to capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the value for key and promotes it to most recently used.
// An expired entry is removed on access and reported as absent.
func (s *Store) Get(key string) (string, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return "", false
	}

	e := el.Value.(*entry)
	if e.expired(now) {
		s.removeLocked(el)
		localExpired.WithLabelValues("lazy").Inc()
		return "", false
	}

	s.order.MoveToFront(el)
	return e.value, true
}

// Set upserts key with value. A positive ttl sets an absolute expiry,
// any other ttl means the entry never expires. The written key becomes
// most recently used; if the store now exceeds its capacity the single
// least recently used entry is evicted.
func (s *Store) Set(key, value string, ttl time.Duration) {
	now := time.Now()

	var expiresAt time.Time
	hasExpiry := ttl > 0
	if hasExpiry {
		expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		e.hasExpiry = hasExpiry
		s.order.MoveToFront(el)
		return
	}

	el := s.order.PushFront(&entry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
		hasExpiry: hasExpiry,
	})
	s.items[key] = el
	localEntries.Set(float64(len(s.items)))

	// Set adds at most one key, so one eviction restores the bound.
	if len(s.items) > s.capacity {
		if back := s.order.Back(); back != nil {
			s.removeLocked(back)
			localEvictions.Inc()
		}
	}
}

// Delete removes key if present. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		s.removeLocked(el)
	}
}

// Sweep removes all expired entries in one pass and returns how many
// were removed. Sweeping does not count as access: surviving entries
// keep their recency order.
func (s *Store) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*entry).expired(now) {
			s.removeLocked(el)
			removed++
		}
		el = next
	}

	if removed > 0 {
		localExpired.WithLabelValues("sweep").Add(float64(removed))
	}
	return removed
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*list.Element)
	s.order.Init()
	localEntries.Set(0)
}

// Len returns the number of stored entries, including expired entries
// that have not yet been reclaimed.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Capacity returns the configured entry bound.
func (s *Store) Capacity() int {
	return s.capacity
}

// Keys returns all keys in most- to least-recently-used order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

func (s *Store) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	s.order.Remove(el)
	delete(s.items, e.key)
	localEntries.Set(float64(len(s.items)))
}
