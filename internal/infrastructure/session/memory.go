package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/pelles/backend/internal/domain"
)

// entry wraps a stored comparison with its own lock so overrides on the
// same comparison are mutually exclusive while different comparisons
// proceed independently.
type entry struct {
	mu           sync.Mutex
	result       *domain.ComparisonResult
	lastAccessed time.Time
}

// MemoryStore holds completed comparisons by id. Memory growth is bounded
// by evicting comparisons not accessed within the TTL; touching a
// comparison (Get or Update) resets its clock.
type MemoryStore struct {
	data  map[string]*entry
	mutex sync.Mutex
	ttl   time.Duration
}

// NewMemoryStore creates a session store with the given
// time-since-last-access TTL and starts the eviction sweep.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	store := &MemoryStore{
		data: make(map[string]*entry),
		ttl:  ttl,
	}

	go store.sweep()

	return store
}

// Put stores a completed comparison.
func (s *MemoryStore) Put(result *domain.ComparisonResult) error {
	if result == nil || result.ComparisonID == "" {
		return fmt.Errorf("%w: comparison without id", domain.ErrInvalidRequest)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data[result.ComparisonID] = &entry{
		result:       result,
		lastAccessed: time.Now(),
	}
	return nil
}

// Get returns the stored comparison for id.
func (s *MemoryStore) Get(id string) (*domain.ComparisonResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, exists := s.data[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrComparisonNotFound, id)
	}
	e.lastAccessed = time.Now()
	return e.result, nil
}

// Update runs fn against the stored comparison under its per-id lock and
// returns the (possibly mutated) comparison. If fn returns an error it is
// passed through and the comparison stays as fn left it — callers validate
// before mutating.
func (s *MemoryStore) Update(id string, fn func(*domain.ComparisonResult) error) (*domain.ComparisonResult, error) {
	s.mutex.Lock()
	e, exists := s.data[id]
	if exists {
		e.lastAccessed = time.Now()
	}
	s.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrComparisonNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.result); err != nil {
		return nil, err
	}
	return e.result, nil
}

// Size returns the current number of stored comparisons.
func (s *MemoryStore) Size() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.data)
}

// sweep periodically evicts comparisons idle longer than the TTL.
func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.evictIdle(time.Now())
	}
}

// evictIdle removes entries whose last access is older than the TTL.
func (s *MemoryStore) evictIdle(now time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	for id, e := range s.data {
		if now.Sub(e.lastAccessed) > s.ttl {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}
