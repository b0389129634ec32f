package pcache

import (
	"sync"
	"time"
)

// Store is a TTL cache of fetch results for one kind of place data. A result
// may be positive (the provider returned data) or negative (the provider
// definitively had nothing), and both kinds age out on the same schedule.
// Freshness is always computed from the entry timestamp at read time, never
// stored, so an entry simply becomes stale when its time comes. Expired
// entries remain in the map until overwritten or removed by CleanExpired.
//
// Store also tracks which keys have a fetch in flight, so that callers can
// coalesce onto a single upstream call and be woken when it completes.
//
// Safe to be used concurrently. Reads never block on fetches.
type Store[T any] struct {
	ttl     time.Duration
	lock    sync.RWMutex
	entries map[string]*entry[T]
}

// Entry is a point-in-time snapshot of one cache entry.
type Entry[T any] struct {
	// Value is the cached data. It is the zero value for negative and
	// in-flight entries.
	Value T
	// Negative reports that the provider was asked and had no data.
	Negative bool
	// FetchedAt is the time the result was recorded. It is zero while a
	// fetch is in flight.
	FetchedAt time.Time
	// Fetching reports that a fetch for this key is in flight.
	Fetching bool
}

// entry contains writable cache state for one key.
type entry[T any] struct {
	value     T
	negative  bool
	fetchedAt time.Time
	fetching  bool
	// done is closed when the in-flight fetch records its result or is
	// abandoned. It is nil unless fetching is true.
	done chan struct{}
}

// NewStore creates a Store whose entries are fresh for ttl after being
// recorded. A non-positive ttl selects DefaultTTL.
func NewStore[T any](ttl time.Duration) *Store[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[T]{
		ttl:     ttl,
		entries: make(map[string]*entry[T]),
	}
}

// Get returns a snapshot of the entry for key, if one exists.
func (s *Store[T]) Get(key string) (Entry[T], bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	ent, ok := s.entries[key]
	if !ok {
		return Entry[T]{}, false
	}
	return Entry[T]{
		Value:     ent.value,
		Negative:  ent.negative,
		FetchedAt: ent.fetchedAt,
		Fetching:  ent.fetching,
	}, true
}

// Fresh reports whether ent holds a recorded result strictly younger than
// the store TTL. An entry aged exactly TTL is stale, and an in-flight entry
// with no recorded result is never fresh.
func (s *Store[T]) Fresh(ent Entry[T]) bool {
	if ent.FetchedAt.IsZero() {
		return false
	}
	return time.Since(ent.FetchedAt) < s.ttl
}

// Put records value as the result for key and wakes any fetch waiters.
func (s *Store[T]) Put(key string, value T) {
	s.lock.Lock()
	s.record(key, value, false)
	s.lock.Unlock()
}

// PutNegative records that there is no data for key and wakes any fetch
// waiters. The negative result is served like any other until it expires,
// preventing repeat provider lookups for places known to have nothing.
func (s *Store[T]) PutNegative(key string) {
	var zero T
	s.lock.Lock()
	s.record(key, zero, true)
	s.lock.Unlock()
}

func (s *Store[T]) record(key string, value T, negative bool) {
	if prev, ok := s.entries[key]; ok && prev.fetching {
		close(prev.done)
	}
	s.entries[key] = &entry[T]{
		value:     value,
		negative:  negative,
		fetchedAt: time.Now(),
	}
}

// MarkFetching claims key for fetching. If there is no usable result and no
// fetch in flight, then the key is claimed: MarkFetching returns a
// completion channel and true, and the caller owns the fetch. If another
// fetch is already in flight, then MarkFetching returns that fetch's
// completion channel and false, allowing the caller to wait on the same
// upstream call. If a fresh result already exists, then there is nothing to
// fetch and MarkFetching returns nil and false.
//
// The completion channel is closed when a result for key is recorded, or
// when the claim is abandoned.
func (s *Store[T]) MarkFetching(key string) (<-chan struct{}, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	ent, ok := s.entries[key]
	if ok {
		if ent.fetching {
			return ent.done, false
		}
		if time.Since(ent.fetchedAt) < s.ttl {
			return nil, false
		}
	}
	done := make(chan struct{})
	s.entries[key] = &entry[T]{
		fetching: true,
		done:     done,
	}
	return done, true
}

// Abandon releases the fetch claim on key without recording a result and
// wakes any waiters. It is a no-op if no fetch is in flight for key.
func (s *Store[T]) Abandon(key string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	ent, ok := s.entries[key]
	if !ok || !ent.fetching {
		return
	}
	close(ent.done)
	delete(s.entries, key)
}

// Invalidate removes the recorded result for key. An in-flight fetch is not
// canceled; its result may repopulate the entry when it completes.
func (s *Store[T]) Invalidate(key string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	ent, ok := s.entries[key]
	if !ok || ent.fetching {
		return
	}
	delete(s.entries, key)
}

// InvalidateAll removes all recorded results, leaving in-flight fetches to
// complete and repopulate their entries.
func (s *Store[T]) InvalidateAll() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for key, ent := range s.entries {
		if ent.fetching {
			continue
		}
		delete(s.entries, key)
	}
}

// CleanExpired removes entries whose results have outlived the TTL and
// returns the number removed. Fresh entries and in-flight fetches are left
// alone. Since freshness is checked on every read, removal only reclaims
// memory and is never needed for correctness.
func (s *Store[T]) CleanExpired() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	var n int
	for key, ent := range s.entries {
		if ent.fetching {
			continue
		}
		if time.Since(ent.fetchedAt) >= s.ttl {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of entries, including in-flight and expired ones.
func (s *Store[T]) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.entries)
}

// TTL returns the entry time-to-live.
func (s *Store[T]) TTL() time.Duration {
	return s.ttl
}
