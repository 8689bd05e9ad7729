// Package store provides the in-memory keyspace shared by all connections.
// Keys map to exactly one of three kinds of value (string, list, stream);
// every operation is atomic under the store's single mutex, so concurrent
// commands serialize into some definite order.
package store

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrWrongType is returned when a key holds a value of a kind the
	// operation cannot work on. The message is the canonical wire reply.
	ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	// ErrNotInteger is returned by arithmetic on non-numeric string values.
	ErrNotInteger = errors.New("ERR value is not an integer or out of range")
)

// Value kind names as reported by TYPE.
const (
	KindNone   = "none"
	KindString = "string"
	KindList   = "list"
	KindStream = "stream"
)

// entry is a string value. Expiration lives in the store's expires map so
// a TTL can sit on a key of any kind.
type entry struct {
	value []byte
}

// Store is the shared mutable keyspace. It is safe for concurrent use; the
// Server owns its lifetime and threads it through every connection handler.
type Store struct {
	mu       sync.RWMutex
	strings  map[string]*entry
	lists    map[string]*list
	streams  map[string]*Stream
	expires  map[string]time.Time
	notifier *keyNotifier
	stopGC   chan struct{}
}

// New creates an empty Store and starts the background expiration sweeper.
func New() *Store {
	s := &Store{
		strings:  make(map[string]*entry),
		lists:    make(map[string]*list),
		streams:  make(map[string]*Stream),
		expires:  make(map[string]time.Time),
		notifier: newKeyNotifier(),
		stopGC:   make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

// Close stops the background sweeper and wakes any blocked waiters.
func (s *Store) Close() {
	close(s.stopGC)
}

// expiredLocked reports whether key carries a TTL that has lapsed.
// Caller holds the lock.
func (s *Store) expiredLocked(key string, now time.Time) bool {
	exp, ok := s.expires[key]
	return ok && now.After(exp)
}

// kindLocked reports the kind of value held at key. Caller holds the lock.
func (s *Store) kindLocked(key string, now time.Time) string {
	if s.expiredLocked(key, now) {
		return KindNone
	}
	if _, ok := s.strings[key]; ok {
		return KindString
	}
	if l, ok := s.lists[key]; ok && l.len() > 0 {
		return KindList
	}
	if _, ok := s.streams[key]; ok {
		return KindStream
	}
	return KindNone
}

// removeLocked drops key from every kind map. Caller holds the lock.
func (s *Store) removeLocked(key string) bool {
	_, hadStr := s.strings[key]
	_, hadList := s.lists[key]
	_, hadStream := s.streams[key]
	delete(s.strings, key)
	delete(s.lists, key)
	delete(s.streams, key)
	delete(s.expires, key)
	return hadStr || hadList || hadStream
}

// Type returns the kind of value stored at key, or "none".
func (s *Store) Type(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kindLocked(key, time.Now())
}

// Set stores a string value at key, overwriting any existing value of any
// kind. A non-zero ttl arms expiration.
func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value, ttl)
}

// SetNX stores value at key only if the key does not exist. Returns true if
// the value was written.
func (s *Store) SetNX(key string, value []byte, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kindLocked(key, time.Now()) != KindNone {
		return false
	}
	s.setLocked(key, value, ttl)
	return true
}

// SetXX stores value at key only if the key already exists. Returns true if
// the value was written.
func (s *Store) SetXX(key string, value []byte, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kindLocked(key, time.Now()) == KindNone {
		return false
	}
	s.setLocked(key, value, ttl)
	return true
}

func (s *Store) setLocked(key string, value []byte, ttl time.Duration) {
	s.removeLocked(key)
	s.strings[key] = &entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		s.expires[key] = time.Now().Add(ttl)
	}
}

// Get retrieves the string value at key. The second result is false when the
// key is absent or expired; ErrWrongType is returned for non-string keys.
func (s *Store) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	e, ok := s.strings[key]
	if !ok || s.expiredLocked(key, now) {
		if s.kindLocked(key, now) != KindNone {
			return nil, false, ErrWrongType
		}
		return nil, false, nil
	}
	// Copy so callers never alias the table's backing bytes.
	return append([]byte(nil), e.value...), true, nil
}

// Delete removes key regardless of kind. Returns true iff a key was removed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiredLocked(key, time.Now()) {
		s.removeLocked(key)
		return false
	}
	return s.removeLocked(key)
}

// Exists reports whether key holds a live value of any kind.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kindLocked(key, time.Now()) != KindNone
}

// Keys returns all live keys, unordered.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	keys := make([]string, 0, len(s.strings)+len(s.lists)+len(s.streams))
	for k := range s.strings {
		if !s.expiredLocked(k, now) {
			keys = append(keys, k)
		}
	}
	for k, l := range s.lists {
		if l.len() > 0 && !s.expiredLocked(k, now) {
			keys = append(keys, k)
		}
	}
	for k := range s.streams {
		if !s.expiredLocked(k, now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	n := 0
	for k := range s.strings {
		if !s.expiredLocked(k, now) {
			n++
		}
	}
	for k, l := range s.lists {
		if l.len() > 0 && !s.expiredLocked(k, now) {
			n++
		}
	}
	for k := range s.streams {
		if !s.expiredLocked(k, now) {
			n++
		}
	}
	return n
}

// FlushAll removes every key.
func (s *Store) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings = make(map[string]*entry)
	s.lists = make(map[string]*list)
	s.streams = make(map[string]*Stream)
	s.expires = make(map[string]time.Time)
}

// Expire arms a TTL on an existing key of any kind.
func (s *Store) Expire(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.kindLocked(key, now) == KindNone {
		return false
	}
	s.expires[key] = now.Add(ttl)
	return true
}

// TTL returns the remaining lifetime of key: -2 when the key is absent,
// -1 when it has no expiration.
func (s *Store) TTL(key string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	if s.kindLocked(key, now) == KindNone {
		return -2
	}
	exp, ok := s.expires[key]
	if !ok {
		return -1
	}
	remaining := exp.Sub(now)
	if remaining < 0 {
		return -2
	}
	return remaining
}

// Persist removes the TTL from key. Returns true if a TTL was removed.
func (s *Store) Persist(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.kindLocked(key, now) == KindNone {
		return false
	}
	if _, ok := s.expires[key]; !ok {
		return false
	}
	delete(s.expires, key)
	return true
}

// IncrBy adjusts the integer value at key by delta, creating the key at zero
// if absent. Non-integer values yield ErrNotInteger.
func (s *Store) IncrBy(key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.expiredLocked(key, now) {
		s.removeLocked(key)
	}
	e, ok := s.strings[key]
	if !ok {
		if s.kindLocked(key, now) != KindNone {
			return 0, ErrWrongType
		}
		e = &entry{}
		s.strings[key] = e
	}

	cur := int64(0)
	if len(e.value) > 0 {
		var err error
		cur, err = strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
	}
	cur += delta
	e.value = strconv.AppendInt(e.value[:0], cur, 10)
	return cur, nil
}

// Append appends value to the string at key, creating it if absent.
// Returns the new length.
func (s *Store) Append(key string, value []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.expiredLocked(key, now) {
		s.removeLocked(key)
	}
	e, ok := s.strings[key]
	if !ok {
		if s.kindLocked(key, now) != KindNone {
			return 0, ErrWrongType
		}
		e = &entry{}
		s.strings[key] = e
	}
	e.value = append(e.value, value...)
	return len(e.value), nil
}

// StrLen returns the length of the string at key, zero if absent.
func (s *Store) StrLen(key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	e, ok := s.strings[key]
	if !ok || s.expiredLocked(key, now) {
		if s.kindLocked(key, now) != KindNone {
			return 0, ErrWrongType
		}
		return 0, nil
	}
	return len(e.value), nil
}

// gcLoop periodically removes expired keys.
func (s *Store) gcLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

// removeExpired uses sampling to probabilistically reclaim expired keys:
// inspect up to 20 keys, and if more than a quarter of the sample was
// expired, run another round (bounded). This keeps the write lock short
// instead of scanning the whole table.
func (s *Store) removeExpired() {
	const (
		sampleSize   = 20
		maxRounds    = 4
		expiredRatio = 0.25
	)

	for round := 0; round < maxRounds; round++ {
		s.mu.Lock()

		now := time.Now()
		sampled, expired := 0, 0
		// Map iteration order is pseudo-random, which is all the
		// sampling needs.
		for key, exp := range s.expires {
			if sampled >= sampleSize {
				break
			}
			sampled++
			if now.After(exp) {
				s.removeLocked(key)
				expired++
			}
		}

		s.mu.Unlock()

		if sampled == 0 || float64(expired)/float64(sampled) < expiredRatio {
			return
		}
	}
}
