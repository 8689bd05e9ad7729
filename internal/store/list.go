package store

import (
	"context"
	"time"
)

// list is a sequence of byte values stored under a single key. Push/pop at
// either end are O(1) amortized; range reads are O(N). The list itself is
// not thread-safe; the Store's mutex guards it.
type list struct {
	items [][]byte
}

func (l *list) len() int { return len(l.items) }

// lpush prepends values one at a time, so lpush(a, b, c) leaves c at the head.
func (l *list) lpush(values ...[]byte) int {
	grown := make([][]byte, len(values)+len(l.items))
	for i, v := range values {
		grown[len(values)-1-i] = append([]byte(nil), v...)
	}
	copy(grown[len(values):], l.items)
	l.items = grown
	return len(l.items)
}

func (l *list) rpush(values ...[]byte) int {
	for _, v := range values {
		l.items = append(l.items, append([]byte(nil), v...))
	}
	return len(l.items)
}

func (l *list) lpop() ([]byte, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	v := l.items[0]
	l.items = l.items[1:]
	return v, true
}

func (l *list) rpop() ([]byte, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	v := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return v, true
}

// lrange returns the elements between start and stop inclusive, with
// negative indexes counting from the tail.
func (l *list) lrange(start, stop int) [][]byte {
	n := len(l.items)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return [][]byte{}
	}
	out := make([][]byte, 0, stop-start+1)
	for _, v := range l.items[start : stop+1] {
		out = append(out, append([]byte(nil), v...))
	}
	return out
}

// listAt returns the live list at key, or nil. ErrWrongType when the key
// holds another kind. Caller holds the lock; expired keys read as absent.
func (s *Store) listAt(key string, now time.Time) (*list, error) {
	if s.expiredLocked(key, now) {
		return nil, nil
	}
	if l, ok := s.lists[key]; ok && l.len() > 0 {
		return l, nil
	}
	if s.kindLocked(key, now) != KindNone {
		return nil, ErrWrongType
	}
	return nil, nil
}

// LPush prepends values to the list at key, creating it if needed.
// Returns the new length.
func (s *Store) LPush(key string, values ...[]byte) (int, error) {
	return s.push(key, (*list).lpush, values)
}

// RPush appends values to the list at key, creating it if needed.
// Returns the new length.
func (s *Store) RPush(key string, values ...[]byte) (int, error) {
	return s.push(key, (*list).rpush, values)
}

func (s *Store) push(key string, op func(*list, ...[]byte) int, values [][]byte) (int, error) {
	s.mu.Lock()

	now := time.Now()
	if s.expiredLocked(key, now) {
		s.removeLocked(key)
	}
	l, err := s.listAt(key, now)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if l == nil {
		l = &list{}
		s.lists[key] = l
	}
	n := op(l, values...)
	s.mu.Unlock()

	// Wake blocked BLPOP waiters after the lock is released.
	s.notifier.notify(key)
	return n, nil
}

// LPop removes and returns up to count elements from the head of the list at
// key. The slice is nil when the key is absent.
func (s *Store) LPop(key string, count int) ([][]byte, error) {
	return s.pop(key, (*list).lpop, count)
}

// RPop removes and returns up to count elements from the tail.
func (s *Store) RPop(key string, count int) ([][]byte, error) {
	return s.pop(key, (*list).rpop, count)
}

func (s *Store) pop(key string, op func(*list) ([]byte, bool), count int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.expiredLocked(key, now) {
		s.removeLocked(key)
	}
	l, err := s.listAt(key, now)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, nil
	}
	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		v, ok := op(l)
		if !ok {
			break
		}
		out = append(out, v)
	}
	if l.len() == 0 {
		// Draining the last element deletes the key, TTL included.
		s.removeLocked(key)
	}
	return out, nil
}

// LLen returns the length of the list at key, zero if absent.
func (s *Store) LLen(key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.listAt(key, time.Now())
	if err != nil || l == nil {
		return 0, err
	}
	return l.len(), nil
}

// LRange returns the elements of the list at key between start and stop
// inclusive, supporting negative indexes.
func (s *Store) LRange(key string, start, stop int) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.listAt(key, time.Now())
	if err != nil {
		return nil, err
	}
	if l == nil {
		return [][]byte{}, nil
	}
	return l.lrange(start, stop), nil
}

// BLPop pops the head of the first non-empty list among keys, blocking until
// an element arrives, the timeout elapses (zero means wait forever), ctx is
// cancelled, or the store closes. The returned bool is false on timeout or
// shutdown. It blocks only on the store's notifier, never on network I/O.
func (s *Store) BLPop(ctx context.Context, keys []string, timeout time.Duration) (string, []byte, bool, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	waiters := make([]chan struct{}, len(keys))
	for i, key := range keys {
		waiters[i] = s.notifier.subscribe(key)
		defer s.notifier.unsubscribe(key, waiters[i])
	}

	wake := make(chan struct{}, 1)
	for _, ch := range waiters {
		go forward(ch, wake)
	}

	for {
		for _, key := range keys {
			popped, err := s.LPop(key, 1)
			if err != nil {
				return "", nil, false, err
			}
			if len(popped) > 0 {
				return key, popped[0], true, nil
			}
		}

		select {
		case <-wake:
		case <-deadline:
			return "", nil, false, nil
		case <-ctx.Done():
			return "", nil, false, nil
		case <-s.stopGC:
			return "", nil, false, nil
		}
	}
}

// forward relays notifications from a per-key channel onto the waiter's
// single wake channel, dropping extras.
func forward(from <-chan struct{}, to chan<- struct{}) {
	for range from {
		select {
		case to <- struct{}{}:
		default:
		}
	}
}
