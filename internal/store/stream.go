package store

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrStreamIDTooSmall rejects XADD IDs at or below the stream's top item.
	ErrStreamIDTooSmall = errors.New("ERR The ID specified in XADD is equal or smaller than the target stream top item")
	// ErrStreamIDZero rejects the reserved 0-0 ID.
	ErrStreamIDZero = errors.New("ERR The ID specified in XADD must be greater than 0-0")
	// ErrStreamIDFormat rejects IDs that are not <ms>-<seq>, <ms>-*, or *.
	ErrStreamIDFormat = errors.New("ERR Invalid stream ID specified as stream command argument")
)

// streamID is a stream entry ID: a millisecond timestamp plus a sequence
// number disambiguating entries within the same millisecond.
type streamID struct {
	ms  uint64
	seq uint64
}

func (id streamID) String() string {
	return fmt.Sprintf("%d-%d", id.ms, id.seq)
}

func (id streamID) less(other streamID) bool {
	return id.ms < other.ms || (id.ms == other.ms && id.seq < other.seq)
}

// StreamEntry is one appended stream record: its ID plus alternating
// field/value strings.
type StreamEntry struct {
	ID     string
	Fields []string
}

// Stream is an append-only sequence of entries with strictly increasing IDs.
// Not thread-safe; the Store's mutex guards it.
type Stream struct {
	entries []StreamEntry
	last    streamID
}

// add appends an entry, resolving * and <ms>-* forms against the current top
// item, and enforces strictly increasing IDs.
func (st *Stream) add(rawID string, fields []string) (string, error) {
	id, err := st.resolveID(rawID)
	if err != nil {
		return "", err
	}
	if id.ms == 0 && id.seq == 0 {
		return "", ErrStreamIDZero
	}
	if !st.last.less(id) {
		return "", ErrStreamIDTooSmall
	}
	st.last = id
	st.entries = append(st.entries, StreamEntry{
		ID:     id.String(),
		Fields: append([]string(nil), fields...),
	})
	return id.String(), nil
}

func (st *Stream) resolveID(rawID string) (streamID, error) {
	if rawID == "*" {
		now := uint64(time.Now().UnixMilli())
		if now > st.last.ms {
			return streamID{ms: now}, nil
		}
		return streamID{ms: st.last.ms, seq: st.last.seq + 1}, nil
	}

	ms, seqPart, ok := strings.Cut(rawID, "-")
	if !ok {
		// A bare number means sequence zero.
		seqPart = "0"
	}
	msNum, err := strconv.ParseUint(ms, 10, 64)
	if err != nil {
		return streamID{}, ErrStreamIDFormat
	}
	if seqPart == "*" {
		if msNum == st.last.ms {
			return streamID{ms: msNum, seq: st.last.seq + 1}, nil
		}
		return streamID{ms: msNum}, nil
	}
	seqNum, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return streamID{}, ErrStreamIDFormat
	}
	return streamID{ms: msNum, seq: seqNum}, nil
}

// parseRangeID parses an XRANGE bound. "-" is the minimum, "+" the maximum;
// an ID without a sequence defaults to 0 at the start bound and the maximum
// at the end bound.
func parseRangeID(raw string, end bool) (streamID, error) {
	switch raw {
	case "-":
		return streamID{}, nil
	case "+":
		return streamID{ms: math.MaxUint64, seq: math.MaxUint64}, nil
	}
	ms, seqPart, ok := strings.Cut(raw, "-")
	if !ok {
		msNum, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return streamID{}, ErrStreamIDFormat
		}
		if end {
			return streamID{ms: msNum, seq: math.MaxUint64}, nil
		}
		return streamID{ms: msNum}, nil
	}
	msNum, err := strconv.ParseUint(ms, 10, 64)
	if err != nil {
		return streamID{}, ErrStreamIDFormat
	}
	seqNum, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return streamID{}, ErrStreamIDFormat
	}
	return streamID{ms: msNum, seq: seqNum}, nil
}

// streamAt returns the stream at key, or nil. ErrWrongType when the key
// holds another kind. Caller holds the lock; expired keys read as absent.
func (s *Store) streamAt(key string, now time.Time) (*Stream, error) {
	if s.expiredLocked(key, now) {
		return nil, nil
	}
	if st, ok := s.streams[key]; ok {
		return st, nil
	}
	if s.kindLocked(key, now) != KindNone {
		return nil, ErrWrongType
	}
	return nil, nil
}

// XAdd appends an entry to the stream at key, creating the stream if needed,
// and returns the entry's resolved ID.
func (s *Store) XAdd(key, rawID string, fields []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.expiredLocked(key, now) {
		s.removeLocked(key)
	}
	st, err := s.streamAt(key, now)
	if err != nil {
		return "", err
	}
	if st == nil {
		st = &Stream{}
		s.streams[key] = st
	}
	return st.add(rawID, fields)
}

// XLen returns the number of entries in the stream at key, zero if absent.
func (s *Store) XLen(key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.streamAt(key, time.Now())
	if err != nil || st == nil {
		return 0, err
	}
	return int64(len(st.entries)), nil
}

// XRange returns the entries of the stream at key with IDs between start and
// end inclusive. "-" and "+" select the stream's extremes.
func (s *Store) XRange(key, start, end string) ([]StreamEntry, error) {
	lo, err := parseRangeID(start, false)
	if err != nil {
		return nil, err
	}
	hi, err := parseRangeID(end, true)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.streamAt(key, time.Now())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return []StreamEntry{}, nil
	}

	out := make([]StreamEntry, 0)
	for _, e := range st.entries {
		id, err := parseRangeID(e.ID, false)
		if err != nil {
			continue
		}
		if id.less(lo) || hi.less(id) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
