// Package history keeps the wave feed: the bulk-loaded contract history plus
// the waves accepted live since the session baseline.
package history

import (
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WaveRecord is one message on the board.
type WaveRecord struct {
	Sender    common.Address
	Timestamp time.Time
	Message   string
}

// Store is the only writer of the wave collection. Reads are most-recent-first.
type Store struct {
	mu sync.RWMutex

	// history is most-recent-first, reversed once at load
	history []WaveRecord
	// live is in arrival order; the newest record is last
	live []WaveRecord

	base   uint64
	loaded bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// LoadAll replaces the bulk history with records given oldest-first, as the
// contract returns them. Live records appended before the load finished stay in
// front: the bulk query is pinned at the baseline so they are strictly newer.
// The provisional total is len(records) until SetTotal supplies the
// authoritative count.
func (s *Store) LoadAll(records []WaveRecord) {
	h := slices.Clone(records)
	slices.Reverse(h)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = h
	s.base = uint64(len(h))
	s.loaded = true
}

// SetTotal records the authoritative total as of the baseline.
func (s *Store) SetTotal(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = n
}

// Append adds a live record at the front of the feed and counts it.
func (s *Store) Append(r WaveRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = append(s.live, r)
}

// Total is the authoritative count plus every live record accepted since.
func (s *Store) Total() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base + uint64(len(s.live))
}

// Loaded reports whether a bulk load has completed since the last Reset.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Len is the number of records in the feed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history) + len(s.live)
}

// Records is a lazy view of the feed, most recent first. Each iteration sees
// the collection as it was when that iteration started.
func (s *Store) Records() iter.Seq[WaveRecord] {
	return func(yield func(WaveRecord) bool) {
		s.mu.RLock()
		live, h := s.live, s.history
		s.mu.RUnlock()

		for i := len(live) - 1; i >= 0; i-- {
			if !yield(live[i]) {
				return
			}
		}
		for _, r := range h {
			if !yield(r) {
				return
			}
		}
	}
}

// Snapshot copies the feed, most recent first.
func (s *Store) Snapshot() []WaveRecord {
	return slices.Collect(s.Records())
}

// Reset empties the store for a new session.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.live = nil
	s.base = 0
	s.loaded = false
}
