package fragment

import (
	"sync"
)

// Store is an arrival-ordered, append-only collection of fragments keyed by
// sequence id. It never reorders on sequence id: the server is expected (not
// guaranteed) to emit in order, and arrival order is what playback and export
// iterate.
//
// The store is mutated only by the stream controller (Append, Reset) and
// read by everything else.
type Store struct {
	mu    sync.RWMutex
	frags []*Fragment
	byID  map[int]*Fragment
}

// NewStore creates an empty fragment store
func NewStore() *Store {
	return &Store{
		byID: make(map[int]*Fragment),
	}
}

// Append inserts a fragment at the end of the arrival order. A fragment
// whose sequence id is already present is rejected and the original kept, so
// already-played audio is never replayed; the return value tells the caller
// whether the fragment was accepted.
func (s *Store) Append(f *Fragment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[f.SequenceID]; exists {
		return false
	}

	s.frags = append(s.frags, f)
	s.byID[f.SequenceID] = f
	return true
}

// Get looks up a fragment by sequence id
func (s *Store) Get(sequenceID int) (*Fragment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.byID[sequenceID]
	return f, ok
}

// All returns the fragments in arrival order. The returned slice is a copy;
// the fragments themselves are shared.
func (s *Store) All() []*Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Fragment, len(s.frags))
	copy(out, s.frags)
	return out
}

// Len returns the number of stored fragments
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frags)
}

// First returns the earliest-arrived fragment
func (s *Store) First() (*Fragment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.frags) == 0 {
		return nil, false
	}
	return s.frags[0], true
}

// Reset releases every playable handle and clears the store. Called when a
// new stream supersedes the old one.
func (s *Store) Reset() {
	s.mu.Lock()
	frags := s.frags
	s.frags = nil
	s.byID = make(map[int]*Fragment)
	s.mu.Unlock()

	for _, f := range frags {
		f.Release()
	}
}
