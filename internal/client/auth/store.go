package auth

import "sync"

// Store is the process-wide cache of the last published Snapshot. It is
// created once at startup, injected into the controller and every consumer,
// and never torn down during the process lifetime.
//
// Publication is ordered by sequence tokens, not by completion time. A
// writer takes a token with Begin when its fetch sequence starts and
// publishes with PublishAs; a publish whose token is older than the newest
// token already published is discarded. This turns last-completed-wins into
// last-started-wins, which matches user intent when a sign-out overtakes a
// slow sign-in fetch.
type Store struct {
	mu        sync.Mutex
	snap      Snapshot
	gen       uint64
	nextToken uint64
	published uint64
}

// NewStore returns an empty store: no user, not initialized.
func NewStore() *Store {
	return &Store{}
}

// Read returns the current snapshot. The returned value is a copy; readers
// never observe a partially written state.
func (s *Store) Read() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Generation counts successful publishes. Consumers can poll it to detect
// changes cheaply.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Begin allocates the next sequence token. Call it synchronously when a
// fetch sequence starts, before any suspension point, so token order
// matches start order.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	return s.nextToken
}

// PublishAs replaces the snapshot on behalf of the sequence holding token.
// It reports false, leaving the store untouched, when a newer sequence has
// already published. Publishing repeatedly under the same token is allowed
// so a sequence can emit an intermediate snapshot before its final one.
//
// Once any published snapshot carried Initialized=true, the flag is forced
// on every later snapshot: consumers must never be thrown back into
// indefinite loading.
func (s *Store) PublishAs(token uint64, snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token < s.published {
		return false
	}
	if s.snap.Initialized {
		snap.Initialized = true
	}
	s.snap = snap
	s.published = token
	s.gen++
	return true
}

// Reset returns the store to its zero state. Tests only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{}
	s.gen = 0
	s.nextToken = 0
	s.published = 0
}
