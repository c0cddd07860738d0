package session

import "sync"

// State holds the current session id. It is safe for concurrent use.
// The lock is only held for the read or write itself.
type State struct {
	mu sync.RWMutex
	id string
	ok bool
}

// Get returns the current session id and whether one has been set.
func (s *State) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.id, s.ok
}

// Set replaces the current session id.
func (s *State) Set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = id
	s.ok = true
}
