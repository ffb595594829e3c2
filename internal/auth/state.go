package auth

import (
	"sync"
	"time"
)

// pendingLogin is what start remembers about a login until the callback.
type pendingLogin struct {
	verifier string
	expires  time.Time
}

// stateStore holds in-flight OAuth states in memory. A state is single use.
type stateStore struct {
	mu    sync.Mutex
	items map[string]pendingLogin
	now   func() time.Time
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]pendingLogin), now: time.Now}
}

func (s *stateStore) put(state, verifier string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.items {
		if now.After(v.expires) {
			delete(s.items, k)
		}
	}
	s.items[state] = pendingLogin{verifier: verifier, expires: now.Add(ttl)}
}

// consume returns the PKCE verifier of a live state and forgets it.
func (s *stateStore) consume(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	login, ok := s.items[state]
	if !ok {
		return "", false
	}
	delete(s.items, state)
	if s.now().After(login.expires) {
		return "", false
	}
	return login.verifier, true
}
