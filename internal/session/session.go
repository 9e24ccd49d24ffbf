// Package session holds the backend credentials for the running process.
// A Session is started once at boot and cleared on shutdown; callers read the
// token on every outbound request instead of caching it.
package session

import (
	"sync"
	"time"
)

type Session struct {
	mu      sync.RWMutex
	token   string
	user    string
	started time.Time
}

func New() *Session { return &Session{} }

func (s *Session) Start(token, user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.started = time.Now()
}

func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Active() bool { return s.Token() != "" }

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = "", ""
	s.started = time.Time{}
}
