package session

import (
	"sync"
	"time"
)

type Session struct {
	UserID       int64
	Username     string
	Style        string
	LastDream    string
	LastActivity time.Time
}

type Options struct {
	DefaultStyle string
	// IdleTTL drops sessions untouched for longer than this on the next Prune.
	IdleTTL time.Duration
}

type Store struct {
	mu           sync.Mutex
	sessions     map[int64]*Session
	defaultStyle string
	idleTTL      time.Duration
	now          func() time.Time
}

func NewStore(opts Options) *Store {
	idleTTL := opts.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}

	return &Store{
		sessions:     make(map[int64]*Session),
		defaultStyle: opts.DefaultStyle,
		idleTTL:      idleTTL,
		now:          time.Now,
	}
}

// Snapshot returns a copy of the user's session, creating it if needed.
func (s *Store) Snapshot(userID int64, username string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(userID, username)
	sess.LastActivity = s.now()
	return *sess
}

func (s *Store) SetStyle(userID int64, username, style string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(userID, username)
	sess.Style = style
	sess.LastActivity = s.now()
}

func (s *Store) RememberDream(userID int64, username, dream string) {
	if dream == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(userID, username)
	sess.LastDream = dream
	sess.LastActivity = s.now()
}

func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		sess.Style = s.defaultStyle
		sess.LastDream = ""
		sess.LastActivity = s.now()
	}
}

// Prune removes idle sessions and reports how many were dropped.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) getOrCreateLocked(userID int64, username string) *Session {
	if sess, ok := s.sessions[userID]; ok {
		if sess.Username == "" && username != "" {
			sess.Username = username
		}
		return sess
	}

	sess := &Session{
		UserID:       userID,
		Username:     username,
		Style:        s.defaultStyle,
		LastActivity: s.now(),
	}
	s.sessions[userID] = sess
	return sess
}
