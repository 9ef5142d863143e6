// Package session tracks which persons have already been counted within a
// recognition session. The state is process-scoped and intentionally
// volatile: the persisted event log is the source of truth, this store only
// suppresses repeated counting while a live view is open.
package session

import (
	"sync"
	"time"

	"facetrack-go/internal/core/models"
)

// Store maps a session identifier to the set of person IDs already counted
// in that session. Check-then-mark is atomic per session; operations on
// different sessions proceed independently.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	counted  map[uint]struct{}
	lastSeen time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
	}
}

// normalize applies the default session sentinel for empty identifiers.
func normalize(sessionID string) string {
	if sessionID == "" {
		return models.DefaultSessionID
	}
	return sessionID
}

// get returns the entry for a session, creating it lazily when create is set.
func (s *Store) get(sessionID string, create bool) *entry {
	s.mu.RLock()
	e := s.sessions[sessionID]
	s.mu.RUnlock()
	if e != nil || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.sessions[sessionID]; e == nil {
		e = &entry{counted: make(map[uint]struct{})}
		s.sessions[sessionID] = e
	}
	return e
}

// HasCounted reports whether the person has already been counted in the
// session. An absent session is equivalent to an empty set.
func (s *Store) HasCounted(sessionID string, personID uint) bool {
	e := s.get(normalize(sessionID), false)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.counted[personID]
	return ok
}

// MarkCounted records the person as counted in the session. Marking an
// already-present person is a no-op.
func (s *Store) MarkCounted(sessionID string, personID uint) {
	e := s.get(normalize(sessionID), true)
	e.mu.Lock()
	e.counted[personID] = struct{}{}
	e.lastSeen = time.Now()
	e.mu.Unlock()
}

// CheckAndMark atomically checks whether the person was already counted and
// records it if not. Returns true if the person had been counted before.
// This is the only method the decision engine should use on the hot path;
// separate check-then-mark calls would race under concurrent frames.
func (s *Store) CheckAndMark(sessionID string, personID uint) bool {
	e := s.get(normalize(sessionID), true)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen = time.Now()
	if _, ok := e.counted[personID]; ok {
		return true
	}
	e.counted[personID] = struct{}{}
	return false
}

// Touch refreshes the session's idle timer without mutating its set.
func (s *Store) Touch(sessionID string) {
	e := s.get(normalize(sessionID), true)
	e.mu.Lock()
	e.lastSeen = time.Now()
	e.mu.Unlock()
}

// Reset removes the entire entry for the session. Resetting a session that
// does not exist is a no-op, not an error.
func (s *Store) Reset(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, normalize(sessionID))
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle drops sessions that have not been touched since the cutoff and
// returns how many were removed. Used by the background cleanup service;
// equivalent to an implicit Reset for each evicted session.
func (s *Store) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}
