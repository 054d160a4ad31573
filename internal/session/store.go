package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults; overridable through config.
const (
	DefaultMaxHistory        = 8 // entries, i.e. the last 4 user/model exchanges
	DefaultInactivityTimeout = 30 * time.Minute
	DefaultSweepInterval     = 5 * time.Minute
)

// InMemoryStore implements Store with in-memory storage.
type InMemoryStore struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	maxHistory        int
	inactivityTimeout time.Duration
	logger            *zap.Logger
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore(maxHistory int, inactivityTimeout time.Duration, logger *zap.Logger) *InMemoryStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if inactivityTimeout <= 0 {
		inactivityTimeout = DefaultInactivityTimeout
	}
	return &InMemoryStore{
		sessions:          make(map[string]*Session),
		maxHistory:        maxHistory,
		inactivityTimeout: inactivityTimeout,
		logger:            logger,
	}
}

// Create allocates a fresh session. UUIDs make collisions with live ids a
// non-concern, but the map is still checked to honor the contract.
func (s *InMemoryStore) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	for {
		if _, exists := s.sessions[id]; !exists {
			break
		}
		id = uuid.NewString()
	}

	now := time.Now()
	s.sessions[id] = &Session{
		ID:           id,
		History:      []Turn{},
		CreatedAt:    now,
		LastAccessed: now,
	}
	return id
}

// Get returns a copy of the session so no caller retains a reference to
// shared mutable state, and refreshes LastAccessed.
func (s *InMemoryStore) Get(sessionID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return Session{}, false
	}
	s.touchLocked(sess)

	snapshot := *sess
	snapshot.History = make([]Turn, len(sess.History))
	copy(snapshot.History, sess.History)
	return snapshot, true
}

// AppendExchange appends a user turn then a model turn, then evicts from the
// front per entry until the bound holds. The oldest surviving entry can be
// either role.
func (s *InMemoryStore) AppendExchange(sessionID, userText, modelPayload string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return
	}
	s.touchLocked(sess)

	sess.History = append(sess.History,
		Turn{Role: RoleUser, Content: userText},
		Turn{Role: RoleModel, Content: modelPayload},
	)
	for len(sess.History) > s.maxHistory {
		sess.History = sess.History[1:]
	}
}

func (s *InMemoryStore) SetTheme(sessionID, theme string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return
	}
	s.touchLocked(sess)
	sess.Theme = theme
}

func (s *InMemoryStore) SetCurrentCity(sessionID, city string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return
	}
	s.touchLocked(sess)
	sess.CurrentCity = city
}

func (s *InMemoryStore) CurrentCity(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return ""
	}
	s.touchLocked(sess)
	return sess.CurrentCity
}

// Sweep removes every session whose idle gap exceeds the inactivity timeout.
// Sessions touched between sweeps survive; timestamps of survivors are left
// untouched.
func (s *InMemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastAccessed) > s.inactivityTimeout {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 && s.logger != nil {
		s.logger.Info("Removed inactive sessions",
			zap.Int("removed", removed),
			zap.Int("remaining", len(s.sessions)))
	}
	return removed
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// touchLocked keeps the session alive. Any access counts, including reads
// on behalf of a request whose downstream work later fails.
func (s *InMemoryStore) touchLocked(sess *Session) {
	now := time.Now()
	if !now.After(sess.LastAccessed) {
		now = sess.LastAccessed.Add(time.Nanosecond)
	}
	sess.LastAccessed = now
}
