package interactions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL turn log store
func NewPostgresStore(db *bun.DB) Store {
	return &PostgresStore{db: db}
}

// CreateTurnLog persists a new turn log entry
func (s *PostgresStore) CreateTurnLog(ctx context.Context, log *TurnLog) error {
	_, err := s.db.NewInsert().Model(log).Exec(ctx)
	return err
}

// GetTurnsBySession returns turn logs for a specific session, newest first
func (s *PostgresStore) GetTurnsBySession(ctx context.Context, sessionID string, limit int) ([]*TurnLog, error) {
	var logs []*TurnLog
	err := s.db.NewSelect().
		Model(&logs).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC").
		Limit(limit).
		Scan(ctx)
	return logs, err
}

// DeleteOlderThan removes turn logs with a timestamp before the cutoff
func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.NewDelete().
		Model((*TurnLog)(nil)).
		Where("timestamp < ?", cutoff).
		Exec(ctx)
	return err
}

// InMemoryStore implements Store without external storage. It is used when
// Postgres is disabled in config and in tests.
type InMemoryStore struct {
	mu   sync.RWMutex
	logs []*TurnLog
}

// NewInMemoryStore creates a new in-memory turn log store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// CreateTurnLog persists a new turn log entry
func (s *InMemoryStore) CreateTurnLog(ctx context.Context, log *TurnLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *log
	s.logs = append(s.logs, &cp)
	return nil
}

// GetTurnsBySession returns turn logs for a specific session, newest first
func (s *InMemoryStore) GetTurnsBySession(ctx context.Context, sessionID string, limit int) ([]*TurnLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*TurnLog
	for _, l := range s.logs {
		if l.SessionID == sessionID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteOlderThan removes turn logs with a timestamp before the cutoff
func (s *InMemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.logs[:0]
	for _, l := range s.logs {
		if !l.Timestamp.Before(cutoff) {
			kept = append(kept, l)
		}
	}
	s.logs = kept
	return nil
}
