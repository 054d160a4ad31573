package interactions

import (
	"context"
	"fmt"
	"time"
)

// recorder implements the Recorder interface
type recorder struct {
	store Store
}

// NewRecorder creates a new turn recorder backed by the given store
func NewRecorder(store Store) Recorder {
	return &recorder{store: store}
}

// Record persists a turn log entry
func (r *recorder) Record(ctx context.Context, log *TurnLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("invalid turn log: %w", err)
	}

	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	if err := r.store.CreateTurnLog(ctx, log); err != nil {
		return fmt.Errorf("failed to create turn log: %w", err)
	}

	return nil
}

// SessionTurns returns turn logs for a specific session, newest first
func (r *recorder) SessionTurns(ctx context.Context, sessionID string, limit int) ([]*TurnLog, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	if limit <= 0 {
		limit = 100
	}

	logs, err := r.store.GetTurnsBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get session turns: %w", err)
	}

	return logs, nil
}
