package interactions

import (
	"context"
	"time"
)

// Recorder defines the interface for recording chat turns
type Recorder interface {
	// Record persists a turn log entry
	Record(ctx context.Context, log *TurnLog) error

	// SessionTurns returns turn logs for a specific session, newest first
	SessionTurns(ctx context.Context, sessionID string, limit int) ([]*TurnLog, error)
}

// Store defines the interface for turn log persistence
type Store interface {
	// CreateTurnLog persists a new turn log entry
	CreateTurnLog(ctx context.Context, log *TurnLog) error

	// GetTurnsBySession returns turn logs for a specific session, newest first
	GetTurnsBySession(ctx context.Context, sessionID string, limit int) ([]*TurnLog, error)

	// DeleteOlderThan removes turn logs with a timestamp before the cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}
