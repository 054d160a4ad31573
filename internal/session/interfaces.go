package session

import "time"

// Store owns all session state. Every operation re-fetches by id internally
// and refreshes the liveness timestamp as a side effect of access, so a
// session is only reaped after a true idle gap. Mutating operations on ids
// that no longer exist are silent no-ops.
type Store interface {
	// Create allocates a fresh session and returns its id.
	Create() string

	// Get returns a copy of the session and touches its liveness timestamp.
	Get(sessionID string) (Session, bool)

	// AppendExchange appends a user turn then a model turn, then truncates
	// from the front until the history bound holds.
	AppendExchange(sessionID, userText, modelPayload string)

	SetTheme(sessionID, theme string)
	SetCurrentCity(sessionID, city string)

	// CurrentCity returns the saved city for the session, or "".
	CurrentCity(sessionID string) string

	// Sweep removes every session idle longer than the inactivity timeout
	// and returns how many were removed.
	Sweep(now time.Time) int

	Len() int
}
