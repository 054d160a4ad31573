package session

import (
	"time"
)

// Turn roles. Model turns store the serialized structured response so that
// later turns can recover resolved locations from it.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is a single history entry.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session represents one ongoing conversation. Theme and CurrentCity start
// empty; LastAccessed is the sole liveness signal for expiry.
type Session struct {
	ID           string    `json:"session_id"`
	History      []Turn    `json:"history"`
	Theme        string    `json:"theme,omitempty"`
	CurrentCity  string    `json:"current_city,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}
