package interactions

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// TurnLog is an audit record for one chat turn: which session it belonged
// to, which branch of the conversation state machine handled it, and how it
// ended.
type TurnLog struct {
	bun.BaseModel `bun:"table:chat_turn_logs,alias:ctl"`

	LogID           string    `bun:"id,pk" json:"log_id"`
	SessionID       string    `bun:"session_id,notnull" json:"session_id"`
	Endpoint        string    `bun:"endpoint" json:"endpoint"`
	Method          string    `bun:"method" json:"method"`
	State           string    `bun:"state" json:"state"` // theme_confirmation, theme_prompt, general_conversation, task_flow
	Theme           string    `bun:"theme" json:"theme,omitempty"`
	City            string    `bun:"city" json:"city,omitempty"`
	WeatherAttached bool      `bun:"weather_attached,notnull,default:false" json:"weather_attached"`
	Success         bool      `bun:"success,notnull,default:true" json:"success"`
	ErrorMsg        string    `bun:"error_msg" json:"error_msg,omitempty"`
	LatencyMS       int64     `bun:"latency_ms" json:"latency_ms"`
	Timestamp       time.Time `bun:"timestamp,notnull,default:current_timestamp" json:"timestamp"`
}

// Validate checks the fields every record must carry.
func (l *TurnLog) Validate() error {
	if l.LogID == "" {
		return fmt.Errorf("log ID cannot be empty")
	}
	if l.SessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if l.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	return nil
}
