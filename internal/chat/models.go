package chat

import (
	"errors"

	"github.com/aetheria/aetheria/internal/location"
	"github.com/aetheria/aetheria/internal/weather"
)

// States a chat turn can resolve to. Recorded in turn logs and surfaced to
// tests; the client only sees the response payload.
const (
	StateThemeConfirmation   = "theme_confirmation"
	StateThemePrompt         = "theme_prompt"
	StateGeneralConversation = "general_conversation"
	StateTaskFlow            = "task_flow"
)

// ActionChooseTheme asks the frontend to present the theme picker.
const ActionChooseTheme = "choose_theme"

var (
	// ErrNoInput means the request carried neither text nor usable audio.
	ErrNoInput = errors.New("no input provided")

	// ErrEmptyTranscript means audio was supplied but produced no text.
	ErrEmptyTranscript = errors.New("could not understand audio")
)

// TurnInput is one user turn, from whichever transport carried it.
type TurnInput struct {
	Text            string
	SessionID       string
	Coordinates     *location.Coordinates
	LocationContext string
	Audio           []byte
	ClientIP        string
}

// TurnResult is the orchestrator's answer for one turn.
type TurnResult struct {
	SessionID      string              `json:"sessionId"`
	Japanese       string              `json:"japaneseResponse"`
	English        string              `json:"englishResponse"`
	Suggestion     string              `json:"suggestion"`
	Weather        *weather.Structured `json:"weather"`
	ActionRequired *string             `json:"action_required"`

	// State names the branch that produced this result. Not serialized;
	// turn logging and tests read it.
	State string `json:"-"`

	// City is the committed city for weather turns, "" otherwise.
	City string `json:"-"`
}

// historyPayload is what gets persisted as the model turn: the bilingual
// reply plus any structured weather, so later turns can recover the last
// discussed location from history alone.
type historyPayload struct {
	Japanese       string              `json:"japaneseResponse"`
	English        string              `json:"englishResponse"`
	Suggestion     string              `json:"suggestion"`
	Weather        *weather.Structured `json:"weather"`
	ActionRequired *string             `json:"action_required"`
}
