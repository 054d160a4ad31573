package nlu

import (
	"context"

	"github.com/aetheria/aetheria/internal/session"
	"github.com/aetheria/aetheria/internal/weather"
)

// Intent is the structured extraction of one user message. JSON nulls decode
// to empty strings, so optional fields are plain strings here.
type Intent struct {
	Location              string `json:"location"`
	Date                  string `json:"date"`
	Mood                  string `json:"mood"`
	RequiresWeatherData   bool   `json:"requires_weather_data"`
	IsGreetingOrSmalltalk bool   `json:"is_greeting_or_smalltalk"`
	IsGeneralConversation bool   `json:"is_general_conversation"`
	ChosenTheme           string `json:"chosen_theme"`
	ImpliedTheme          string `json:"implied_theme"`
}

// Reply is a bilingual generated response.
type Reply struct {
	JapaneseResponse string `json:"japaneseResponse"`
	EnglishResponse  string `json:"englishResponse"`
	Suggestion       string `json:"suggestion"`
}

// IntentExtractor understands a user message in context. A malformed model
// output is an error: without an intent the turn cannot proceed.
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, text string, history []session.Turn) (*Intent, error)
}

// ResponseGenerator produces the user-facing bilingual replies. Malformed
// model output is recovered locally with a fixed fallback, never an error.
type ResponseGenerator interface {
	GenerateFinalResponse(ctx context.Context, text string, intent *Intent, report *weather.Report, theme string) (*Reply, error)
	GenerateGeneralResponse(ctx context.Context, text string, history []session.Turn, theme string) (*Reply, error)
}

// FallbackReply is substituted when response generation returns something
// unparseable. The request still succeeds, apologetically.
func FallbackReply() *Reply {
	return &Reply{
		JapaneseResponse: "申し訳ございませんが、応答の生成中にエラーが発生しました。もう一度お試しください。",
		EnglishResponse:  "Sorry, there was an error generating the response. Please try again.",
		Suggestion:       "Please try your request again.",
	}
}
