package nlu

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aetheria/aetheria/internal/session"
	"github.com/aetheria/aetheria/internal/weather"
)

// contextWindow bounds how many recent turns are summarized into prompts.
const contextWindow = 6

// historyContext renders recent turns for prompt consumption. Model turns
// hold serialized response payloads, so they are summarized rather than
// inlined verbatim.
func historyContext(history []session.Turn) string {
	if len(history) == 0 {
		return "No previous conversation"
	}
	start := 0
	if len(history) > contextWindow {
		start = len(history) - contextWindow
	}

	var b strings.Builder
	for i, turn := range history[start:] {
		if i > 0 {
			b.WriteByte('\n')
		}
		if turn.Role == session.RoleUser {
			b.WriteString("user: " + turn.Content)
			continue
		}
		b.WriteString("model: " + summarizeModelTurn(turn.Content))
	}
	return b.String()
}

type storedResponse struct {
	EnglishResponse string `json:"englishResponse"`
	Weather         *struct {
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
	} `json:"weather"`
}

func summarizeModelTurn(payload string) string {
	var stored storedResponse
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		return payload
	}
	if stored.Weather != nil && stored.Weather.Location.Name != "" {
		return "Provided weather information for " + stored.Weather.Location.Name
	}
	if stored.EnglishResponse != "" {
		if len(stored.EnglishResponse) > 100 {
			return stored.EnglishResponse[:100] + "..."
		}
		return stored.EnglishResponse
	}
	return "Provided response (theme/general conversation)"
}

func intentPrompt(userInput, recentContext string) string {
	return fmt.Sprintf(`You are a highly accurate entity extraction model for a themed chatbot.
Your task is to analyze the user's input and respond ONLY with a JSON object.
The user input can be in Japanese or English.

CRITICAL: Respond with ONLY valid JSON. No additional text before or after.

IMPORTANT: Use the conversation context below to resolve referential terms like "there", "that place", "the city", etc.

Recent Conversation Context:
%s

Follow these rules strictly:
1. "location": Find a city, country, or landmark. Resolve referential terms using the context above. If none found, MUST be null.
2. "date": Find a date reference ('today', 'tomorrow', 'day after tomorrow', 'tonight', 'this weekend', etc.). If none, default to 'today'.
3. "mood": Find a mood ('bored', 'tired', 'lazy' etc). If none, MUST be null.
4. "requires_weather_data": true if the user asks about weather, clothing, places to visit, activities, recommendations, or anything that would benefit from weather information.
5. "is_greeting_or_smalltalk": true for simple greetings like "hello", "hi", "good morning".
6. "is_general_conversation": true ONLY for pure conversational messages like simple thanks, acknowledgments, or casual chat that requests nothing.
7. "chosen_theme": ONLY when the user is explicitly choosing a theme as a single word/phrase ("Photography") or clearly stating a choice ("I choose sports"). NOT for activity requests like "find photography places".
8. "implied_theme": when the user mentions a specific activity or interest in a request without explicitly choosing it as a theme, extract the theme name here.

--- EXAMPLES ---
User Input: "大阪の天気は？"
{ "location": "Osaka", "date": "today", "mood": null, "requires_weather_data": true, "is_greeting_or_smalltalk": false, "is_general_conversation": false, "chosen_theme": null, "implied_theme": null }

Context: "user: I'm going to Paris next week"
User Input: "What's the weather like there tomorrow?"
{ "location": "Paris", "date": "tomorrow", "mood": null, "requires_weather_data": true, "is_greeting_or_smalltalk": false, "is_general_conversation": false, "chosen_theme": null, "implied_theme": null }

User Input: "I choose sports"
{ "location": null, "date": "today", "mood": null, "requires_weather_data": false, "is_greeting_or_smalltalk": false, "is_general_conversation": false, "chosen_theme": "sports", "implied_theme": null }

User Input: "I want to find good spots for taking pictures this weekend"
{ "location": null, "date": "today", "mood": null, "requires_weather_data": true, "is_greeting_or_smalltalk": false, "is_general_conversation": false, "chosen_theme": null, "implied_theme": "photography" }

User Input: "Okay! Thanks!"
{ "location": null, "date": "today", "mood": null, "requires_weather_data": false, "is_greeting_or_smalltalk": false, "is_general_conversation": true, "chosen_theme": null, "implied_theme": null }

User Input: "写真を撮るのに良い場所を教えて"
{ "location": null, "date": "today", "mood": null, "requires_weather_data": true, "is_greeting_or_smalltalk": false, "is_general_conversation": false, "chosen_theme": null, "implied_theme": "photography" }
--- END OF EXAMPLES ---

Current User Input: "%s"

REMINDER: Output ONLY the JSON object.`, recentContext, userInput)
}

func finalResponsePrompt(userInput string, intent *Intent, report *weather.Report, theme string) string {
	locationName := "your location"
	if report != nil {
		locationName = report.Location.Name
	} else if intent.Location != "" {
		locationName = intent.Location
	}

	intentJSON, _ := json.Marshal(intent)
	weatherJSON, _ := json.Marshal(report)

	return fmt.Sprintf(`You are a creative and helpful AI assistant specialized in providing location-based suggestions. Your current theme is "%s".
Your main purpose is to suggest specific places, activities, or recommendations related to "%s" that are appropriate for the current weather and location.

When users ask for places or activities:
- Provide SPECIFIC location recommendations when possible (parks, landmarks, districts, venues)
- Consider the weather conditions to suggest appropriate timing and preparation
- Give actionable advice the user can immediately act upon

Here is the context:
- The user's original input was: "%s"
- Your analysis of their intent is: %s
- The weather data is for the city of: "%s"
- Full weather data: %s

CRITICAL: Respond with ONLY valid JSON. No additional text before or after.

Instructions:
1. If weather data is available, briefly mention the current conditions in "%s" and explain how they make your suggestions good choices.
2. Give concrete, actionable suggestions related to "%s": location names, timing, practical tips.
3. If no weather data is provided, give general but helpful "%s" suggestions and ask the user to share their location.
4. Be conversational, enthusiastic, and helpful in both languages.

Provide your response in a JSON format containing ONLY the following three keys:
1. "japaneseResponse": The full, creative response in natural Japanese.
2. "englishResponse": The full response, translated accurately into English.
3. "suggestion": A short, actionable summary of your recommendation.

REMINDER: Output ONLY the JSON object.`,
		theme, theme, userInput, intentJSON, locationName, weatherJSON, locationName, theme, theme)
}

func generalResponsePrompt(userInput string, history []session.Turn, theme string) string {
	themeContext := "No specific theme has been chosen yet."
	if theme != "" {
		themeContext = fmt.Sprintf("The user has chosen %q as their theme, but this is casual conversation that doesn't require theme-based suggestions.", theme)
	}

	return fmt.Sprintf(`You are a friendly, natural AI assistant having a casual conversation with a user.

Context:
- User's current message: "%s"
- %s
- Recent conversation history:
%s

CRITICAL: Respond with ONLY valid JSON. No additional text before or after.

Instructions:
1. Respond naturally and conversationally to the user's message.
2. Keep responses friendly, concise, and warm.
3. Don't force weather or theme suggestions unless naturally relevant.
4. If appropriate, gently guide toward asking about suggestions or weather.

Provide your response in JSON format with these keys:
1. "japaneseResponse": Natural conversational response in Japanese.
2. "englishResponse": Natural conversational response in English.
3. "suggestion": A brief, friendly follow-up suggestion.

REMINDER: Output ONLY the JSON object.`, userInput, themeContext, historyContext(history))
}
