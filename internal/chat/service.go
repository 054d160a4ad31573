package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aetheria/aetheria/internal/location"
	"github.com/aetheria/aetheria/internal/nlu"
	"github.com/aetheria/aetheria/internal/session"
	"github.com/aetheria/aetheria/internal/speech"
	"github.com/aetheria/aetheria/internal/weather"
)

// Forecaster fetches a weather report for a free-form query. nil report with
// nil error means the place is unknown to the provider.
type Forecaster interface {
	Forecast(ctx context.Context, query string) (*weather.Report, error)
}

// LocationResolver reconciles all location signals for a turn.
type LocationResolver interface {
	PersistCoordinates(ctx context.Context, sessionID string, coords *location.Coordinates)
	Resolve(ctx context.Context, in location.ResolveInput) location.Candidate
	CommitResolvedCity(sessionID, resolvedName string)
}

// Service drives the per-message conversation state machine: theme
// selection first, then either small talk or the weather-grounded
// suggestion flow.
type Service struct {
	store     session.Store
	intents   nlu.IntentExtractor
	responder nlu.ResponseGenerator
	resolver  LocationResolver
	weather   Forecaster
	stt       speech.Transcriber
	logger    *zap.Logger
}

// NewService creates a new chat service
func NewService(
	store session.Store,
	intents nlu.IntentExtractor,
	responder nlu.ResponseGenerator,
	resolver LocationResolver,
	forecaster Forecaster,
	stt speech.Transcriber,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		intents:   intents,
		responder: responder,
		resolver:  resolver,
		weather:   forecaster,
		stt:       stt,
		logger:    logger,
	}
}

// HandleTurn processes one user turn end to end and returns the response
// payload. Input validation failures come back as ErrNoInput or
// ErrEmptyTranscript; everything else is an internal failure. On error the
// result still carries the session id that served the turn, which may have
// been allocated during this call, so failures stay correlatable.
func (s *Service) HandleTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = s.store.Create()
		s.logger.Debug("Created new session", zap.String("session_id", sessionID))
	}

	sess, ok := s.store.Get(sessionID)
	if !ok {
		// The id expired or never existed. Start a fresh session rather
		// than failing the turn; the client picks up the new id from the
		// response.
		sessionID = s.store.Create()
		sess, _ = s.store.Get(sessionID)
		s.logger.Debug("Replaced unknown session id", zap.String("session_id", sessionID))
	}

	text := strings.TrimSpace(in.Text)
	if len(in.Audio) > 0 {
		transcript, err := s.stt.Transcribe(ctx, in.Audio)
		if err != nil {
			return &TurnResult{SessionID: sessionID}, fmt.Errorf("transcription failed: %w", err)
		}
		transcript = strings.TrimSpace(transcript)
		if transcript == "" {
			return &TurnResult{SessionID: sessionID}, ErrEmptyTranscript
		}
		text = transcript

		// A client-supplied location hint rides along only while the
		// session has no saved city; once a city is known it wins.
		if in.LocationContext != "" && s.store.CurrentCity(sessionID) == "" {
			text = text + ". " + in.LocationContext
		}
	}
	if text == "" {
		return &TurnResult{SessionID: sessionID}, ErrNoInput
	}

	history := sess.History
	intent, err := s.intents.ExtractIntent(ctx, text, history)
	if err != nil {
		return &TurnResult{SessionID: sessionID}, fmt.Errorf("intent extraction failed: %w", err)
	}

	// Coordinates are saved eagerly, before any branch decides whether
	// this turn even needs a location.
	s.resolver.PersistCoordinates(ctx, sessionID, in.Coordinates)

	// The user is actively choosing a theme.
	if intent.ChosenTheme != "" {
		theme := strings.ToLower(intent.ChosenTheme)
		s.store.SetTheme(sessionID, theme)
		res := &TurnResult{
			SessionID:  sessionID,
			Japanese:   fmt.Sprintf("承知いたしました！「%s」をテーマに提案させていただきますね。%sに関する場所や活動について何でもお聞きください！", theme, theme),
			English:    fmt.Sprintf("Perfect! I'll be your %q advisor from now on. Feel free to ask me about places to visit or activities related to %s!", theme, theme),
			Suggestion: fmt.Sprintf("Ask me about %s places or activities in your area!", theme),
			State:      StateThemeConfirmation,
		}
		s.appendExchange(sessionID, text, res)
		return res, nil
	}

	// No theme yet, but the message implies one. Adopt it silently and let
	// the turn continue into the normal flow.
	if sess.Theme == "" && intent.ImpliedTheme != "" {
		theme := strings.ToLower(intent.ImpliedTheme)
		s.store.SetTheme(sessionID, theme)
		s.logger.Debug("Auto-set theme from implied interest",
			zap.String("session_id", sessionID), zap.String("theme", theme))
	}

	// Re-read the theme: the implied-theme branch above may have just set it.
	theme := ""
	if cur, found := s.store.Get(sessionID); found {
		theme = cur.Theme
	}

	// Still no theme: ask the user to pick one. This exchange is not
	// recorded, so the next message is judged against a clean history.
	if theme == "" {
		action := ActionChooseTheme
		return &TurnResult{
			SessionID:      sessionID,
			Japanese:       "こんにちは！まず、どのようなテーマで場所や活動を提案してほしいですか？例えば、「写真撮影」「スポーツ」「グルメ」「読書」など、何でもどうぞ！",
			English:        "Hello! First, what theme would you like for location and activity suggestions? For example: 'Photography', 'Sports', 'Food', 'Reading', or anything else you're interested in!",
			Suggestion:     "Choose a theme to get personalized recommendations!",
			ActionRequired: &action,
			State:          StateThemePrompt,
		}, nil
	}

	// Small talk stays off the weather path entirely.
	if intent.IsGeneralConversation {
		reply, err := s.responder.GenerateGeneralResponse(ctx, text, history, theme)
		if err != nil {
			return &TurnResult{SessionID: sessionID}, fmt.Errorf("general response generation failed: %w", err)
		}
		res := &TurnResult{
			SessionID:  sessionID,
			Japanese:   reply.JapaneseResponse,
			English:    reply.EnglishResponse,
			Suggestion: reply.Suggestion,
			State:      StateGeneralConversation,
		}
		s.appendExchange(sessionID, text, res)
		return res, nil
	}

	// Themed task flow, with weather attached when the intent calls for it.
	var report *weather.Report
	city := ""
	if intent.RequiresWeatherData {
		cand := s.resolver.Resolve(ctx, location.ResolveInput{
			UserText:       text,
			IntentLocation: intent.Location,
			SessionID:      sessionID,
			Coordinates:    in.Coordinates,
			History:        history,
			ClientIP:       in.ClientIP,
		})
		if !cand.IsZero() {
			report, err = s.weather.Forecast(ctx, cand.Query())
			if err != nil {
				return &TurnResult{SessionID: sessionID}, fmt.Errorf("weather lookup failed: %w", err)
			}
			if report != nil && report.Location.Name != "" {
				s.resolver.CommitResolvedCity(sessionID, report.Location.Name)
				city = report.Location.Name
			} else {
				s.logger.Warn("No weather data for resolved location",
					zap.String("session_id", sessionID), zap.String("query", cand.Query()))
			}
		} else {
			s.logger.Debug("No location could be determined, proceeding without weather",
				zap.String("session_id", sessionID))
		}
	}

	reply, err := s.responder.GenerateFinalResponse(ctx, text, intent, report, theme)
	if err != nil {
		return &TurnResult{SessionID: sessionID}, fmt.Errorf("response generation failed: %w", err)
	}

	res := &TurnResult{
		SessionID:  sessionID,
		Japanese:   reply.JapaneseResponse,
		English:    reply.EnglishResponse,
		Suggestion: reply.Suggestion,
		Weather:    weather.Structure(report),
		State:      StateTaskFlow,
		City:       city,
	}
	s.appendExchange(sessionID, text, res)
	return res, nil
}

// appendExchange records the user turn and the serialized model payload on
// the session history.
func (s *Service) appendExchange(sessionID, userText string, res *TurnResult) {
	payload := historyPayload{
		Japanese:       res.Japanese,
		English:        res.English,
		Suggestion:     res.Suggestion,
		Weather:        res.Weather,
		ActionRequired: res.ActionRequired,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to serialize model turn", zap.Error(err))
		return
	}
	s.store.AppendExchange(sessionID, userText, string(data))
}
