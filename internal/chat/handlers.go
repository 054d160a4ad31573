package chat

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aetheria/aetheria/internal/interactions"
	"github.com/aetheria/aetheria/internal/location"
	"github.com/aetheria/aetheria/internal/session"
	"github.com/aetheria/aetheria/internal/speech"
)

// maxAudioUploadBytes bounds in-memory audio uploads.
const maxAudioUploadBytes = 10 << 20

// Handlers provides HTTP handlers for the chat API
type Handlers struct {
	service  *Service
	store    session.Store
	weather  Forecaster
	places   location.PlaceResolver
	geoip    location.GeoIP
	tts      speech.Synthesizer
	recorder interactions.Recorder
	logger   *zap.Logger
}

// NewHandlers creates new chat handlers
func NewHandlers(
	service *Service,
	store session.Store,
	forecaster Forecaster,
	places location.PlaceResolver,
	geoip location.GeoIP,
	tts speech.Synthesizer,
	recorder interactions.Recorder,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		service:  service,
		store:    store,
		weather:  forecaster,
		places:   places,
		geoip:    geoip,
		tts:      tts,
		recorder: recorder,
		logger:   logger,
	}
}

// RegisterRoutes registers all chat-related routes
func (h *Handlers) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/chat", h.HandleChat)
	router.GET("/weather", h.GetRawWeather)
	router.GET("/location", h.DetectLocation)
	router.POST("/tts", h.ConvertToSpeech)
	router.GET("/debug/session/:sessionId", h.DebugSession)
}

// chatRequest is the JSON body for text chat turns.
type chatRequest struct {
	Text            string   `json:"text"`
	SessionID       string   `json:"sessionId"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	LocationContext string   `json:"locationContext"`
}

// HandleChat is the main chat endpoint. It accepts either a JSON body with
// text, or a multipart form with an audio file plus the same fields as
// form values.
func (h *Handlers) HandleChat(c *gin.Context) {
	start := time.Now()

	in, err := h.parseTurnInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in.ClientIP = ClientIP(c)

	res, err := h.service.HandleTurn(c.Request.Context(), in)
	if err != nil {
		// The service allocates a session before it can fail, so the
		// partial result names the id the failed turn belongs to.
		sessionID := in.SessionID
		if res != nil && res.SessionID != "" {
			sessionID = res.SessionID
		}
		if errors.Is(err, ErrNoInput) || errors.Is(err, ErrEmptyTranscript) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			h.recordTurn(c, sessionID, "", "", "", false, false, err, start)
			return
		}
		h.logger.Error("Chat turn failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred."})
		h.recordTurn(c, sessionID, "", "", "", false, false, err, start)
		return
	}

	c.JSON(http.StatusOK, res)

	theme := ""
	if sess, ok := h.store.Get(res.SessionID); ok {
		theme = sess.Theme
	}
	h.recordTurn(c, res.SessionID, res.State, theme, res.City, res.Weather != nil, true, nil, start)
}

func (h *Handlers) parseTurnInput(c *gin.Context) (TurnInput, error) {
	contentType := c.ContentType()
	if contentType == "multipart/form-data" {
		return h.parseMultipartInput(c)
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return TurnInput{}, fmt.Errorf("invalid request body: %w", err)
	}
	in := TurnInput{
		Text:            req.Text,
		SessionID:       req.SessionID,
		LocationContext: req.LocationContext,
	}
	if req.Latitude != nil && req.Longitude != nil {
		in.Coordinates = &location.Coordinates{Lat: *req.Latitude, Lon: *req.Longitude}
	}
	return in, nil
}

func (h *Handlers) parseMultipartInput(c *gin.Context) (TurnInput, error) {
	in := TurnInput{
		Text:            c.PostForm("text"),
		SessionID:       c.PostForm("sessionId"),
		LocationContext: c.PostForm("locationContext"),
	}

	latStr, lonStr := c.PostForm("latitude"), c.PostForm("longitude")
	if latStr != "" && lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr == nil && lonErr == nil {
			in.Coordinates = &location.Coordinates{Lat: lat, Lon: lon}
		}
	}

	file, err := c.FormFile("audio")
	if err != nil {
		return in, nil // text-only form submission
	}
	if file.Size > maxAudioUploadBytes {
		return TurnInput{}, fmt.Errorf("audio file too large (max %d bytes)", maxAudioUploadBytes)
	}
	f, err := file.Open()
	if err != nil {
		return TurnInput{}, fmt.Errorf("failed to read audio upload: %w", err)
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		return TurnInput{}, fmt.Errorf("failed to read audio upload: %w", err)
	}
	in.Audio = audio
	return in, nil
}

func (h *Handlers) recordTurn(c *gin.Context, sessionID, state, theme, city string, weatherAttached, success bool, turnErr error, start time.Time) {
	if h.recorder == nil {
		return
	}
	log := &interactions.TurnLog{
		LogID:           uuid.New().String(),
		SessionID:       sessionID,
		Endpoint:        c.FullPath(),
		Method:          c.Request.Method,
		State:           state,
		Theme:           theme,
		City:            city,
		WeatherAttached: weatherAttached,
		Success:         success,
		LatencyMS:       time.Since(start).Milliseconds(),
	}
	if turnErr != nil {
		log.ErrorMsg = turnErr.Error()
	}
	if log.SessionID == "" {
		log.SessionID = "unknown"
	}
	if err := h.recorder.Record(c.Request.Context(), log); err != nil {
		h.logger.Warn("Failed to record chat turn", zap.Error(err))
	}
}

// GetRawWeather fetches the raw provider forecast for a specific city
func (h *Handlers) GetRawWeather(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "City query parameter is required."})
		return
	}

	report, err := h.weather.Forecast(c.Request.Context(), city)
	if err != nil {
		h.logger.Error("Raw weather lookup failed", zap.String("city", city), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch weather data."})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Weather data for city '%s' not found.", city)})
		return
	}

	c.JSON(http.StatusOK, report)
}

// DetectLocation reverse-geocodes provided coordinates, or falls back to IP
// geolocation when no coordinates are given
func (h *Handlers) DetectLocation(c *gin.Context) {
	lat, lon := c.Query("lat"), c.Query("lon")

	if lat != "" && lon != "" {
		name, err := h.places.ResolveName(c.Request.Context(), lat+","+lon)
		if err != nil {
			h.logger.Error("Reverse geocoding failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred."})
			return
		}
		if name == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Could not find a city for the provided coordinates."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"city": name})
		return
	}

	city, err := h.geoip.CityForIP(c.Request.Context(), ClientIP(c))
	if err != nil {
		h.logger.Error("IP geolocation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred."})
		return
	}
	if city == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Could not determine location from IP address."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"city": city})
}

// ttsRequest supports three shapes: single text with explicit language,
// single text with auto-detection, or both languages at once.
type ttsRequest struct {
	Text         string `json:"text"`
	Language     string `json:"language"`
	JapaneseText string `json:"japaneseText"`
	EnglishText  string `json:"englishText"`
	Mode         string `json:"mode"`
}

// ConvertToSpeech synthesizes request text into MP3 audio
func (h *Handlers) ConvertToSpeech(c *gin.Context) {
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	switch {
	case req.Mode == "both" && req.JapaneseText != "" && req.EnglishText != "":
		ja, en, err := h.tts.SynthesizeBoth(c.Request.Context(), req.JapaneseText, req.EnglishText)
		if err != nil {
			h.logger.Error("Bilingual synthesis failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to convert text to speech: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"audio": gin.H{
				"japanese": base64.StdEncoding.EncodeToString(ja),
				"english":  base64.StdEncoding.EncodeToString(en),
			},
			"contentType": "audio/mpeg",
		})

	case req.Text != "":
		filename := "speech.mp3"
		if req.Language != "" {
			filename = fmt.Sprintf("speech_%s.mp3", req.Language)
		}
		audio, err := h.tts.Synthesize(c.Request.Context(), req.Text, req.Language)
		if err != nil {
			h.logger.Error("Speech synthesis failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to convert text to speech: " + err.Error()})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "audio/mpeg", audio)

	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing required parameters. Provide 'text' or both 'japaneseText' and 'englishText'",
		})
	}
}

// DebugSession exposes session state for troubleshooting
func (h *Handlers) DebugSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	sess, exists := h.store.Get(sessionID)

	resp := gin.H{
		"sessionId":     sessionID,
		"exists":        exists,
		"currentCity":   h.store.CurrentCity(sessionID),
		"historyLength": len(sess.History),
		"theme":         sess.Theme,
	}
	if exists {
		resp["lastAccessed"] = sess.LastAccessed.UTC().Format(time.RFC3339)
	} else {
		resp["lastAccessed"] = nil
	}
	c.JSON(http.StatusOK, resp)
}
