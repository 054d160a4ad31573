package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetheria/aetheria/internal/interactions"
	"github.com/aetheria/aetheria/internal/nlu"
)

type fakeSynthesizer struct{}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	return []byte("mp3:" + text), nil
}

func (f *fakeSynthesizer) SynthesizeBoth(ctx context.Context, ja, en string) ([]byte, []byte, error) {
	return []byte("mp3:" + ja), []byte("mp3:" + en), nil
}

type handlerFixture struct {
	*serviceFixture
	turnLogs *interactions.InMemoryStore
	router   *gin.Engine
}

func newHandlerFixture(t *testing.T, intent *nlu.Intent) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := newServiceFixture(t, intent)
	turnLogs := interactions.NewInMemoryStore()

	h := NewHandlers(
		fx.service,
		fx.store,
		fx.forecaster,
		fx.places,
		fx.geoip,
		&fakeSynthesizer{},
		interactions.NewRecorder(turnLogs),
		zap.NewNop(),
	)

	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))

	return &handlerFixture{
		serviceFixture: fx,
		turnLogs:       turnLogs,
		router:         router,
	}
}

func (fx *handlerFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleChat_TextTurn(t *testing.T) {
	fx := newHandlerFixture(t, &nlu.Intent{IsGreetingOrSmalltalk: true})

	w := fx.do(t, postJSON(t, "/api/chat", gin.H{"text": "Hello"}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionID      string  `json:"sessionId"`
		Japanese       string  `json:"japaneseResponse"`
		English        string  `json:"englishResponse"`
		ActionRequired *string `json:"action_required"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Japanese)
	require.NotNil(t, resp.ActionRequired)
	assert.Equal(t, ActionChooseTheme, *resp.ActionRequired)

	logs, err := fx.turnLogs.GetTurnsBySession(context.Background(), resp.SessionID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StateThemePrompt, logs[0].State)
	assert.True(t, logs[0].Success)
}

func TestHandleChat_EmptyInputRejected(t *testing.T) {
	fx := newHandlerFixture(t, &nlu.Intent{})

	w := fx.do(t, postJSON(t, "/api/chat", gin.H{"text": "  "}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no input provided")
}

func TestHandleChat_FailedFirstTurnLogKeepsSessionID(t *testing.T) {
	fx := newHandlerFixture(t, &nlu.Intent{})

	w := fx.do(t, postJSON(t, "/api/chat", gin.H{"text": "  "}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 1, fx.store.Len(), "the failed turn still allocated a session")

	logs, err := fx.turnLogs.GetTurnsBySession(context.Background(), "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, logs, "first-turn failures must be logged under the allocated session id")
}

func TestHandleChat_MultipartAudio(t *testing.T) {
	fx := newHandlerFixture(t, &nlu.Intent{IsGreetingOrSmalltalk: true})
	fx.stt.text = "Hello from audio"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "speech.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("opus-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("locationContext", "I am in Kyoto"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := fx.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello from audio. I am in Kyoto", fx.intents.gotText)
}

func TestHandleChat_CoordinatesPersisted(t *testing.T) {
	fx := newHandlerFixture(t, &nlu.Intent{IsGreetingOrSmalltalk: true})
	fx.places.names["35.68,139.76"] = "Tokyo"

	w := fx.do(t, postJSON(t, "/api/chat", gin.H{
		"text":      "Hello",
		"latitude":  35.68,
		"longitude": 139.76,
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Tokyo", fx.store.CurrentCity(resp.SessionID))
}

func TestGetRawWeather(t *testing.T) {
	fx := newHandlerFixture(t, &nlu.Intent{})
	fx.forecaster.reports["Tokyo"] = reportFor("Tokyo")

	w := fx.do(t, httptest.NewRequest(http.MethodGet, "/api/weather", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = fx.do(t, httptest.NewRequest(http.MethodGet, "/api/weather?city=Atlantis", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = fx.do(t, httptest.NewRequest(http.MethodGet, "/api/weather?city=Tokyo", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Tokyo"`)
}

func TestDetectLocation(t *testing.T) {
	fx := newHandlerFixture(t, &nlu.Intent{})
	fx.places.names["35.68,139.76"] = "Tokyo"
	fx.geoip.city = "Osaka"

	w := fx.do(t, httptest.NewRequest(http.MethodGet, "/api/location?lat=35.68&lon=139.76", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"city":"Tokyo"`)

	w = fx.do(t, httptest.NewRequest(http.MethodGet, "/api/location?lat=0&lon=0", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = fx.do(t, httptest.NewRequest(http.MethodGet, "/api/location", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"city":"Osaka"`)
}

func TestConvertToSpeech(t *testing.T) {
	fx := newHandlerFixture(t, &nlu.Intent{})

	t.Run("single text", func(t *testing.T) {
		w := fx.do(t, postJSON(t, "/api/tts", gin.H{"text": "こんにちは"}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, "mp3:こんにちは", w.Body.String())
	})

	t.Run("both languages", func(t *testing.T) {
		w := fx.do(t, postJSON(t, "/api/tts", gin.H{
			"mode":         "both",
			"japaneseText": "こんにちは",
			"englishText":  "Hello",
		}))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool `json:"success"`
			Audio   struct {
				Japanese string `json:"japanese"`
				English  string `json:"english"`
			} `json:"audio"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Audio.Japanese)
		assert.NotEmpty(t, resp.Audio.English)
	})

	t.Run("missing parameters", func(t *testing.T) {
		w := fx.do(t, postJSON(t, "/api/tts", gin.H{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDebugSession(t *testing.T) {
	fx := newHandlerFixture(t, &nlu.Intent{})

	sessionID := fx.store.Create()
	fx.store.SetTheme(sessionID, "food")
	fx.store.SetCurrentCity(sessionID, "Osaka")
	fx.store.AppendExchange(sessionID, "hi", `{"englishResponse":"hello"}`)

	w := fx.do(t, httptest.NewRequest(http.MethodGet, "/api/debug/session/"+sessionID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Exists        bool   `json:"exists"`
		CurrentCity   string `json:"currentCity"`
		HistoryLength int    `json:"historyLength"`
		Theme         string `json:"theme"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Exists)
	assert.Equal(t, "Osaka", resp.CurrentCity)
	assert.Equal(t, 2, resp.HistoryLength)
	assert.Equal(t, "food", resp.Theme)

	w = fx.do(t, httptest.NewRequest(http.MethodGet, "/api/debug/session/missing", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exists":false`)
}
