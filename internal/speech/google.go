package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// GoogleClient implements Transcriber and Synthesizer against the Google
// Cloud Speech-to-Text and Text-to-Speech REST APIs, authenticated with an
// API key. Recognition is configured for Japanese with English as the
// alternative, matching the bilingual frontend.
type GoogleClient struct {
	apiKey     string
	sttBaseURL string
	ttsBaseURL string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewGoogleClient(apiKey, sttBaseURL, ttsBaseURL string, logger *zap.Logger) *GoogleClient {
	return &GoogleClient{
		apiKey:     apiKey,
		sttBaseURL: strings.TrimRight(sttBaseURL, "/"),
		ttsBaseURL: strings.TrimRight(ttsBaseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

var _ Transcriber = (*GoogleClient)(nil)
var _ Synthesizer = (*GoogleClient)(nil)

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding                   string   `json:"encoding"`
	SampleRateHertz            int      `json:"sampleRateHertz"`
	LanguageCode               string   `json:"languageCode"`
	AlternativeLanguageCodes   []string `json:"alternativeLanguageCodes"`
	EnableAutomaticPunctuation bool     `json:"enableAutomaticPunctuation"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe submits browser-recorded audio (WebM/Opus) for recognition and
// returns the joined transcript, or "" when nothing was recognized.
func (c *GoogleClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	reqBody := recognizeRequest{
		Config: recognizeConfig{
			Encoding:                   "WEBM_OPUS",
			SampleRateHertz:            48000,
			LanguageCode:               "ja-JP",
			AlternativeLanguageCodes:   []string{"en-US"},
			EnableAutomaticPunctuation: true,
		},
		Audio: recognizeAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	}

	var resp recognizeResponse
	if err := c.post(ctx, c.sttBaseURL+"/speech:recognize", reqBody, &resp); err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}
	return strings.Join(parts, "\n"), nil
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize converts text to MP3 audio. An empty language auto-detects from
// the script of the text.
func (c *GoogleClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required for speech synthesis")
	}

	var req synthesizeRequest
	req.Input.Text = text
	req.Voice.LanguageCode = languageCode(text, language)
	req.AudioConfig.AudioEncoding = "MP3"

	var resp synthesizeResponse
	if err := c.post(ctx, c.ttsBaseURL+"/text:synthesize", req, &resp); err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
	}
	return audio, nil
}

// SynthesizeBoth converts both language variants of a response.
func (c *GoogleClient) SynthesizeBoth(ctx context.Context, japaneseText, englishText string) ([]byte, []byte, error) {
	ja, err := c.Synthesize(ctx, japaneseText, LangJapanese)
	if err != nil {
		return nil, nil, err
	}
	en, err := c.Synthesize(ctx, englishText, LangEnglish)
	if err != nil {
		return nil, nil, err
	}
	return ja, en, nil
}

func (c *GoogleClient) post(ctx context.Context, url string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(respBody)
}

// languageCode maps the API language tag, or sniffs the script when the
// caller did not specify one.
func languageCode(text, language string) string {
	switch language {
	case LangJapanese:
		return "ja-JP"
	case LangEnglish:
		return "en-US"
	}
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return "ja-JP"
		}
	}
	return "en-US"
}
