package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/aetheria/aetheria/internal/session"
	"github.com/aetheria/aetheria/internal/weather"
)

// GeminiClient implements IntentExtractor and ResponseGenerator against
// Gemini's OpenAI-compatible endpoint. Pointing BaseURL elsewhere (an OpenAI
// deployment, a local test server) needs no code change.
type GeminiClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiClient(baseURL, apiKey, model string, logger *zap.Logger) *GeminiClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")

	return &GeminiClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

var _ IntentExtractor = (*GeminiClient)(nil)
var _ ResponseGenerator = (*GeminiClient)(nil)

// ExtractIntent analyzes one user message in conversation context. A
// response that cannot be parsed as an intent is fatal to the request.
func (c *GeminiClient) ExtractIntent(ctx context.Context, text string, history []session.Turn) (*Intent, error) {
	raw, err := c.complete(ctx, intentPrompt(text, historyContext(history)))
	if err != nil {
		return nil, err
	}

	var intent Intent
	if err := json.Unmarshal(stripCodeFence(raw), &intent); err != nil {
		c.logger.Error("Intent response was not valid JSON",
			zap.String("raw", truncate(raw, 500)), zap.Error(err))
		return nil, fmt.Errorf("failed to parse intent response: %w", err)
	}
	return &intent, nil
}

// GenerateFinalResponse produces the themed, weather-aware reply. Malformed
// model output degrades to the fixed fallback.
func (c *GeminiClient) GenerateFinalResponse(ctx context.Context, text string, intent *Intent, report *weather.Report, theme string) (*Reply, error) {
	raw, err := c.complete(ctx, finalResponsePrompt(text, intent, report, theme))
	if err != nil {
		return nil, err
	}
	return c.parseReply(raw), nil
}

// GenerateGeneralResponse produces a conversational, non-weather reply.
func (c *GeminiClient) GenerateGeneralResponse(ctx context.Context, text string, history []session.Turn, theme string) (*Reply, error) {
	raw, err := c.complete(ctx, generalResponsePrompt(text, history, theme))
	if err != nil {
		return nil, err
	}
	return c.parseReply(raw), nil
}

func (c *GeminiClient) parseReply(raw string) *Reply {
	var reply Reply
	if err := json.Unmarshal(stripCodeFence(raw), &reply); err != nil {
		c.logger.Warn("Reply was not valid JSON, using fallback",
			zap.String("raw", truncate(raw, 500)), zap.Error(err))
		return FallbackReply()
	}
	return &reply
}

func (c *GeminiClient) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// stripCodeFence tolerates models wrapping JSON in markdown fences despite
// the JSON response format.
func stripCodeFence(raw string) []byte {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return []byte(strings.TrimSpace(s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
