package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// FallbackText is returned whenever generation fails
const FallbackText = "Failed to generate a response due to an API issue."

const systemPrompt = "You are Mr. Caster Baldman, a Farcaster AI agent. Generate concise, professional replies (2-4 sentences) tailored to the prompt."

// Generator turns a prompt into reply text. It never fails; callers get
// FallbackText when the backing service is unavailable.
type Generator interface {
	Generate(ctx context.Context, prompt string) string
}

// OpenAIClient generates text with the OpenAI chat completions API
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *resty.Client
}

var _ Generator = (*OpenAIClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  resty.New().SetTimeout(30 * time.Second),
	}
}

// Generate returns the completion for prompt, or FallbackText on any failure
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) string {
	text, err := c.complete(ctx, prompt)
	if err != nil {
		logrus.Errorf("OpenAI API error: %v", err)
		return FallbackText
	}
	return text
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: prompt},
			},
			MaxTokens:   200,
			Temperature: 0.5,
		}).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode(), err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d", resp.StatusCode())
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no valid response from OpenAI")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}
