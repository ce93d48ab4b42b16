package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// #region config

// OpenAIConfig configures the chat-completions client.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultOpenAIConfig returns the settings used when the environment does
// not override them.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		BaseURL:     "https://api.openai.com",
		APIKey:      apiKey,
		Model:       "gpt-4o-mini",
		Temperature: 0.25,
		MaxTokens:   1700,
		Timeout:     45 * time.Second,
	}
}

// #endregion config

// #region client

// OpenAIClient calls a chat-completions style endpoint and extracts a JSON
// object from the reply. It satisfies Generator.
type OpenAIClient struct {
	config OpenAIConfig
	http   *http.Client
}

// NewOpenAIClient builds a client from config. A zero Timeout falls back to
// the default; callers are still expected to bound each call with a context.
func NewOpenAIClient(config OpenAIConfig) *OpenAIClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &OpenAIClient{
		config: config,
		http:   &http.Client{Timeout: timeout},
	}
}

// #endregion client

// #region wire-types

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// #endregion wire-types

// #region generate

// Generate sends instructions+input as a system/user message pair and
// returns (parsed JSON or nil, raw text). Transport failures map to
// ErrUnavailable; replies without a parseable JSON object map to
// ErrMalformedOutput with the raw text still returned for logging.
func (c *OpenAIClient) Generate(ctx context.Context, instructions, input string) (json.RawMessage, string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: instructions},
			{Role: "user", Content: input},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body),
	)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return nil, string(raw), fmt.Errorf("%w: unexpected response shape", ErrMalformedOutput)
	}

	text := parsed.Choices[0].Message.Content
	structured := ExtractJSON(text)
	if structured == nil {
		return nil, text, fmt.Errorf("%w: no JSON object in reply", ErrMalformedOutput)
	}
	return structured, text, nil
}

// #endregion generate
