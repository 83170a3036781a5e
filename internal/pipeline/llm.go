package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// LLMClient talks to any OpenAI-compatible chat-completions endpoint
// (OpenAI, Qwen, GLM, DeepSeek, ...), mirroring original_source's generic
// openai_client.rs. Only the single-turn, non-streaming call the two
// pipelines need is implemented.
type LLMClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewLLMClient builds a client for one endpoint/model pair. An empty
// endpoint defaults to OpenAI's own API, matching the original's behavior
// when a preset leaves it unset.
func NewLLMClient(endpoint, apiKey, model string) *LLMClient {
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}
	return &LLMClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// ChatOptions tunes one chat-completions call.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// ForPolishing matches the original's conservative, low-temperature preset
// for transcript cleanup: the model should correct, not rewrite.
func ForPolishing() ChatOptions {
	return ChatOptions{Temperature: 0.2, MaxTokens: 2048}
}

// ForSmartCommand matches the original's looser preset for assistant-mode
// instructions, which may ask for creative or open-ended output.
func ForSmartCommand() ChatOptions {
	return ChatOptions{Temperature: 0.7, MaxTokens: 4096}
}

// ChatSimple sends one system+user turn and returns the assistant's reply
// text, trimmed of surrounding whitespace.
func (c *LLMClient) ChatSimple(ctx context.Context, systemPrompt, userMessage string, opts ChatOptions) (string, error) {
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMessage},
		},
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: status %d", resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
