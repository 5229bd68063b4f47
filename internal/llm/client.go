package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no answer endpoint is configured. Callers
// are expected to fall back to extractive answering.
var ErrNotConfigured = errors.New("answer service is not configured, set LLM_BASE_URL and LLM_API_KEY to enable generated answers")

const systemPrompt = "You are a Clinical Policy Verification Engine. " +
	"Identify conflicts, gaps, and compliance risks using only provided context. " +
	"If evidence is insufficient, state that explicitly. " +
	"Cite every key claim in [doc_name|page|paragraph] format."

// RetryPolicy bounds the backoff loop around answer requests.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy mirrors the rate-limit windows of typical hosted models.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 20 * time.Second,
	MaxDelay:     75 * time.Second,
	Multiplier:   2.0,
}

// Client is a client for an OpenAI-compatible chat completions API used as
// the answer-generation collaborator.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	Retry   RetryPolicy
	client  *http.Client
}

// NewClient creates a new answer service client.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Retry:   DefaultRetryPolicy,
		client:  http.DefaultClient,
	}
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

// Answer generates an answer for question against the assembled context.
// Returns ErrNotConfigured when no endpoint is set so callers can substitute
// the extractive fallback.
func (c *Client) Answer(ctx context.Context, mode, question, contextText string) (string, error) {
	if c.BaseURL == "" || c.APIKey == "" {
		return "", ErrNotConfigured
	}

	prompt := fmt.Sprintf(
		"MODE: %s\nQUESTION:\n%s\n\nDOCUMENT CONTEXT:\n%s\n\n"+
			"Return: (1) finding summary, (2) conflict risk, (3) remediation pointers.",
		strings.ToUpper(mode), question, contextText,
	)

	payload := ChatRequest{
		Model: c.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   1200,
	}

	var answer string
	err := c.withBackoff(ctx, func() error {
		text, err := c.chat(ctx, payload)
		if err != nil {
			return err
		}
		answer = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("answer request failed: %w", err)
	}
	return answer, nil
}

// EstimateTokens counts tokens in text. The fast path is a cheap one-token-
// per-four-characters heuristic; the slow path asks the server's tokenize
// endpoint and degrades to the heuristic on any failure.
func (c *Client) EstimateTokens(ctx context.Context, text string, fast bool) int {
	estimate := len(text) / 4
	if estimate < 1 {
		estimate = 1
	}
	if fast || c.BaseURL == "" {
		return estimate
	}

	body, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return estimate
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/tokenize", bytes.NewReader(body))
	if err != nil {
		return estimate
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return estimate
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return estimate
	}

	var tokenized struct {
		Tokens []int `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenized); err != nil {
		return estimate
	}
	if len(tokenized.Tokens) == 0 {
		return estimate
	}
	return len(tokenized.Tokens)
}

// chat sends one chat completion request.
func (c *Client) chat(ctx context.Context, payload ChatRequest) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	answer := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("model returned an empty response")
	}
	return answer, nil
}

// withBackoff retries fn on retryable failures with exponential backoff.
func (c *Client) withBackoff(ctx context.Context, fn func() error) error {
	maxAttempts := c.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := c.Retry.InitialDelay
	multiplier := c.Retry.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt >= maxAttempts || !isRetryable(lastErr) {
			return lastErr
		}

		if delay <= 0 {
			delay = time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * multiplier)
		if c.Retry.MaxDelay > 0 && delay > c.Retry.MaxDelay {
			delay = c.Retry.MaxDelay
		}
	}
	return lastErr
}

// isRetryable reports whether an error looks like a transient rate-limit or
// availability failure.
func isRetryable(err error) bool {
	text := strings.ToLower(err.Error())
	signals := []string{
		"429",
		"resource_exhausted",
		"rate limit",
		"rate-limit",
		"quota",
		"too many requests",
		"temporarily unavailable",
		"deadline exceeded",
		"bad status 500",
		"bad status 502",
		"bad status 503",
	}
	for _, signal := range signals {
		if strings.Contains(text, signal) {
			return true
		}
	}
	return false
}
