package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestAnswer_NotConfigured(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		apiKey  string
	}{
		{"no base url", "", "key"},
		{"no api key", "http://localhost", ""},
		{"neither", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.baseURL, tt.apiKey, "model")
			_, err := client.Answer(context.Background(), "rag", "question", "context")
			if !errors.Is(err, ErrNotConfigured) {
				t.Errorf("Answer() error = %v, want ErrNotConfigured", err)
			}
		})
	}
}

func TestAnswer(t *testing.T) {
	var gotReq ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("request path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: ChatMessage{Role: "assistant", Content: "  the answer  "}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	answer, err := client.Answer(context.Background(), "long_context", "what dose?", "CONTEXT BLOCKS")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "the answer" {
		t.Errorf("Answer() = %q, want trimmed model output", answer)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if gotReq.Temperature != 0 || gotReq.MaxTokens != 1200 {
		t.Errorf("request sampling = temp %v maxTokens %d", gotReq.Temperature, gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("request messages = %+v", gotReq.Messages)
	}
	user := gotReq.Messages[1].Content
	for _, want := range []string{"MODE: LONG_CONTEXT", "what dose?", "CONTEXT BLOCKS"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestAnswer_RetriesOnRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: ChatMessage{Content: "recovered"}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "model")
	client.Retry = fastRetry()

	answer, err := client.Answer(context.Background(), "rag", "q", "c")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "recovered" {
		t.Errorf("Answer() = %q", answer)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestAnswer_NoRetryOnClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "model")
	client.Retry = fastRetry()

	if _, err := client.Answer(context.Background(), "rag", "q", "c"); err == nil {
		t.Fatal("Answer() expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for non-retryable failure", attempts)
	}
}

func TestAnswer_ExhaustsRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "model")
	client.Retry = fastRetry()

	if _, err := client.Answer(context.Background(), "rag", "q", "c"); err == nil {
		t.Fatal("Answer() expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestEstimateTokens_Fast(t *testing.T) {
	client := NewClient("", "", "model")

	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 400), 100},
	}

	for _, tt := range tests {
		if got := client.EstimateTokens(context.Background(), tt.text, true); got != tt.want {
			t.Errorf("EstimateTokens(%d chars, fast) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

func TestEstimateTokens_SlowPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokenize" {
			t.Errorf("request path = %q, want /tokenize", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string][]int{"tokens": {1, 2, 3, 4, 5}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "model")
	if got := client.EstimateTokens(context.Background(), "anything at all", false); got != 5 {
		t.Errorf("EstimateTokens(slow) = %d, want 5", got)
	}
}

func TestEstimateTokens_SlowPathDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "model")
	text := strings.Repeat("x", 40)
	if got := client.EstimateTokens(context.Background(), text, false); got != 10 {
		t.Errorf("EstimateTokens(slow, failing server) = %d, want heuristic 10", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"bad status 429: slow down", true},
		{"RESOURCE_EXHAUSTED: quota", true},
		{"rate limit exceeded", true},
		{"bad status 503: unavailable", true},
		{"bad status 400: malformed", false},
		{"no choices returned", false},
	}

	for _, tt := range tests {
		if got := isRetryable(errors.New(tt.err)); got != tt.want {
			t.Errorf("isRetryable(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
