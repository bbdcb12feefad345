package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func chatRequest(endpoint string) domain.ChatRequest {
	return domain.ChatRequest{
		Config: domain.LLMConfig{
			Endpoint: endpoint,
			APIKey:   "sk-test",
			Model:    "gpt-oss-20b",
		},
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "hello"},
		},
		Temperature: 0.7,
		MaxTokens:   100,
	}
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "gpt-oss-20b" {
			t.Errorf("model = %q", req.Model)
		}
		if req.MaxTokens != 100 {
			t.Errorf("max_tokens = %d", req.MaxTokens)
		}
		if req.Temperature == nil || *req.Temperature != 0.7 {
			t.Errorf("temperature = %v", req.Temperature)
		}

		json.NewEncoder(w).Encode(openaiResponse{
			Model: "gpt-oss-20b",
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "hi there"}},
			},
			Usage: openaiUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(time.Second, testLogger())

	resp, err := p.Complete(context.Background(), chatRequest(srv.URL+"/v1"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hi there" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{Model: "m"})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(time.Second, testLogger())

	_, err := p.Complete(context.Background(), chatRequest(srv.URL))
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}

func TestCompleteUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(time.Second, testLogger())

	_, err := p.Complete(context.Background(), chatRequest(srv.URL))
	if !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("err = %v, want ErrPrecondition", err)
	}
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(time.Second, testLogger())

	_, err := p.Complete(context.Background(), chatRequest(srv.URL))
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(20*time.Millisecond, testLogger())

	_, err := p.Complete(context.Background(), chatRequest(srv.URL))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestCompletionsURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8000/v1/chat/completions", "http://localhost:8000/v1/chat/completions"},
	}
	for _, tt := range tests {
		if got := completionsURL(tt.in); got != tt.want {
			t.Errorf("completionsURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
