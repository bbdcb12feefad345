package domain

import "context"

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// LLMConfig is the per-session chat endpoint configuration set by setup_llm.
// It lives only in memory and dies with the session.
type LLMConfig struct {
	Endpoint string // OpenAI-compatible chat completions URL
	APIKey   string // optional bearer token
	Model    string
}

// ChatMessage is a single message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single chat completion call against a caller-configured
// endpoint. The endpoint travels with the request because each session may
// point at a different provider.
type ChatRequest struct {
	Config      LLMConfig
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

// Usage reports token consumption as returned by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the completion returned by the provider.
type ChatResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// ChatProvider turns a ChatRequest into a completion. Implementations must
// honor context cancellation and map provider failures to domain sentinels.
type ChatProvider interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}
