package browse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
	"github.com/buyo-io/gpt-oss-mcp/internal/infra/tracer"
)

// BridgeConfig holds the LLM call limits.
type BridgeConfig struct {
	Timeout         time.Duration
	MaxContextBytes int
}

// Bridge connects sessions to their individually configured LLM endpoints.
// Setup stores a config, Chat forwards a conversation, and Analyze combines
// a document open with a chat over the document's text.
type Bridge struct {
	registry *Registry
	engine   *Engine
	provider domain.ChatProvider
	cfg      BridgeConfig
	logger   *slog.Logger
}

// NewBridge creates the LLM bridge.
func NewBridge(registry *Registry, engine *Engine, provider domain.ChatProvider, cfg BridgeConfig, logger *slog.Logger) *Bridge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxContextBytes <= 0 {
		cfg.MaxContextBytes = 64 * 1024
	}
	return &Bridge{
		registry: registry,
		engine:   engine,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// Setup stores the session's LLM configuration, replacing any previous one.
// Only the structure is validated; no network call is made, so a bad key or
// unreachable endpoint surfaces on first use.
func (b *Bridge) Setup(ctx context.Context, key, endpoint, apiKey, model string) error {
	if strings.TrimSpace(endpoint) == "" {
		return domain.NewDomainError("bridge.setup", domain.ErrInvalidInput, "endpoint must not be empty")
	}
	if strings.TrimSpace(model) == "" {
		return domain.NewDomainError("bridge.setup", domain.ErrInvalidInput, "model must not be empty")
	}

	unlock, err := b.registry.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	sess, err := b.registry.Resolve(key)
	if err != nil {
		return err
	}
	sess.llm = &domain.LLMConfig{Endpoint: endpoint, APIKey: apiKey, Model: model}

	b.logger.Info("llm configured", "session_key", key, "endpoint", endpoint, "model", model)
	return nil
}

// Chat forwards a single message to the session's configured LLM. The call
// runs with the session lock released; only the config read holds it.
func (b *Bridge) Chat(ctx context.Context, key, message, systemPrompt string, temperature float64, maxTokens int) (*domain.ChatResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "bridge.chat",
		trace.WithAttributes(tracer.StringAttr("session_key", key)),
	)
	defer span.End()

	if strings.TrimSpace(message) == "" {
		err := domain.NewDomainError("bridge.chat", domain.ErrInvalidInput, "message must not be empty")
		tracer.RecordError(span, err)
		return nil, err
	}

	cfg, err := b.sessionConfig(ctx, key)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var messages []domain.ChatMessage
	if systemPrompt != "" {
		messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: message})

	resp, err := b.complete(ctx, domain.ChatRequest{
		Config:      *cfg,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	return resp, nil
}

// Analysis is the outcome of Analyze: the opened document plus, when the
// session has an LLM configured, the model's reading of it.
type Analysis struct {
	Opened   *domain.OpenedContent `json:"opened"`
	LLMUsed  bool                  `json:"llm_used"`
	Analysis string                `json:"analysis,omitempty"`
	Model    string                `json:"model,omitempty"`
}

// analyzeMaxTokens bounds the analysis completion.
const analyzeMaxTokens = 2000

// Analyze opens a search result and asks the session's LLM to analyze its
// text. A failure in the document step aborts the whole call; a missing
// LLM config does not — the document is still returned with analysis
// marked as skipped.
func (b *Bridge) Analyze(ctx context.Context, key, query, analysisPrompt string, resultIndex, topn int) (*Analysis, error) {
	ctx, span := tracer.StartSpan(ctx, "bridge.analyze",
		trace.WithAttributes(tracer.StringAttr("session_key", key)),
	)
	defer span.End()

	opened, err := b.engine.OpenResult(ctx, key, query, resultIndex, topn)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	cfg, err := b.sessionConfig(ctx, key)
	if err != nil {
		if domain.ErrorCodeOf(err) == domain.CodePrecondition {
			tracer.SetOK(span)
			return &Analysis{Opened: opened, LLMUsed: false}, nil
		}
		tracer.RecordError(span, err)
		return nil, err
	}

	if analysisPrompt == "" {
		analysisPrompt = "Summarize the key points of this document."
	}

	prompt := fmt.Sprintf("%s\n\nDocument: %s (%s)\n\n%s",
		analysisPrompt, opened.Title, opened.URL, b.documentPrefix(opened))

	resp, err := b.complete(ctx, domain.ChatRequest{
		Config: *cfg,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: prompt},
		},
		MaxTokens: analyzeMaxTokens,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	return &Analysis{
		Opened:   opened,
		LLMUsed:  true,
		Analysis: resp.Content,
		Model:    resp.Model,
	}, nil
}

// sessionConfig reads the session's LLM config under the session lock.
func (b *Bridge) sessionConfig(ctx context.Context, key string) (*domain.LLMConfig, error) {
	unlock, err := b.registry.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := b.registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	if sess.llm == nil {
		return nil, domain.NewDomainError("bridge.chat", domain.ErrPrecondition,
			"no LLM configured; call setup_llm first")
	}
	cfg := *sess.llm
	return &cfg, nil
}

func (b *Bridge) complete(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	resp, err := b.provider.Complete(ctx, req)
	if err != nil {
		return nil, domain.WrapOp("bridge.chat", err)
	}
	return resp, nil
}

// documentPrefix joins the opened page's lines and bounds the text sent to
// the model.
func (b *Bridge) documentPrefix(opened *domain.OpenedContent) string {
	text := strings.Join(opened.Page.Lines, "\n")
	if len(text) > b.cfg.MaxContextBytes {
		text = text[:b.cfg.MaxContextBytes]
	}
	return text
}
