package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Chat defaults matching the tool schema documentation.
const (
	defaultChatTemperature = 0.7
	defaultChatMaxTokens   = 1000
)

func (s *Server) registerLLMTools() {
	s.mcp.AddTool(mcp.NewTool("setup_llm",
		mcp.WithDescription("Configure this session's LLM endpoint for chat_with_llm and search_and_analyze. Overwrites any previous configuration; no connection test is made."),
		mcp.WithString("endpoint",
			mcp.Required(),
			mcp.Description("OpenAI-compatible base URL, e.g. http://localhost:8000/v1"),
		),
		mcp.WithString("api_key",
			mcp.Description("API key (optional; local endpoints often need none)"),
		),
		mcp.WithString("model",
			mcp.Required(),
			mcp.Description("Model name to request"),
		),
	), s.handleSetupLLM)

	s.mcp.AddTool(mcp.NewTool("chat_with_llm",
		mcp.WithDescription("Send a message to this session's configured LLM."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("User message"),
		),
		mcp.WithString("system_prompt",
			mcp.Description("Optional system prompt"),
		),
		mcp.WithNumber("temperature",
			mcp.Description("Sampling temperature (default 0.7)"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Completion token limit (default 1000)"),
		),
	), s.handleChatWithLLM)

	s.mcp.AddTool(mcp.NewTool("search_and_analyze",
		mcp.WithDescription("Search the web, fetch the selected result into the session, and have the session's LLM analyze it. Without a configured LLM the document is still fetched and analysis is skipped."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithString("analysis_prompt",
			mcp.Description("What to ask the LLM about the document"),
		),
		mcp.WithNumber("result_index",
			mcp.Description("Index of the result to fetch (default 0)"),
		),
		mcp.WithNumber("topn",
			mcp.Description("Number of results to search (default 10, max 50)"),
		),
	), s.handleSearchAndAnalyze)
}

func (s *Server) handleSetupLLM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	endpoint, err := request.RequireString("endpoint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	model, err := request.RequireString("model")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	apiKey := request.GetString("api_key", "")

	if err := s.bridge.Setup(ctx, s.sessionKey(ctx), endpoint, apiKey, model); err != nil {
		return s.errResult("setup_llm", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"LLM configured: endpoint %s, model %s.", endpoint, model)), nil
}

func (s *Server) handleChatWithLLM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	systemPrompt := request.GetString("system_prompt", "")
	temperature := request.GetFloat("temperature", defaultChatTemperature)
	maxTokens := request.GetInt("max_tokens", defaultChatMaxTokens)

	resp, err := s.bridge.Chat(ctx, s.sessionKey(ctx), message, systemPrompt, temperature, maxTokens)
	if err != nil {
		return s.errResult("chat_with_llm", err), nil
	}

	return mcp.NewToolResultText(resp.Content), nil
}

func (s *Server) handleSearchAndAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	analysisPrompt := request.GetString("analysis_prompt", "")
	resultIndex := request.GetInt("result_index", 0)
	topn := request.GetInt("topn", 0)

	result, err := s.bridge.Analyze(ctx, s.sessionKey(ctx), query, analysisPrompt, resultIndex, topn)
	if err != nil {
		return s.errResult("search_and_analyze", err), nil
	}

	var b strings.Builder
	b.WriteString(formatOpened(result.Opened))
	b.WriteString("\n")
	if result.LLMUsed {
		fmt.Fprintf(&b, "Analysis (%s):\n%s\n", result.Model, result.Analysis)
	} else {
		b.WriteString("Analysis skipped: no LLM configured for this session. Call setup_llm to enable it.\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
