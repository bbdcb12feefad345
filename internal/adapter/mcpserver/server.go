// Package mcpserver wires the browsing engine and LLM bridge into MCP tools.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
	"github.com/buyo-io/gpt-oss-mcp/internal/usecase/browse"
)

const serverInstructions = `Web search and document browsing tools with session state.

Use "search" for quick result lists and "search_and_get_content" to fetch a
result into the session's document store. Stored documents are line
addressed: scroll them with "open" (loc + num_lines) and scan them with
"find", which resumes after the returned match line on repeated calls.
Result indices like [0] refer to the most recent search call only.

Configure a per-session LLM with "setup_llm" to enable "chat_with_llm" and
the analysis step of "search_and_analyze".`

// Server exposes the browsing engine and LLM bridge as MCP tools.
type Server struct {
	mcp    *server.MCPServer
	engine *browse.Engine
	bridge *browse.Bridge
	logger *slog.Logger

	// fallbackKey serves transports that carry no client session identity;
	// all such callers share one session for the life of the process.
	fallbackKey string
}

// New creates the MCP server and registers all tools.
func New(name, version string, engine *browse.Engine, bridge *browse.Bridge, registry *browse.Registry, logger *slog.Logger) *Server {
	s := &Server{
		engine:      engine,
		bridge:      bridge,
		logger:      logger,
		fallbackKey: registry.NewKey(),
	}

	s.mcp = server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
	)

	s.registerSearchTools()
	s.registerBrowseTools()
	s.registerLLMTools()

	return s
}

// MCP returns the underlying MCP server for serving.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves MCP over stdin/stdout. Blocks until the client closes
// the stream.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// NewHTTPServer returns a streamable-HTTP server for the given handler.
func (s *Server) NewHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcp)
}

// sessionKey derives the caller's session identity from the MCP client
// session, falling back to the shared process-wide key.
func (s *Server) sessionKey(ctx context.Context) string {
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		if id := cs.SessionID(); id != "" {
			return id
		}
	}
	return s.fallbackKey
}

// errResult turns a domain error into an MCP error result carrying the
// machine-parseable code.
func (s *Server) errResult(op string, err error) *mcp.CallToolResult {
	s.logger.Warn("tool call failed", "tool", op, "code", domain.ErrorCodeOf(err), "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", domain.ErrorCodeOf(err), err))
}
