package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
)

func (s *Server) registerSearchTools() {
	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Search the web and return a numbered list of results. Indices refer to this call only."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("topn",
			mcp.Description("Number of results to return (default 10, max 50)"),
		),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("search_and_get_content",
		mcp.WithDescription("Search the web, fetch the selected result, and store it as the session's active document. Returns the result list and the document's first page."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("result_index",
			mcp.Description("Index of the result to fetch (default 0)"),
		),
		mcp.WithNumber("topn",
			mcp.Description("Number of results to search (default 10, max 50)"),
		),
	), s.handleSearchAndGetContent)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topn := request.GetInt("topn", 0)

	results, err := s.engine.Search(ctx, s.sessionKey(ctx), query, topn)
	if err != nil {
		return s.errResult("search", err), nil
	}

	return mcp.NewToolResultText(formatResults(query, results)), nil
}

func (s *Server) handleSearchAndGetContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resultIndex := request.GetInt("result_index", 0)
	topn := request.GetInt("topn", 0)

	opened, err := s.engine.OpenResult(ctx, s.sessionKey(ctx), query, resultIndex, topn)
	if err != nil {
		return s.errResult("search_and_get_content", err), nil
	}

	var b strings.Builder
	b.WriteString(formatResults(query, opened.Results))
	b.WriteString("\n")
	b.WriteString(formatOpened(opened))
	return mcp.NewToolResultText(b.String()), nil
}

func formatResults(query string, results []domain.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Results for %q:\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\n    %s\n", i, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "    %s\n", r.Snippet)
		}
	}
	return b.String()
}

func formatOpened(opened *domain.OpenedContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Opened document %d: %s (%s), %d lines\n\n",
		opened.DocumentID, opened.Title, opened.URL, opened.LineCount)
	b.WriteString(formatPage(&opened.Page))
	return b.String()
}

func formatPage(page *domain.Page) string {
	var b strings.Builder
	for i, line := range page.Lines {
		fmt.Fprintf(&b, "L%d: %s\n", page.Loc+i, line)
	}
	if page.EOF {
		b.WriteString("(end of document)\n")
	} else {
		fmt.Fprintf(&b, "(%d more lines; continue with loc=%d)\n",
			page.TotalLines-page.NextLoc, page.NextLoc)
	}
	return b.String()
}
