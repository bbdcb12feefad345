package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/buyo-io/gpt-oss-mcp/internal/usecase/browse"
)

func (s *Server) registerBrowseTools() {
	s.mcp.AddTool(mcp.NewTool("open",
		mcp.WithDescription("Read lines from a stored document. Omit id to read the active document; opening another id makes it active."),
		mcp.WithNumber("id",
			mcp.Description("Document id to open (-1 or omitted: the active document)"),
		),
		mcp.WithNumber("loc",
			mcp.Description("First line to read (-1 or omitted: line 0)"),
		),
		mcp.WithNumber("num_lines",
			mcp.Description("Lines to read (-1 or omitted: to the end, subject to the page ceiling)"),
		),
	), s.handleOpen)

	s.mcp.AddTool(mcp.NewTool("find",
		mcp.WithDescription("Find the next line of the active document containing an exact, case-sensitive pattern. Pass the returned line as cursor to continue; no match past the cursor is a normal result."),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Exact substring to look for"),
		),
		mcp.WithNumber("cursor",
			mcp.Description("Line of the previous match; the scan resumes after it (-1 or omitted: from the start)"),
		),
	), s.handleFind)

	s.mcp.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Report the session's documents, active document, search cursor, and LLM configuration."),
	), s.handleGetStatus)
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetInt("id", -1)
	loc := request.GetInt("loc", -1)
	numLines := request.GetInt("num_lines", -1)

	ref := browse.ActiveDoc()
	if id != -1 {
		ref = browse.DocID(id)
	}
	if loc == -1 {
		loc = 0
	}
	size := browse.ToEnd()
	if numLines != -1 {
		size = browse.Lines(numLines)
	}

	page, err := s.engine.Open(ctx, s.sessionKey(ctx), ref, loc, size)
	if err != nil {
		return s.errResult("open", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Document %d, lines %d-%d of %d:\n\n",
		page.DocumentID, page.Loc, page.NextLoc, page.TotalLines)
	b.WriteString(formatPage(page))
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleFind(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := request.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cursor := request.GetInt("cursor", -1)

	from := browse.FromStart()
	if cursor != -1 {
		from = browse.AfterLine(cursor)
	}

	match, err := s.engine.Find(ctx, s.sessionKey(ctx), pattern, from)
	if err != nil {
		return s.errResult("find", err), nil
	}

	if !match.Found {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No match for %q past the cursor. The cursor is parked at the end; reopen the document to scan again.",
			pattern)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Match at line %d: %s\nPass cursor=%d to find the next match.",
		match.Line, match.Text, match.Line)), nil
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.engine.Status(ctx, s.sessionKey(ctx))
	if err != nil {
		return s.errResult("get_status", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", st.SessionKey)
	fmt.Fprintf(&b, "Open documents: %d\n", st.OpenDocuments)
	if st.ActiveDocument >= 0 {
		fmt.Fprintf(&b, "Active document: %d\n", st.ActiveDocument)
	} else {
		b.WriteString("Active document: none\n")
	}
	if st.CursorPattern != "" {
		fmt.Fprintf(&b, "Search cursor: %q at line %d\n", st.CursorPattern, st.CursorLine)
	} else {
		b.WriteString("Search cursor: none\n")
	}
	if st.LLMConfigured {
		fmt.Fprintf(&b, "LLM: configured (model %s)\n", st.LLMModel)
	} else {
		b.WriteString("LLM: not configured\n")
	}
	fmt.Fprintf(&b, "Server sessions: %d\n", s.engine.SessionCount())
	return mcp.NewToolResultText(b.String()), nil
}
