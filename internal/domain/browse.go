package domain

// SearchResult is one entry in a search provider's ranked result list.
// Indices into the list are call-scoped: they identify a result only within
// the search call that produced them, never a stored document.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Page is a line-addressed slice of a stored document.
type Page struct {
	DocumentID int      `json:"document_id"`
	Loc        int      `json:"loc"`   // first line of this page
	Lines      []string `json:"lines"` // empty when Loc == total (clean EOF)
	NextLoc    int      `json:"next_loc"`
	EOF        bool     `json:"eof"` // no lines remain after this page
	TotalLines int      `json:"total_lines"`
}

// OpenedContent is the result of fetching a search result into the session's
// document store: the new document's identity plus its first page, alongside
// the search results the selection was made from.
type OpenedContent struct {
	DocumentID int            `json:"document_id"`
	Title      string         `json:"title"`
	URL        string         `json:"url"`
	LineCount  int            `json:"line_count"`
	Page       Page           `json:"page"`
	Results    []SearchResult `json:"results"`
}

// Match is the outcome of a pattern search within the active document.
// A miss is a normal result, not an error: Found is false and the cursor
// parks at end-of-document so repeated calls stay deterministic.
type Match struct {
	Pattern string `json:"pattern"`
	Found   bool   `json:"found"`
	Line    int    `json:"line"`
	Text    string `json:"text"`
}

// Status is a read-only snapshot of one session.
type Status struct {
	SessionKey     string `json:"session_key"`
	OpenDocuments  int    `json:"open_documents"`
	ActiveDocument int    `json:"active_document"` // -1 before any open
	CursorPattern  string `json:"cursor_pattern,omitempty"`
	CursorLine     int    `json:"cursor_line"` // -1 when no cursor
	LLMConfigured  bool   `json:"llm_configured"`
	LLMModel       string `json:"llm_model,omitempty"`
}
