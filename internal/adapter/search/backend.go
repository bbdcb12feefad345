package search

import (
	"context"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
)

// Backend abstracts the external search/content provider.
type Backend interface {
	// Search performs a web search and returns up to count ranked results.
	Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error)
	// Fetch retrieves the full text content of a result URL.
	Fetch(ctx context.Context, url string) (string, error)
	// Name returns the backend identifier (e.g. "searxng").
	Name() string
}
