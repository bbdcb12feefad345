package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
)

const defaultExaBaseURL = "https://api.exa.ai"

// ExaBackend talks to the Exa search API. Unlike SearXNG, Exa serves page
// content through its own /contents endpoint, so Fetch never hits the
// target site directly.
type ExaBackend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// ExaConfig holds constructor settings for ExaBackend.
type ExaConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewExaBackend creates a search backend backed by the Exa API.
func NewExaBackend(cfg ExaConfig, logger *slog.Logger) *ExaBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultExaBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &ExaBackend{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

func (b *ExaBackend) Name() string { return "exa" }

type exaSearchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
}

type exaContentsRequest struct {
	URLs []string `json:"urls"`
	Text bool     `json:"text"`
}

type exaResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Text    string `json:"text,omitempty"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

func (b *ExaBackend) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	var out exaResponse
	err := b.post(ctx, "/search", exaSearchRequest{Query: query, NumResults: count}, &out)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		if len(results) >= count {
			break
		}
		results = append(results, domain.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
		})
	}

	b.logger.Debug("exa search completed", "query", query, "results", len(results))
	return results, nil
}

func (b *ExaBackend) Fetch(ctx context.Context, url string) (string, error) {
	var out exaResponse
	err := b.post(ctx, "/contents", exaContentsRequest{URLs: []string{url}, Text: true}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Results) == 0 {
		return "", fmt.Errorf("%w: no content returned for %s", domain.ErrProviderError, url)
	}

	b.logger.Debug("exa content fetched", "url", url, "bytes", len(out.Results[0].Text))
	return out.Results[0].Text, nil
}

func (b *ExaBackend) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return mapTransportError("exa request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: exa %s failed (HTTP %d): %s",
			domain.ErrProviderError, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: parse response: %v", domain.ErrProviderError, err)
	}
	return nil
}
