package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
)

const maxSearchBodySize = 512 * 1024 // 512KB

// searxngResponse models the relevant portion of the SearXNG JSON response.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// SearXNGBackend searches the web via a SearXNG instance and fetches result
// pages directly over HTTP.
type SearXNGBackend struct {
	client        *http.Client
	fetchClient   *http.Client
	instanceURL   string
	maxFetchBytes int64
	logger        *slog.Logger
}

// SearXNGConfig holds constructor settings for SearXNGBackend.
type SearXNGConfig struct {
	InstanceURL   string
	Timeout       time.Duration
	FetchTimeout  time.Duration
	MaxFetchBytes int
}

// NewSearXNGBackend creates a search backend backed by a SearXNG instance.
func NewSearXNGBackend(cfg SearXNGConfig, logger *slog.Logger) *SearXNGBackend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MaxFetchBytes <= 0 {
		cfg.MaxFetchBytes = 1024 * 1024
	}
	return &SearXNGBackend{
		client: &http.Client{Timeout: cfg.Timeout},
		fetchClient: &http.Client{
			Timeout: cfg.FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		instanceURL:   strings.TrimRight(cfg.InstanceURL, "/"),
		maxFetchBytes: int64(cfg.MaxFetchBytes),
		logger:        logger,
	}
}

func (b *SearXNGBackend) Name() string { return "searxng" }

func (b *SearXNGBackend) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.instanceURL+"/search", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("pageno", "1")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, mapTransportError("search request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search failed (HTTP %d): %s",
			domain.ErrProviderError, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var searxResp searxngResponse
	if err := json.Unmarshal(body, &searxResp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", domain.ErrProviderError, err)
	}

	results := make([]domain.SearchResult, 0, len(searxResp.Results))
	for _, r := range searxResp.Results {
		if len(results) >= count {
			break
		}
		results = append(results, domain.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}

	b.logger.Debug("searxng search completed", "query", query, "results", len(results))
	return results, nil
}

// Fetch retrieves the raw text of a result page. SearXNG has no content API,
// so the page is fetched directly with a size cap and redirect limit.
func (b *SearXNGBackend) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := b.fetchClient.Do(req)
	if err != nil {
		return "", mapTransportError("fetch request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, b.maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetch failed (HTTP %d) for %s",
			domain.ErrProviderError, resp.StatusCode, url)
	}

	b.logger.Debug("page fetched", "url", url, "bytes", len(body))
	return string(body), nil
}

// mapTransportError maps client-level failures to domain sentinels so that
// timeouts and connection errors classify correctly upstream.
func mapTransportError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %v", domain.ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrProviderError, op, err)
}
