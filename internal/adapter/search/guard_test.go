package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
	"github.com/buyo-io/gpt-oss-mcp/internal/infra/config"
)

// fakeBackend is a scriptable Backend for guard tests.
type fakeBackend struct {
	searchErr error
	fetchErr  error
	calls     int
}

func (f *fakeBackend) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	f.calls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return []domain.SearchResult{{Title: "t", URL: "u", Snippet: "s"}}, nil
}

func (f *fakeBackend) Fetch(ctx context.Context, url string) (string, error) {
	f.calls++
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return "content", nil
}

func (f *fakeBackend) Name() string { return "fake" }

func guardConfig(maxFailures uint32) config.SearchConfig {
	return config.SearchConfig{
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:     true,
			MaxFailures: maxFailures,
			Timeout:     time.Minute,
		},
	}
}

func TestGuardedPassThrough(t *testing.T) {
	inner := &fakeBackend{}
	g := NewGuardedBackend(inner, guardConfig(3), testLogger())

	results, err := g.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	content, err := g.Fetch(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}
	if content != "content" {
		t.Errorf("content = %q", content)
	}
	if g.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", g.State())
	}
}

func TestGuardedCircuitOpensAfterFailures(t *testing.T) {
	inner := &fakeBackend{searchErr: errors.New("provider down")}
	g := NewGuardedBackend(inner, guardConfig(2), testLogger())

	for i := 0; i < 2; i++ {
		if _, err := g.Search(context.Background(), "q", 5); err == nil {
			t.Fatal("expected failure")
		}
	}
	if g.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", g.State())
	}

	callsBefore := inner.calls
	_, err := g.Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
	if inner.calls != callsBefore {
		t.Error("open circuit should not reach the inner backend")
	}
}

func TestGuardedBreakerDisabled(t *testing.T) {
	inner := &fakeBackend{searchErr: errors.New("provider down")}
	g := NewGuardedBackend(inner, config.SearchConfig{}, testLogger())

	for i := 0; i < 10; i++ {
		g.Search(context.Background(), "q", 5)
	}
	if inner.calls != 10 {
		t.Errorf("calls = %d, want 10 (no breaker)", inner.calls)
	}
	if g.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", g.State())
	}
}

func TestGuardedRateLimitCancellation(t *testing.T) {
	inner := &fakeBackend{}
	cfg := config.SearchConfig{RateLimit: 0.001, RateBurst: 1}
	g := NewGuardedBackend(inner, cfg, testLogger())

	// First call consumes the burst token.
	if _, err := g.Search(context.Background(), "q", 5); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := g.Search(ctx, "q", 5)
	if err == nil {
		t.Fatal("expected rate limit wait to fail under short deadline")
	}
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}
