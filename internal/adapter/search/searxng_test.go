package search

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSearXNGSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "golang" {
			t.Errorf("query = %q, want %q", got, "golang")
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q, want json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"title":"Go","url":"https://go.dev","content":"The Go language"},
			{"title":"Go Blog","url":"https://go.dev/blog","content":"News"},
			{"title":"Extra","url":"https://example.com","content":"Beyond count"}
		]}`))
	}))
	defer srv.Close()

	b := NewSearXNGBackend(SearXNGConfig{InstanceURL: srv.URL}, testLogger())

	results, err := b.Search(context.Background(), "golang", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Go" || results[0].URL != "https://go.dev" || results[0].Snippet != "The Go language" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestSearXNGSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := NewSearXNGBackend(SearXNGConfig{InstanceURL: srv.URL}, testLogger())

	_, err := b.Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}

func TestSearXNGSearchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	b := NewSearXNGBackend(SearXNGConfig{InstanceURL: srv.URL}, testLogger())

	_, err := b.Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}

func TestSearXNGSearchConnectionRefused(t *testing.T) {
	b := NewSearXNGBackend(SearXNGConfig{InstanceURL: "http://127.0.0.1:1"}, testLogger())

	_, err := b.Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}

func TestSearXNGFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("line one\nline two\n"))
	}))
	defer srv.Close()

	b := NewSearXNGBackend(SearXNGConfig{InstanceURL: "http://unused"}, testLogger())

	content, err := b.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if content != "line one\nline two\n" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestSearXNGFetchTruncatesLargeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	b := NewSearXNGBackend(SearXNGConfig{InstanceURL: "http://unused", MaxFetchBytes: 100}, testLogger())

	content, err := b.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(content) != 100 {
		t.Errorf("got %d bytes, want 100", len(content))
	}
}

func TestSearXNGFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	b := NewSearXNGBackend(SearXNGConfig{InstanceURL: "http://unused"}, testLogger())

	_, err := b.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}

func TestSearXNGFetchRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	b := NewSearXNGBackend(SearXNGConfig{InstanceURL: "http://unused"}, testLogger())

	_, err := b.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}
