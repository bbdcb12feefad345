package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
)

func TestExaSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "secret" {
			t.Errorf("x-api-key = %q, want secret", got)
		}
		var req exaSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Query != "golang" || req.NumResults != 3 {
			t.Errorf("unexpected request body: %+v", req)
		}
		json.NewEncoder(w).Encode(exaResponse{Results: []exaResult{
			{Title: "Go", URL: "https://go.dev", Snippet: "The Go language"},
		}})
	}))
	defer srv.Close()

	b := NewExaBackend(ExaConfig{BaseURL: srv.URL, APIKey: "secret"}, testLogger())

	results, err := b.Search(context.Background(), "golang", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].URL != "https://go.dev" {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestExaFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contents" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req exaContentsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if len(req.URLs) != 1 || req.URLs[0] != "https://go.dev" || !req.Text {
			t.Errorf("unexpected request body: %+v", req)
		}
		json.NewEncoder(w).Encode(exaResponse{Results: []exaResult{
			{URL: "https://go.dev", Text: "page body"},
		}})
	}))
	defer srv.Close()

	b := NewExaBackend(ExaConfig{BaseURL: srv.URL, APIKey: "secret"}, testLogger())

	content, err := b.Fetch(context.Background(), "https://go.dev")
	if err != nil {
		t.Fatal(err)
	}
	if content != "page body" {
		t.Errorf("content = %q, want %q", content, "page body")
	}
}

func TestExaFetchEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(exaResponse{})
	}))
	defer srv.Close()

	b := NewExaBackend(ExaConfig{BaseURL: srv.URL, APIKey: "secret"}, testLogger())

	_, err := b.Fetch(context.Background(), "https://go.dev")
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}

func TestExaUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := NewExaBackend(ExaConfig{BaseURL: srv.URL, APIKey: "wrong"}, testLogger())

	_, err := b.Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}
