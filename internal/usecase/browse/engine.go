package browse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/buyo-io/gpt-oss-mcp/internal/adapter/search"
	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
	"github.com/buyo-io/gpt-oss-mcp/internal/infra/tracer"
)

// EngineConfig holds the browsing limits and provider timeouts.
type EngineConfig struct {
	DefaultTopN   int
	MaxTopN       int
	MaxPageLines  int
	SearchTimeout time.Duration
	FetchTimeout  time.Duration
}

// Engine implements the browsing operations over per-session document
// stores. Session mutation happens under the per-session lock; provider
// network calls are made with the lock released so one slow fetch cannot
// stall the caller's other sessions or a Status call.
type Engine struct {
	registry *Registry
	backend  search.Backend
	cfg      EngineConfig
	logger   *slog.Logger
}

// NewEngine creates the browsing engine.
func NewEngine(registry *Registry, backend search.Backend, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = 10
	}
	if cfg.MaxTopN <= 0 {
		cfg.MaxTopN = 50
	}
	if cfg.MaxPageLines <= 0 {
		cfg.MaxPageLines = 200
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 15 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Engine{
		registry: registry,
		backend:  backend,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search runs a web search on behalf of the session. Results are
// call-scoped: nothing is stored beyond the session's last-access time.
// topn 0 means the configured default.
func (e *Engine) Search(ctx context.Context, key, query string, topn int) ([]domain.SearchResult, error) {
	ctx, span := tracer.StartSpan(ctx, "engine.search",
		trace.WithAttributes(tracer.StringAttr("session_key", key)),
	)
	defer span.End()

	topn, err := e.resolveTopN(topn)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		err := domain.NewDomainError("engine.search", domain.ErrInvalidInput, "query must not be empty")
		tracer.RecordError(span, err)
		return nil, err
	}

	if _, err := e.registry.Resolve(key); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	results, err := e.doSearch(ctx, query, topn)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(tracer.IntAttr("results", len(results)))
	tracer.SetOK(span)
	e.logger.Debug("search completed", "session_key", key, "query", query, "results", len(results))
	return results, nil
}

// OpenResult searches, picks the result at resultIndex, fetches its content,
// and materializes it as the session's new active document. The response
// carries both the result list and the document's first page.
func (e *Engine) OpenResult(ctx context.Context, key, query string, resultIndex, topn int) (*domain.OpenedContent, error) {
	ctx, span := tracer.StartSpan(ctx, "engine.open_result",
		trace.WithAttributes(
			tracer.StringAttr("session_key", key),
			tracer.IntAttr("result_index", resultIndex),
		),
	)
	defer span.End()

	topn, err := e.resolveTopN(topn)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		err := domain.NewDomainError("engine.open_result", domain.ErrInvalidInput, "query must not be empty")
		tracer.RecordError(span, err)
		return nil, err
	}
	if resultIndex < 0 {
		err := domain.NewDomainError("engine.open_result", domain.ErrInvalidInput,
			fmt.Sprintf("result index must be non-negative, got %d", resultIndex))
		tracer.RecordError(span, err)
		return nil, err
	}

	if _, err := e.registry.Resolve(key); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	// Provider calls run without the session lock held.
	results, err := e.doSearch(ctx, query, topn)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if resultIndex >= len(results) {
		err := domain.NewDomainError("engine.open_result", domain.ErrIndexOutOfRange,
			fmt.Sprintf("result index %d, search returned %d results", resultIndex, len(results)))
		tracer.RecordError(span, err)
		return nil, err
	}
	picked := results[resultIndex]

	text, err := e.doFetch(ctx, picked.URL)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	unlock, err := e.registry.Lock(ctx, key)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	sess, err := e.registry.Resolve(key)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	doc := sess.addDocument(picked.Title, picked.URL, text)

	page, err := doc.Page(0, ToEnd(), e.cfg.MaxPageLines)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(tracer.IntAttr("document_id", doc.ID))
	tracer.SetOK(span)
	e.logger.Info("document opened",
		"session_key", key,
		"document_id", doc.ID,
		"url", doc.URL,
		"lines", doc.LineCount(),
	)

	return &domain.OpenedContent{
		DocumentID: doc.ID,
		Title:      doc.Title,
		URL:        doc.URL,
		LineCount:  doc.LineCount(),
		Page:       *page,
		Results:    results,
	}, nil
}

// DocRef selects which stored document an Open call addresses. The zero
// value is invalid; construct with ActiveDoc or DocID.
type DocRef struct {
	id     int
	active bool
}

// ActiveDoc addresses the session's active document.
func ActiveDoc() DocRef { return DocRef{active: true} }

// DocID addresses a stored document by ID.
func DocID(id int) DocRef { return DocRef{id: id} }

// Open pages lines out of a stored document. Opening by explicit ID makes
// that document active (dropping the cursor if it changed); opening the
// active document leaves the cursor alone.
func (e *Engine) Open(ctx context.Context, key string, ref DocRef, loc int, size PageSize) (*domain.Page, error) {
	ctx, span := tracer.StartSpan(ctx, "engine.open",
		trace.WithAttributes(
			tracer.StringAttr("session_key", key),
			tracer.IntAttr("loc", loc),
		),
	)
	defer span.End()

	unlock, err := e.registry.Lock(ctx, key)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	sess, err := e.registry.Resolve(key)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var doc *Document
	if ref.active {
		doc = sess.active()
		if doc == nil {
			err := domain.NewDomainError("engine.open", domain.ErrPrecondition,
				"no active document; open a search result first")
			tracer.RecordError(span, err)
			return nil, err
		}
	} else {
		doc = sess.document(ref.id)
		if doc == nil {
			err := domain.NewDomainError("engine.open", domain.ErrNotFound,
				fmt.Sprintf("no document with id %d", ref.id))
			tracer.RecordError(span, err)
			return nil, err
		}
		sess.setActive(doc.ID)
	}

	page, err := doc.Page(loc, size, e.cfg.MaxPageLines)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	return page, nil
}

// Find scans the active document for an exact, case-sensitive substring,
// starting strictly after the resume point. A miss is a normal result: the
// cursor parks at end-of-document so a repeated call stays a miss instead
// of wrapping around.
func (e *Engine) Find(ctx context.Context, key, pattern string, from FindFrom) (*domain.Match, error) {
	ctx, span := tracer.StartSpan(ctx, "engine.find",
		trace.WithAttributes(tracer.StringAttr("session_key", key)),
	)
	defer span.End()

	if pattern == "" {
		err := domain.NewDomainError("engine.find", domain.ErrInvalidInput, "pattern must not be empty")
		tracer.RecordError(span, err)
		return nil, err
	}

	unlock, err := e.registry.Lock(ctx, key)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	sess, err := e.registry.Resolve(key)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	doc := sess.active()
	if doc == nil {
		err := domain.NewDomainError("engine.find", domain.ErrPrecondition,
			"no active document; open a search result first")
		tracer.RecordError(span, err)
		return nil, err
	}

	// A resume point only applies while the session's cursor still covers
	// this document and pattern; otherwise the value is stale and the scan
	// restarts at the top.
	start := 0
	if !from.fromStart && sess.cursor != nil && sess.cursor.Pattern == pattern {
		start = from.line + 1
		if start < 0 {
			start = 0
		}
	}

	for i := start; i < doc.LineCount(); i++ {
		if strings.Contains(doc.Lines[i], pattern) {
			sess.cursor = &Cursor{Pattern: pattern, Line: i}
			tracer.SetOK(span)
			return &domain.Match{Pattern: pattern, Found: true, Line: i, Text: doc.Lines[i]}, nil
		}
	}

	sess.cursor = &Cursor{Pattern: pattern, Line: doc.LineCount()}
	tracer.SetOK(span)
	return &domain.Match{Pattern: pattern, Found: false, Line: -1}, nil
}

// Status returns a read-only snapshot of the session. It creates the
// session if needed and never fails for a valid key.
func (e *Engine) Status(ctx context.Context, key string) (*domain.Status, error) {
	ctx, span := tracer.StartSpan(ctx, "engine.status",
		trace.WithAttributes(tracer.StringAttr("session_key", key)),
	)
	defer span.End()

	unlock, err := e.registry.Lock(ctx, key)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	sess, err := e.registry.Resolve(key)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	return sess.snapshot(), nil
}

// SessionCount reports the number of live sessions server-wide.
func (e *Engine) SessionCount() int { return e.registry.Count() }

func (e *Engine) resolveTopN(topn int) (int, error) {
	if topn == 0 {
		return e.cfg.DefaultTopN, nil
	}
	if topn < 0 || topn > e.cfg.MaxTopN {
		return 0, domain.NewDomainError("engine.search", domain.ErrInvalidInput,
			fmt.Sprintf("topn must be between 1 and %d, got %d", e.cfg.MaxTopN, topn))
	}
	return topn, nil
}

func (e *Engine) doSearch(ctx context.Context, query string, topn int) ([]domain.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SearchTimeout)
	defer cancel()
	results, err := e.backend.Search(ctx, query, topn)
	if err != nil {
		return nil, domain.WrapOp("engine.search", err)
	}
	return results, nil
}

func (e *Engine) doFetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	text, err := e.backend.Fetch(ctx, url)
	if err != nil {
		return "", domain.WrapOp("engine.fetch", err)
	}
	return text, nil
}
