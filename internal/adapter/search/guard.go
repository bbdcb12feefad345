package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
	"github.com/buyo-io/gpt-oss-mcp/internal/infra/config"
)

const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// GuardedBackend wraps a Backend with rate limiting and circuit breaker
// protection. A failing or slow provider trips the circuit so subsequent
// calls fail fast instead of piling up on it.
type GuardedBackend struct {
	inner   Backend
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
}

// NewGuardedBackend wraps inner. With RateLimit 0 the limiter is disabled;
// with CircuitBreaker.Enabled false only rate limiting applies.
func NewGuardedBackend(inner Backend, cfg config.SearchConfig, logger *slog.Logger) *GuardedBackend {
	g := &GuardedBackend{inner: inner, logger: logger}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if cfg.CircuitBreaker.Enabled {
		maxFailures := cfg.CircuitBreaker.MaxFailures
		if maxFailures == 0 {
			maxFailures = defaultCBMaxFailures
		}
		timeout := cfg.CircuitBreaker.Timeout
		if timeout == 0 {
			timeout = defaultCBTimeout
		}
		interval := cfg.CircuitBreaker.Interval
		if interval == 0 {
			interval = defaultCBInterval
		}

		g.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "search:" + inner.Name(),
			MaxRequests: 1, // allow 1 probe in half-open state
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
			IsSuccessful: func(err error) bool {
				return err == nil
			},
		})
	}

	return g
}

func (g *GuardedBackend) Name() string { return g.inner.Name() }

func (g *GuardedBackend) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if g.breaker == nil {
		return g.inner.Search(ctx, query, count)
	}

	var results []domain.SearchResult
	_, err := g.breaker.Execute(func() (string, error) {
		var searchErr error
		results, searchErr = g.inner.Search(ctx, query, count)
		return "", searchErr
	})
	if err != nil {
		return nil, g.mapBreakerError(err)
	}
	return results, nil
}

func (g *GuardedBackend) Fetch(ctx context.Context, url string) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	if g.breaker == nil {
		return g.inner.Fetch(ctx, url)
	}

	content, err := g.breaker.Execute(func() (string, error) {
		return g.inner.Fetch(ctx, url)
	})
	if err != nil {
		return "", g.mapBreakerError(err)
	}
	return content, nil
}

// State returns the circuit breaker state, or closed when the breaker is
// disabled.
func (g *GuardedBackend) State() gobreaker.State {
	if g.breaker == nil {
		return gobreaker.StateClosed
	}
	return g.breaker.State()
}

func (g *GuardedBackend) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		// Wait fails when the context is done or the deadline cannot
		// accommodate the wait; either way the caller ran out of time.
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		return fmt.Errorf("%w: rate limit wait: %v", domain.ErrTimeout, err)
	}
	return nil
}

func (g *GuardedBackend) mapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: provider %q circuit open: %v", domain.ErrProviderError, g.inner.Name(), err)
	}
	return err
}

var _ Backend = (*GuardedBackend)(nil)
