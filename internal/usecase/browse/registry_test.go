package browse

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
	"github.com/buyo-io/gpt-oss-mcp/internal/infra/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestRegistry(t *testing.T, cfg config.SessionsConfig) *Registry {
	t.Helper()
	r := NewRegistry(cfg, testLogger())
	t.Cleanup(r.Stop)
	return r
}

func TestResolveCreatesOnce(t *testing.T) {
	r := newTestRegistry(t, config.SessionsConfig{})

	s1, err := r.Resolve("alpha")
	require.NoError(t, err)
	s2, err := r.Resolve("alpha")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, r.Count())
}

func TestResolveConcurrentConvergence(t *testing.T) {
	r := newTestRegistry(t, config.SessionsConfig{})

	var wg sync.WaitGroup
	sessions := make([]*Session, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Resolve("shared")
			require.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < 50; i++ {
		assert.Same(t, sessions[0], sessions[i])
	}
	assert.Equal(t, 1, r.Count())
}

func TestCapacityEvictsLRU(t *testing.T) {
	r := newTestRegistry(t, config.SessionsConfig{MaxSessions: 2})

	_, err := r.Resolve("old")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = r.Resolve("newer")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = r.Resolve("third")
	require.NoError(t, err)

	assert.Equal(t, 2, r.Count())
	_, ok := r.Get("old")
	assert.False(t, ok, "least recently used session should be evicted")
	_, ok = r.Get("newer")
	assert.True(t, ok)
}

func TestCapacityFullWithBusySessions(t *testing.T) {
	r := newTestRegistry(t, config.SessionsConfig{MaxSessions: 1})

	_, err := r.Resolve("held")
	require.NoError(t, err)
	unlock, err := r.Lock(context.Background(), "held")
	require.NoError(t, err)
	defer unlock()

	_, err = r.Resolve("overflow")
	assert.True(t, errors.Is(err, domain.ErrLimitReached))
}

func TestIdleEviction(t *testing.T) {
	r := newTestRegistry(t, config.SessionsConfig{
		IdleTimeout:     20 * time.Millisecond,
		CleanupInterval: 5 * time.Millisecond,
	})

	_, err := r.Resolve("idle")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := r.Get("idle")
		return !ok
	}, time.Second, 5*time.Millisecond, "idle session should be evicted")
}

func TestIdleEvictionSkipsBusy(t *testing.T) {
	r := newTestRegistry(t, config.SessionsConfig{
		IdleTimeout:     10 * time.Millisecond,
		CleanupInterval: 5 * time.Millisecond,
	})

	_, err := r.Resolve("busy")
	require.NoError(t, err)
	unlock, err := r.Lock(context.Background(), "busy")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, ok := r.Get("busy")
	assert.True(t, ok, "session with a held lock must not be evicted")

	unlock()
}

func TestNewKeyUnique(t *testing.T) {
	r := newTestRegistry(t, config.SessionsConfig{})

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		k := r.NewKey()
		assert.NotEmpty(t, k)
		assert.False(t, seen[k], "key %q generated twice", k)
		seen[k] = true
	}
}
