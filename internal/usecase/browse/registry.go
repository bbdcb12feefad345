package browse

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
	"github.com/buyo-io/gpt-oss-mcp/internal/infra/config"
)

// Registry owns the session table: lazy creation, idle-TTL cleanup, and
// LRU capacity eviction. Sessions whose lock is busy are never evicted, so
// eviction cannot free state out from under an in-flight operation.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locker   *Locker
	cfg      config.SessionsConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a Registry and starts the idle cleanup goroutine.
func NewRegistry(cfg config.SessionsConfig, logger *slog.Logger) *Registry {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 100
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	r := &Registry{
		sessions: make(map[string]*Session),
		locker:   NewLocker(),
		cfg:      cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Resolve returns the session for key, creating it if needed. Concurrent
// callers with the same key converge on one instance. When the registry is
// full an idle session is evicted first; if every session is busy, Resolve
// fails with ErrLimitReached.
func (r *Registry) Resolve(key string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[key]; ok {
		s.Touch()
		return s, nil
	}

	if len(r.sessions) >= r.cfg.MaxSessions {
		if !r.evictOldestLocked() {
			return nil, domain.NewDomainError("registry.resolve", domain.ErrLimitReached,
				fmt.Sprintf("%d sessions active, none evictable", len(r.sessions)))
		}
	}

	s := newSession(key)
	r.sessions[key] = s
	r.logger.Debug("session created", "session_key", key, "total", len(r.sessions))
	return s, nil
}

// Get returns the session for key without creating one.
func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Lock acquires the per-session operation lock for key.
func (r *Registry) Lock(ctx context.Context, key string) (func(), error) {
	return r.locker.Lock(ctx, key)
}

// NewKey generates a session key for callers whose transport carries no
// session identity.
func (r *Registry) NewKey() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Stop shuts down the cleanup goroutine.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}

// evictOldestLocked removes the least recently used idle session. Caller
// must hold r.mu. Reports whether a session was evicted.
func (r *Registry) evictOldestLocked() bool {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, s := range r.sessions {
		if r.locker.Busy(key) {
			continue
		}
		if last := s.LastAccess(); oldestKey == "" || last.Before(oldest) {
			oldestKey = key
			oldest = last
		}
	}
	if oldestKey == "" {
		return false
	}
	delete(r.sessions, oldestKey)
	r.logger.Info("session evicted", "session_key", oldestKey, "reason", "capacity")
	return true
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.cfg.IdleTimeout)
	for key, s := range r.sessions {
		if r.locker.Busy(key) {
			continue
		}
		if s.LastAccess().Before(cutoff) {
			delete(r.sessions, key)
			r.logger.Info("session evicted", "session_key", key, "reason", "idle")
		}
	}
}
