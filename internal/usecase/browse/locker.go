package browse

import (
	"context"
	"fmt"
	"sync"
)

// Locker provides operation-level mutual exclusion per session key. It
// prevents two concurrent tool calls from mutating the same session state
// simultaneously, and lets the registry tell whether a session is in use
// before evicting it.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sessionMutex
}

type sessionMutex struct {
	mu       sync.Mutex
	refCount int
}

// NewLocker creates a new session locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sessionMutex)}
}

// Lock acquires the lock for the given session key. It blocks until the
// lock is acquired or the context is cancelled. Returns an unlock function
// that MUST be called when the operation is complete.
func (l *Locker) Lock(ctx context.Context, key string) (unlock func(), err error) {
	l.mu.Lock()
	sm, ok := l.locks[key]
	if !ok {
		sm = &sessionMutex{}
		l.locks[key] = sm
	}
	sm.refCount++
	l.mu.Unlock()

	release := func() {
		sm.mu.Unlock()
		l.mu.Lock()
		sm.refCount--
		if sm.refCount == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}

	acquired := make(chan struct{})
	go func() {
		sm.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return release, nil
	case <-ctx.Done():
		// The acquiring goroutine may still get the mutex later; release
		// it as soon as it does so the lock is never held forever.
		go func() {
			<-acquired
			release()
		}()
		return nil, fmt.Errorf("session lock: %w", ctx.Err())
	}
}

// Busy reports whether the session lock is currently held or contended.
func (l *Locker) Busy(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.locks[key]
	return ok
}

// ActiveCount returns the number of sessions with active or pending locks.
// Intended for testing.
func (l *Locker) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
