package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker serializes mutations that share a key (one poll id). The returned
// unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// =============================================================================
// In-process keyed mutex
// =============================================================================

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex is a per-key mutex whose entries disappear once nobody holds
// or waits for them. Waiting honours context cancellation.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &keyedEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			m.release(key, entry)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, entry *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
}

// Len reports how many keys are currently held or awaited
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// =============================================================================
// Redis lock
// =============================================================================

const (
	lockKeyPrefix   = "lock:poll:"
	lockRetryMin    = 5 * time.Millisecond
	lockRetryMax    = 100 * time.Millisecond
	lockReleaseWait = 2 * time.Second
)

// RedisLocker serializes mutations across instances with SET NX PX. The
// ttl bounds how long a crashed holder can block a poll; it must exceed
// the slowest load-save cycle.
type RedisLocker struct {
	redis *RedisService
	ttl   time.Duration
}

func NewRedisLocker(redis *RedisService, ttl time.Duration) *RedisLocker {
	return &RedisLocker{redis: redis, ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := lockKeyPrefix + key
	token := uuid.NewString()
	wait := lockRetryMin

	for {
		acquired, err := l.redis.AcquireLock(ctx, lockKey, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		if wait *= 2; wait > lockRetryMax {
			wait = lockRetryMax
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done; release regardless.
			releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseWait)
			defer cancel()
			if err := l.redis.ReleaseLock(releaseCtx, lockKey, token); err != nil {
				slog.Warn("Failed to release poll lock", "key", lockKey, "error", err)
			}
		})
	}, nil
}
