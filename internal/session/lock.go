package session

import (
	"context"
	"sync"
	"time"

	"outreach-crm/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// CallLock serializes calls per contact across sessions and processes. The
// owner is the session id.
type CallLock interface {
	Acquire(ctx context.Context, contactID, owner string) (bool, error)
	Release(ctx context.Context, contactID, owner string) error
}

// RedisCallLock holds one key per contact with a TTL, so a crashed process
// frees its contacts once the TTL passes.
type RedisCallLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCallLock(rdb *redis.Client, ttl time.Duration) *RedisCallLock {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisCallLock{rdb: rdb, ttl: ttl}
}

func callLockKey(contactID string) string { return "dialer:call:" + contactID }

func (l *RedisCallLock) Acquire(ctx context.Context, contactID, owner string) (bool, error) {
	return utils.AcquireLock(ctx, l.rdb, callLockKey(contactID), owner, l.ttl)
}

func (l *RedisCallLock) Release(ctx context.Context, contactID, owner string) error {
	return utils.ReleaseLock(ctx, l.rdb, callLockKey(contactID), owner)
}

// MemoryCallLock is a single-process CallLock for tests and local runs.
type MemoryCallLock struct {
	mu      sync.Mutex
	holders map[string]string
}

func NewMemoryCallLock() *MemoryCallLock { return &MemoryCallLock{holders: map[string]string{}} }

func (l *MemoryCallLock) Acquire(ctx context.Context, contactID, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.holders[contactID]; ok && h != owner {
		return false, nil
	}
	l.holders[contactID] = owner
	return true, nil
}

func (l *MemoryCallLock) Release(ctx context.Context, contactID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holders[contactID] == owner {
		delete(l.holders, contactID)
	}
	return nil
}

// Holder reports who holds the lock on contactID.
func (l *MemoryCallLock) Holder(contactID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holders[contactID]
	return h, ok
}
