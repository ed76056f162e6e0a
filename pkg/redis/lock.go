package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Second

// LockStore defines the operations a Mutex needs.
type LockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Mutex is a best-effort exclusive lock backed by SETNX + TTL. The TTL bounds
// how long a crashed holder can block others.
type Mutex struct {
	client LockStore
	key    string
	ttl    time.Duration
	owner  string
}

// NewMutex constructs a Redis-backed lock on key.
func NewMutex(client LockStore, key string, ttl time.Duration) (*Mutex, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Mutex{client: client, key: key, ttl: ttl}, nil
}

// Key returns the redis key guarded by the mutex.
func (m *Mutex) Key() string {
	return m.key
}

// Acquire tries to own the lock for the configured TTL.
func (m *Mutex) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := m.client.SetNX(ctx, m.key, owner, m.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		m.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (m *Mutex) Release(ctx context.Context) error {
	if m.owner == "" {
		return nil
	}
	value, err := m.client.Get(ctx, m.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			m.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != m.owner {
		m.owner = ""
		return nil
	}
	if err := m.client.Del(ctx, m.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	m.owner = ""
	return nil
}

type keyedLockStore interface {
	LockStore
	LockKey(scope, id string) string
}

// KeyedLocker hands out one mutex per resource id within a scope.
type KeyedLocker struct {
	client keyedLockStore
	scope  string
	ttl    time.Duration
}

// NewKeyedLocker builds a locker whose keys live under lock:<scope>:<id>.
func NewKeyedLocker(client keyedLockStore, scope string, ttl time.Duration) (*KeyedLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if scope == "" {
		return nil, errors.New("lock scope is required")
	}
	return &KeyedLocker{client: client, scope: scope, ttl: ttl}, nil
}

// TryLock attempts to take the lock for id without waiting. When ok is false
// another holder owns it and release is nil.
func (k *KeyedLocker) TryLock(ctx context.Context, id string) (release func(context.Context) error, ok bool, err error) {
	mutex, err := NewMutex(k.client, k.client.LockKey(k.scope, id), k.ttl)
	if err != nil {
		return nil, false, err
	}
	acquired, err := mutex.Acquire(ctx)
	if err != nil || !acquired {
		return nil, false, err
	}
	return mutex.Release, true, nil
}
