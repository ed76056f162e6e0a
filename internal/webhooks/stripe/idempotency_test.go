package stripewebhook

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "bs:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return nil
}

func TestIdempotencyGuardClaimLifecycle(t *testing.T) {
	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, time.Minute, "stripe-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	got, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, Claimed, got)

	// A redelivery while the first attempt runs must not be acknowledged.
	got, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, InFlight, got)

	require.NoError(t, guard.Complete(ctx, "evt_1"))
	got, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, Done, got)
}

func TestIdempotencyGuardReleaseAllowsRetry(t *testing.T) {
	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, time.Minute, "stripe-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, "evt_1"))

	got, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, Claimed, got)
}

func TestIdempotencyGuardValidation(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Hour, 0, "scope")
	require.Error(t, err)
	_, err = NewIdempotencyGuard(newMemoryStore(), -time.Second, 0, "scope")
	require.Error(t, err)
	_, err = NewIdempotencyGuard(newMemoryStore(), time.Hour, -time.Second, "scope")
	require.Error(t, err)
	_, err = NewIdempotencyGuard(newMemoryStore(), time.Hour, 0, "")
	require.Error(t, err)

	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, 0, "scope")
	require.NoError(t, err)
	require.Equal(t, defaultInFlightTTL, guard.inFlight)
	_, err = guard.Claim(context.Background(), "  ")
	require.ErrorIs(t, err, errMissingEventID)
	require.ErrorIs(t, guard.Complete(context.Background(), ""), errMissingEventID)
	require.ErrorIs(t, guard.Release(context.Background(), ""), errMissingEventID)
}

func TestIdempotencyGuardMarkValuesAndTTLs(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, 72*time.Hour, time.Minute, "stripe-webhook")
	require.NoError(t, err)
	guard.now = func() time.Time { return time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	key := "bs:idempotency:stripe-webhook:evt_9"

	_, err = guard.Claim(ctx, "evt_9")
	require.NoError(t, err)
	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "in_flight:2026-09-14T09:00:00Z", value)
	require.Equal(t, time.Minute, store.ttls[key])

	require.NoError(t, guard.Complete(ctx, "evt_9"))
	value, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "done:2026-09-14T09:00:00Z", value)
	require.Equal(t, 72*time.Hour, store.ttls[key])
}

func TestClaimResultString(t *testing.T) {
	require.Equal(t, "claimed", Claimed.String())
	require.Equal(t, "in_flight", InFlight.String())
	require.Equal(t, "done", Done.String())
	require.Equal(t, "unknown", ClaimResult(9).String())
}
