package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/ports"
)

func testClient(t *testing.T) (*backend.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestStoreContract(t *testing.T) {
	client, _ := testClient(t)
	ports.RunAnswerStoreContract(t, NewFromClient(client))
}

func TestStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	client, mr := testClient(t)
	store := NewFromClient(client, WithTTL(time.Minute))

	require.NoError(t, store.Save(ctx, "s1", domain.AnswerSet{"email": "a@b.com"}))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, sessions, "s1", "List prunes expired sessions from the index")
}

func TestStorePrefixIsolation(t *testing.T) {
	ctx := context.Background()
	client, _ := testClient(t)
	a := NewFromClient(client, WithPrefix("appA:"))
	b := NewFromClient(client, WithPrefix("appB:"))

	require.NoError(t, a.Save(ctx, "s1", domain.AnswerSet{"email": "a@b.com"}))

	_, err := b.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, _ := testClient(t)
	cache := NewCache(client, "", time.Minute)

	_, ok, err := cache.Get(ctx, "s1", "email")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, "s1", "email", "a@b.com"))
	value, ok, err := cache.Get(ctx, "s1", "email")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", value)

	require.NoError(t, cache.Delete(ctx, "s1"))
	_, ok, err = cache.Get(ctx, "s1", "email")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	client, mr := testClient(t)
	cache := NewCache(client, "", time.Minute)

	require.NoError(t, cache.Put(ctx, "s1", "email", "a@b.com"))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "s1", "email")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockerMutualExclusion(t *testing.T) {
	ctx := context.Background()
	client, _ := testClient(t)
	locker := NewLocker(client, "test:")

	unlock, err := locker.Lock(ctx, "s1", time.Minute)
	require.NoError(t, err)

	// A second holder must not get the lock while the first holds it.
	blockedCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blockedCtx, "s1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "s1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLockerUnlockOnlyReleasesOwnLock(t *testing.T) {
	ctx := context.Background()
	client, mr := testClient(t)
	locker := NewLocker(client, "test:")

	unlock, err := locker.Lock(ctx, "s1", time.Minute)
	require.NoError(t, err)

	// The first holder's TTL lapses and someone else takes the lock.
	mr.FastForward(2 * time.Minute)
	unlock2, err := locker.Lock(ctx, "s1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, unlock(ctx), "stale unlock is a no-op")

	// The second holder still owns the lock.
	blockedCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blockedCtx, "s1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock2(ctx))
}
