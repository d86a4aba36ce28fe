package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florelab/stepwise/pkg/adapters/memory"
	"github.com/florelab/stepwise/pkg/domain"
)

// brokenStore fails every operation, standing in for a dead backend.
type brokenStore struct{}

func (brokenStore) Save(context.Context, string, domain.AnswerSet) error {
	return errors.New("store is down")
}
func (brokenStore) Load(context.Context, string) (domain.AnswerSet, error) {
	return nil, errors.New("store is down")
}
func (brokenStore) Delete(context.Context, string) error { return errors.New("store is down") }
func (brokenStore) List(context.Context) ([]string, error) {
	return nil, errors.New("store is down")
}

func TestBridgeRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := New(memory.NewStore())

	b.Save(ctx, "s1", domain.AnswerSet{"email": "a@b.com"})
	loaded := b.Load(ctx, "s1")
	assert.Equal(t, "a@b.com", loaded.String("email"))
}

func TestBridgeLoadUnknownSessionIsEmpty(t *testing.T) {
	b := New(memory.NewStore())
	loaded := b.Load(context.Background(), "never-saved")
	require.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestBridgeSwallowsStoreFailures(t *testing.T) {
	ctx := context.Background()
	b := New(brokenStore{})

	// None of these may panic or surface an error to the caller.
	b.Save(ctx, "s1", domain.AnswerSet{"email": "a@b.com"})
	b.Delete(ctx, "s1")
	loaded := b.Load(ctx, "s1")
	require.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestBridgeCacheFallback(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCache()
	b := New(brokenStore{}, WithFastCache(cache, "email", "productLine"))

	// Save mirrors hot fields even though the durable write fails.
	b.Save(ctx, "s1", domain.AnswerSet{
		"email":       "a@b.com",
		"productLine": "serum",
		"colorHex":    "#a1b2c3",
	})

	loaded := b.Load(ctx, "s1")
	assert.Equal(t, "a@b.com", loaded.String("email"))
	assert.Equal(t, "serum", loaded.String("productLine"))
	assert.False(t, loaded.Has("colorHex"), "only hot fields are cached")
}

func TestBridgeStoreWinsOverCache(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()
	b := New(store, WithFastCache(cache, "email"))

	b.Save(ctx, "s1", domain.AnswerSet{"email": "a@b.com", "colorHex": "#a1b2c3"})
	require.NoError(t, cache.Put(ctx, "s1", "email", "stale@b.com"))

	loaded := b.Load(ctx, "s1")
	assert.Equal(t, "a@b.com", loaded.String("email"), "the durable store is the source of truth")
	assert.Equal(t, "#a1b2c3", loaded.String("colorHex"))
}

func TestBridgeDeleteClearsBothStores(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()
	b := New(store, WithFastCache(cache, "email"))

	b.Save(ctx, "s1", domain.AnswerSet{"email": "a@b.com"})
	b.Delete(ctx, "s1")

	assert.Empty(t, b.Load(ctx, "s1"))
	_, ok, err := cache.Get(ctx, "s1", "email")
	require.NoError(t, err)
	assert.False(t, ok)
}
