package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florelab/stepwise/pkg/domain"
)

// RunAnswerStoreContract runs a suite of tests verifying that an AnswerStore
// implementation adheres to the interface contract. Adapter test packages
// call this against their concrete store.
func RunAnswerStoreContract(t *testing.T, store AnswerStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		answers := domain.AnswerSet{
			"email":       "a@b.com",
			"styleChoice": "styleA",
			"claims":      []any{"vegan", "fragrance-free"},
		}

		err := store.Save(ctx, sessionID, answers)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "a@b.com", loaded.String("email"))
		assert.Equal(t, "styleA", loaded.String("styleChoice"))
		// JSON round-trips may change slice element types; only require presence.
		assert.NotNil(t, loaded["claims"])
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.AnswerSet{"email": "a@b.com"}))
		require.NoError(t, store.Save(ctx, sessionID, domain.AnswerSet{"email": "c@d.com"}))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "c@d.com", loaded.String("email"))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.AnswerSet{"email": "a@b.com"}))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.AnswerSet{"a": 1}))
		require.NoError(t, store.Save(ctx, id2, domain.AnswerSet{"b": 2}))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
