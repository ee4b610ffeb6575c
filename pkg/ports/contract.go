package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := domain.StoredSnapshot{
			Kind:    domain.KindTable,
			Data:    domain.Snapshot(`{"cols":["a"],"data":{"a":[1]},"rows":1}`),
			SavedAt: time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, store.Save(ctx, sessionID, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, snap.Kind, loaded.Kind)
		assert.Equal(t, snap.Data, loaded.Data, "snapshot must round-trip byte-identical")
		assert.True(t, snap.SavedAt.Equal(loaded.SavedAt))
	})

	t.Run("Save replaces", func(t *testing.T) {
		first := domain.StoredSnapshot{Kind: domain.KindDashboard, Data: "v1", Title: "T"}
		second := domain.StoredSnapshot{Kind: domain.KindDashboard, Data: "v2", Title: "T"}
		require.NoError(t, store.Save(ctx, sessionID, first))
		require.NoError(t, store.Save(ctx, sessionID, second))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.Snapshot("v2"), loaded.Data)
		assert.Equal(t, "T", loaded.Title)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.StoredSnapshot{Kind: domain.KindTable, Data: "x"}))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.StoredSnapshot{Kind: domain.KindTable, Data: "1"})
		_ = store.Save(ctx, id2, domain.StoredSnapshot{Kind: domain.KindTable, Data: "2"})
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
