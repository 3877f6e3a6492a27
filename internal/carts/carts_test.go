package carts_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/carts"
	"storepulse/internal/testsupport"
	"storepulse/internal/transients"
)

func TestSaveAndLoad(t *testing.T) {
	t.Run("round trips a snapshot", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		store := carts.NewStore(transients.NewStore(dbManager, logger), 7*24*time.Hour)

		snapshot := carts.Snapshot{
			Items: []carts.Item{
				{EntityID: "p1", Quantity: 2},
				{EntityID: "p2", Quantity: 1},
			},
			Total: decimal.RequireFromString("34.50"),
		}
		require.NoError(t, store.Save("visitor-1", snapshot))

		loaded, ok, err := store.Load("visitor-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, loaded.Items, 2)
		assert.Equal(t, "p1", loaded.Items[0].EntityID)
		assert.True(t, loaded.Total.Equal(snapshot.Total))
		assert.False(t, loaded.UpdatedAt.IsZero())
	})

	t.Run("latest snapshot replaces the previous one", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		store := carts.NewStore(transients.NewStore(dbManager, logger), 7*24*time.Hour)

		first := carts.Snapshot{
			Items: []carts.Item{{EntityID: "p1", Quantity: 1}},
			Total: decimal.RequireFromString("10.00"),
		}
		require.NoError(t, store.Save("visitor-1", first))

		second := carts.Snapshot{
			Items: []carts.Item{{EntityID: "p3", Quantity: 5}},
			Total: decimal.RequireFromString("99.95"),
		}
		require.NoError(t, store.Save("visitor-1", second))

		loaded, ok, err := store.Load("visitor-1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, loaded.Items, 1, "snapshots replace, never merge")
		assert.Equal(t, "p3", loaded.Items[0].EntityID)
		assert.True(t, loaded.Total.Equal(second.Total))
	})

	t.Run("missing snapshot reads as absent", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		store := carts.NewStore(transients.NewStore(dbManager, logger), 7*24*time.Hour)

		_, ok, err := store.Load("nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects empty visitor", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		store := carts.NewStore(transients.NewStore(dbManager, logger), 7*24*time.Hour)

		assert.Error(t, store.Save("", carts.Snapshot{}))
	})
}
