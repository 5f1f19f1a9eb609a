package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"robotsim-backend/config"
	"robotsim-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenDatabase(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func sampleSnapshot() *models.FacilitySnapshot {
	return &models.FacilitySnapshot{
		Name:   "hall",
		Width:  100,
		Height: 100,
		Components: []models.ComponentSnapshot{
			{ID: "m1", Name: "press", Kind: models.KindMachine, Shape: models.Rect(10, 10, 10, 10)},
			{ID: "r1", Name: "rover", Kind: models.KindRobot, Shape: models.Shape{Kind: models.ShapeCircle, X: 50, Y: 50, Radius: 2}, Targets: []string{"m1"}},
		},
	}
}

func testStores(t *testing.T) map[string]FactoryStore {
	return map[string]FactoryStore{
		"gorm":   NewGormStore(newTestDB(t)),
		"memory": NewMemoryStore(),
	}
}

func TestStoreSaveAndLoad(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := sampleSnapshot()
			snap.SimulationRunning = true
			require.NoError(t, store.Save(ctx, snap))
			require.NotEmpty(t, snap.ID, "id assigned on save")

			loaded, err := store.Load(ctx, snap.ID)
			require.NoError(t, err)
			assert.Equal(t, snap.ID, loaded.ID)
			assert.Equal(t, snap.Components, loaded.Components)
			assert.False(t, loaded.SimulationRunning, "runtime flag is not stored")
		})
	}
}

func TestStoreSaveUpdatesExisting(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := sampleSnapshot()
			require.NoError(t, store.Save(ctx, snap))

			snap.Name = "renamed"
			snap.Components = snap.Components[:1]
			require.NoError(t, store.Save(ctx, snap))

			loaded, err := store.Load(ctx, snap.ID)
			require.NoError(t, err)
			assert.Equal(t, "renamed", loaded.Name)
			assert.Len(t, loaded.Components, 1)

			recs, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "renamed", recs[0].Name)
			assert.Empty(t, recs[0].Snapshot, "list omits the payload")
		})
	}
}

func TestStoreLoadMissing(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "does-not-exist")
			assert.ErrorIs(t, err, ErrFactoryNotFound)
		})
	}
}

func TestOpenDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := OpenDatabase(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
