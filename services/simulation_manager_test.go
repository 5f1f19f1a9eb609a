package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SimulationManager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	m, err := NewSimulationManager(ManagerConfig{
		Store:        store,
		PathFinder:   newTestPathFinder(t),
		TickInterval: time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(m.StopAll)
	return m, store
}

func TestNewSimulationManagerRequiresDependencies(t *testing.T) {
	_, err := NewSimulationManager(ManagerConfig{})
	assert.Error(t, err)
}

func TestManagerStartStop(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	snap := sampleSnapshot()
	require.NoError(t, store.Save(ctx, snap))

	rec := &changeRecorder{}
	m.AddObserverFactory(func(*Factory) Observer { return rec })

	f, err := m.Start(ctx, snap.ID)
	require.NoError(t, err)
	assert.True(t, f.IsSimulationStarted())
	assert.Equal(t, []string{snap.ID}, m.Running())
	assert.Equal(t, 1, rec.count(ChangeSimulationStart), "observer attached before start")

	_, err = m.Start(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrSimulationRunning)

	live, err := m.Snapshot(snap.ID)
	require.NoError(t, err)
	assert.True(t, live.SimulationRunning)

	final, err := m.Stop(snap.ID)
	require.NoError(t, err)
	assert.False(t, final.SimulationRunning)
	assert.Empty(t, m.Running())
	assert.Equal(t, 1, rec.count(ChangeSimulationStop))

	_, err = m.Stop(snap.ID)
	assert.ErrorIs(t, err, ErrSimulationNotRunning)
	_, err = m.Snapshot(snap.ID)
	assert.ErrorIs(t, err, ErrSimulationNotRunning)
}

func TestManagerStartUnknownFactory(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Start(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrFactoryNotFound)
}

func TestManagerStopAll(t *testing.T) {
	m, _ := newTestManager(t)
	for i := 0; i < 3; i++ {
		_, err := m.StartSnapshot(sampleSnapshot())
		require.NoError(t, err)
	}
	assert.Len(t, m.Running(), 3)

	m.StopAll()
	assert.Empty(t, m.Running())
}

func TestManagerBuildDoesNotStart(t *testing.T) {
	m, store := newTestManager(t)
	snap := sampleSnapshot()
	require.NoError(t, store.Save(context.Background(), snap))

	f, err := m.Build(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.False(t, f.IsSimulationStarted())
	assert.Len(t, f.Robots(), 1)
}
