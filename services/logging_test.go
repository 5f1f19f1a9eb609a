package services

import (
	"context"
	"testing"
	"time"

	"robotsim-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLogFlushAndQuery(t *testing.T) {
	db := newTestDB(t)
	log := NewEventLog(db, 100, time.Hour)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	log.Record(models.SimulationEvent{CreatedAt: base, FactoryID: "f1", EventType: models.EventTargetReached, ComponentName: "r1"})
	log.Record(models.SimulationEvent{CreatedAt: base.Add(time.Second), FactoryID: "f1", EventType: models.EventLivelock, ComponentName: "r1"})
	log.Record(models.SimulationEvent{CreatedAt: base.Add(2 * time.Second), FactoryID: "f1", EventType: models.EventTargetReached, ComponentName: "r2"})
	log.Record(models.SimulationEvent{CreatedAt: base, FactoryID: "f2", EventType: models.EventStepAside})
	assert.Equal(t, 4, log.Pending())

	assert.Equal(t, 4, log.Flush())
	assert.Zero(t, log.Pending())
	assert.Zero(t, log.Flush(), "nothing left")

	recent, err := log.Recent(ctx, "f1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "r2", recent[0].ComponentName, "newest first")

	reached, err := log.ByType(ctx, "f1", models.EventTargetReached, 10)
	require.NoError(t, err)
	assert.Len(t, reached, 2)

	all, err := log.Recent(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	stats, err := log.Stats(ctx, "f1", base.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.EventCounts[models.EventTargetReached])
	assert.Equal(t, int64(1), stats.EventCounts[models.EventLivelock])
}

func TestEventLogFlushesWhenFull(t *testing.T) {
	db := newTestDB(t)
	log := NewEventLog(db, 2, time.Hour)

	log.Record(models.SimulationEvent{FactoryID: "f", EventType: models.EventStepAside})
	log.Record(models.SimulationEvent{FactoryID: "f", EventType: models.EventStepAside})

	require.Eventually(t, func() bool {
		events, err := log.Recent(context.Background(), "f", 0)
		return err == nil && len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventLogStopFlushesRemainder(t *testing.T) {
	db := newTestDB(t)
	log := NewEventLog(db, 100, time.Hour)
	log.Start()
	log.Record(models.SimulationEvent{FactoryID: "f", EventType: models.EventSimulationStop})

	log.Stop()
	log.Stop()

	events, err := log.Recent(context.Background(), "f", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
