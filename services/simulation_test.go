package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"robotsim-backend/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panicky is a component whose behavior always panics.
type panicky struct {
	component
}

func (p *panicky) Behave() bool { panic("broken sensor") }

// exclusive records whether two of its behavior steps ever ran at once.
type exclusive struct {
	component
	inFlight   atomic.Int32
	overlapped atomic.Bool
	steps      atomic.Int32
}

func (e *exclusive) Behave() bool {
	if e.inFlight.Add(1) > 1 {
		e.overlapped.Store(true)
	}
	time.Sleep(200 * time.Microsecond)
	e.inFlight.Add(-1)
	e.steps.Add(1)
	return false
}

func TestStartStopAreIdempotent(t *testing.T) {
	f := newTestFactory(t, WithTickInterval(time.Millisecond))
	rec := &changeRecorder{}
	f.Subscribe(rec)

	require.True(t, f.StartSimulation(context.Background()))
	assert.False(t, f.StartSimulation(context.Background()))
	assert.True(t, f.IsSimulationStarted())
	assert.True(t, f.Snapshot().SimulationRunning)

	require.True(t, f.StopSimulation())
	assert.False(t, f.StopSimulation())
	assert.False(t, f.IsSimulationStarted())
	require.NoError(t, f.Wait())

	assert.Equal(t, 1, rec.count(ChangeSimulationStart))
	assert.Equal(t, 1, rec.count(ChangeSimulationStop))
}

func TestSimulationRunsRobotsWithoutCollisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	events := &eventRecorder{}
	f := newTestFactory(t, WithTickInterval(time.Millisecond), WithMetrics(metrics), WithEventRecorder(events))
	pf := newTestPathFinder(t)

	m1 := addMachine(t, f, "m1", 50, 50, 15, 15)
	m2 := addMachine(t, f, "m2", 120, 60, 15, 15)
	station, err := NewChargingStation(f, "station", models.Rect(100, 150, 10, 10))
	require.NoError(t, err)

	var robots []*Robot
	for i, start := range []models.Position{{X: 5, Y: 5}, {X: 5, Y: 50}, {X: 5, Y: 100}} {
		r := addRobot(t, f, pf, string(rune('a'+i)), start.X, start.Y)
		r.AddTarget(m1)
		r.AddTarget(m2)
		r.AddTarget(station)
		robots = append(robots, r)
	}

	require.True(t, f.StartSimulation(context.Background()))
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && len(events.ofType(models.EventTargetReached)) < 3 {
		// no two robots may ever overlap; hold the movement lock to read a consistent picture
		f.moveMu.Lock()
		for i := range robots {
			for j := i + 1; j < len(robots); j++ {
				assert.False(t, robots[i].Shape().Overlaps(robots[j].Shape()), "%s overlaps %s", robots[i].Name(), robots[j].Name())
			}
		}
		f.moveMu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	f.StopSimulation()
	require.NoError(t, f.Wait())

	assert.GreaterOrEqual(t, len(events.ofType(models.EventTargetReached)), 3)
	assert.Greater(t, testutil.ToFloat64(metrics.Moves.WithLabelValues(moveResultMoved)), 0.0)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RunningSimulations))
}

func TestStoppedSimulationDoesNotMove(t *testing.T) {
	f := newTestFactory(t, WithTickInterval(time.Millisecond))
	pf := newTestPathFinder(t)
	m := addMachine(t, f, "m", 150, 150, 15, 15)
	r := addRobot(t, f, pf, "r", 5, 5)
	r.AddTarget(m)

	require.True(t, f.StartSimulation(context.Background()))
	require.Eventually(t, func() bool { return r.Position() != models.Position{X: 5, Y: 5} }, time.Second, time.Millisecond)
	f.StopSimulation()
	require.NoError(t, f.Wait())

	stopped := r.Position()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, r.Position())
}

func TestPanickingComponentDoesNotStopOthers(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	f := newTestFactory(t, WithTickInterval(time.Millisecond), WithMetrics(metrics))
	pf := newTestPathFinder(t)

	faulty := &panicky{}
	require.NoError(t, faulty.component.init(f, models.KindMachine, "faulty", models.Rect(100, 10, 5, 5), nil))
	f.AddComponent(faulty)

	m := addMachine(t, f, "m", 150, 150, 15, 15)
	r := addRobot(t, f, pf, "r", 5, 5)
	r.AddTarget(m)

	require.True(t, f.StartSimulation(context.Background()))
	require.Eventually(t, func() bool { return r.Shape().Overlaps(m.Shape()) }, 3*time.Second, time.Millisecond)
	f.StopSimulation()
	require.NoError(t, f.Wait())

	assert.Greater(t, testutil.ToFloat64(metrics.BehaviorPanics), 1.0, "faulty unit keeps ticking")
}

func TestCancelledContextEndsUnits(t *testing.T) {
	f := newTestFactory(t, WithTickInterval(time.Millisecond))
	addMachine(t, f, "m", 10, 10, 5, 5)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, f.StartSimulation(ctx))
	cancel()

	done := make(chan error, 1)
	go func() { done <- f.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("units did not exit after cancellation")
	}
	f.StopSimulation()
}

func TestComponentAddedWhileRunningGetsAUnit(t *testing.T) {
	f := newTestFactory(t, WithTickInterval(time.Millisecond))
	pf := newTestPathFinder(t)
	m := addMachine(t, f, "m", 100, 100, 15, 15)

	require.True(t, f.StartSimulation(context.Background()))
	defer func() {
		f.StopSimulation()
		_ = f.Wait()
	}()

	r := addRobot(t, f, pf, "late", 5, 5)
	r.AddTarget(m)
	require.Eventually(t, func() bool { return r.Position() != models.Position{X: 5, Y: 5} }, time.Second, time.Millisecond)
}

func TestRestartNeverRunsTwoUnitsForOneComponent(t *testing.T) {
	f := newTestFactory(t, WithTickInterval(time.Millisecond))
	press := &exclusive{}
	require.NoError(t, press.component.init(f, models.KindMachine, "press", models.Rect(10, 10, 5, 5), nil))
	require.True(t, f.AddComponent(press))

	for i := 0; i < 50; i++ {
		require.True(t, f.StartSimulation(context.Background()))
		time.Sleep(time.Duration(i%3) * time.Millisecond)
		require.True(t, f.StopSimulation())
	}
	require.NoError(t, f.Wait())

	assert.Positive(t, press.steps.Load())
	assert.False(t, press.overlapped.Load(), "units of consecutive runs overlapped")
}
