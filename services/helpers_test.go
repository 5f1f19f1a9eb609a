package services

import (
	"sync"
	"testing"

	"robotsim-backend/models"

	"github.com/stretchr/testify/require"
)

func newTestFactory(t *testing.T, opts ...FactoryOption) *Factory {
	t.Helper()
	f, err := NewFactory("test-floor", 200, 200, opts...)
	require.NoError(t, err)
	return f
}

func newTestPathFinder(t *testing.T) *FactoryPathFinder {
	t.Helper()
	pf, err := NewFactoryPathFinder(5, nil, nil)
	require.NoError(t, err)
	return pf
}

func addMachine(t *testing.T, f *Factory, name string, x, y, w, h int) *StaticComponent {
	t.Helper()
	m, err := NewMachine(f, name, models.Rect(x, y, w, h))
	require.NoError(t, err)
	return m
}

func addRobot(t *testing.T, f *Factory, pf PathFinder, name string, x, y int) *Robot {
	t.Helper()
	shape, err := models.NewCircle(x, y, 2)
	require.NoError(t, err)
	r, err := NewRobot(f, name, shape, models.Battery{Capacity: 100, Level: 100}, pf)
	require.NoError(t, err)
	return r
}

func memorize(r *Robot, p models.Position) {
	r.memorized.Store(&p)
}

// changeRecorder collects change events.
type changeRecorder struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (c *changeRecorder) ModelChanged(ev ChangeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *changeRecorder) count(kind ChangeKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (c *changeRecorder) kinds() []ChangeKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChangeKind, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Kind
	}
	return out
}

// eventRecorder collects simulation events in memory.
type eventRecorder struct {
	mu     sync.Mutex
	events []models.SimulationEvent
}

func (r *eventRecorder) Record(ev models.SimulationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) ofType(eventType string) []models.SimulationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SimulationEvent
	for _, ev := range r.events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}
