package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"robotsim-backend/logger"
	"robotsim-backend/models"
)

var (
	ErrSimulationRunning    = errors.New("simulation already running")
	ErrSimulationNotRunning = errors.New("simulation not running")
)

// ObserverFactory builds an observer for a factory about to be started.
type ObserverFactory func(f *Factory) Observer

// SimulationManager runs stored factories, one simulation per factory id.
type SimulationManager struct {
	store        FactoryStore
	pathFinder   PathFinder
	metrics      *Metrics
	events       EventRecorder
	tickInterval time.Duration

	mu        sync.RWMutex
	running   map[string]*Factory
	observers []ObserverFactory
}

// ManagerConfig - dependencies shared by every simulation
type ManagerConfig struct {
	Store        FactoryStore
	PathFinder   PathFinder
	Metrics      *Metrics
	Events       EventRecorder
	TickInterval time.Duration
}

func NewSimulationManager(cfg ManagerConfig) (*SimulationManager, error) {
	if cfg.Store == nil || cfg.PathFinder == nil {
		return nil, fmt.Errorf("simulation manager: store and path finder are required")
	}
	return &SimulationManager{
		store:        cfg.Store,
		pathFinder:   cfg.PathFinder,
		metrics:      cfg.Metrics,
		events:       cfg.Events,
		tickInterval: cfg.TickInterval,
		running:      make(map[string]*Factory),
	}, nil
}

func (m *SimulationManager) PathFinder() PathFinder { return m.pathFinder }

// AddObserverFactory makes every simulation started afterwards carry an
// observer built by fn.
func (m *SimulationManager) AddObserverFactory(fn ObserverFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Build reconstructs a stored factory without starting it.
func (m *SimulationManager) Build(ctx context.Context, id string) (*Factory, error) {
	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.build(snap)
}

func (m *SimulationManager) build(snap *models.FacilitySnapshot) (*Factory, error) {
	return BuildFactory(snap, m.pathFinder,
		WithMetrics(m.metrics),
		WithEventRecorder(m.events),
		WithTickInterval(m.tickInterval),
	)
}

// Start loads factory id from the store and starts its simulation. The
// simulation outlives ctx, which only bounds the load.
func (m *SimulationManager) Start(ctx context.Context, id string) (*Factory, error) {
	m.mu.RLock()
	_, running := m.running[id]
	m.mu.RUnlock()
	if running {
		return nil, fmt.Errorf("%w: %s", ErrSimulationRunning, id)
	}

	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.StartSnapshot(snap)
}

// StartSnapshot starts a simulation of snap directly.
func (m *SimulationManager) StartSnapshot(snap *models.FacilitySnapshot) (*Factory, error) {
	f, err := m.build(snap)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, running := m.running[f.ID()]; running {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSimulationRunning, f.ID())
	}
	m.running[f.ID()] = f
	observers := append([]ObserverFactory(nil), m.observers...)
	m.mu.Unlock()

	for _, fn := range observers {
		if o := fn(f); o != nil {
			f.Subscribe(o)
		}
	}

	f.StartSimulation(context.Background())
	logger.Log.WithField("factory_id", f.ID()).Infof("🚀 시뮬레이션 시작: %s", f.Name())
	return f, nil
}

// Stop stops the simulation of factory id and waits for its units to exit.
func (m *SimulationManager) Stop(id string) (*models.FacilitySnapshot, error) {
	m.mu.Lock()
	f, ok := m.running[id]
	delete(m.running, id)
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSimulationNotRunning, id)
	}

	f.StopSimulation()
	if err := f.Wait(); err != nil {
		logger.Log.WithError(err).WithField("factory_id", id).Warn("simulation ended with error")
	}
	logger.Log.WithField("factory_id", id).Infof("🛑 시뮬레이션 종료: %s", f.Name())
	return f.Snapshot(), nil
}

// Get returns the running factory with the given id.
func (m *SimulationManager) Get(id string) (*Factory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.running[id]
	return f, ok
}

// Snapshot returns the live state of a running simulation.
func (m *SimulationManager) Snapshot(id string) (*models.FacilitySnapshot, error) {
	f, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSimulationNotRunning, id)
	}
	return f.Snapshot(), nil
}

// Running lists the ids of running simulations, sorted.
func (m *SimulationManager) Running() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.running))
	for id := range m.running {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// StopAll stops every running simulation.
func (m *SimulationManager) StopAll() {
	for _, id := range m.Running() {
		if _, err := m.Stop(id); err != nil && !errors.Is(err, ErrSimulationNotRunning) {
			logger.Log.WithError(err).WithField("factory_id", id).Warn("stop failed")
		}
	}
}
