package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"robotsim-backend/models"

	"golang.org/x/sync/errgroup"
)

// IsSimulationStarted reports whether the simulation is running.
func (f *Factory) IsSimulationStarted() bool {
	return f.running.Load()
}

// StartSimulation launches one unit of execution per component. Each unit runs
// a behavior step every tick until the simulation is stopped or ctx is done.
// Returns false if the simulation was already running. Units of a previous run
// are waited for first so one component never has two units ticking at once.
func (f *Factory) StartSimulation(ctx context.Context) bool {
	if f.IsSimulationStarted() {
		return false
	}
	_ = f.Wait()

	f.runMu.Lock()
	if f.running.Load() {
		f.runMu.Unlock()
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	f.cancel = cancel
	f.group = group
	f.groupCtx = groupCtx
	f.units = make(map[string]context.CancelFunc)
	f.running.Store(true)

	components := f.Components()
	for _, c := range components {
		f.spawnUnit(c)
	}
	f.runMu.Unlock()

	f.metrics.running(1)
	f.log.WithField("components", len(components)).Info("simulation started")
	f.recordEvent(models.EventSimulationStart, nil, nil, fmt.Sprintf("%d components", len(components)))
	f.notifyChanged(ChangeEvent{Kind: ChangeSimulationStart})
	return true
}

// StopSimulation clears the running flag; units stop at their next loop head.
// Returns false if the simulation was not running. Use Wait to block until
// every unit has exited.
func (f *Factory) StopSimulation() bool {
	f.runMu.Lock()
	if !f.running.Load() {
		f.runMu.Unlock()
		return false
	}
	f.running.Store(false)
	f.cancel()
	f.units = nil
	f.runMu.Unlock()

	f.metrics.running(-1)
	f.log.Info("simulation stopped")
	f.recordEvent(models.EventSimulationStop, nil, nil, "")
	f.notifyChanged(ChangeEvent{Kind: ChangeSimulationStop})
	return true
}

// Wait blocks until all units of the last started simulation have returned.
func (f *Factory) Wait() error {
	f.runMu.Lock()
	group := f.group
	f.runMu.Unlock()

	if group == nil {
		return nil
	}
	return group.Wait()
}

// spawnUnit must be called with runMu held while the simulation runs.
func (f *Factory) spawnUnit(c Component) {
	if _, ok := f.units[c.ID()]; ok {
		return
	}
	ctx, cancel := context.WithCancel(f.groupCtx)
	f.units[c.ID()] = cancel
	f.group.Go(func() error {
		defer cancel()
		f.runUnit(ctx, c)
		return nil
	})
}

func (f *Factory) runUnit(ctx context.Context, c Component) {
	ticker := time.NewTicker(f.tickInterval)
	defer ticker.Stop()

	for {
		if !f.running.Load() || ctx.Err() != nil {
			return
		}
		f.step(c)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// step runs one behavior step. A panic is logged and the unit keeps going.
func (f *Factory) step(c Component) (moved bool) {
	defer func() {
		if r := recover(); r != nil {
			f.metrics.behaviorPanic()
			f.log.WithField("component", c.Name()).
				WithField("stack", string(debug.Stack())).
				Errorf("behavior panic: %v", r)
			moved = false
		}
	}()
	return c.Behave()
}
