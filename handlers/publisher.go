package handlers

import (
	"sync"
	"sync/atomic"
	"time"

	"robotsim-backend/models"
	"robotsim-backend/services"
)

// SnapshotPublisher pushes snapshots of one factory to its websocket viewers.
// Change events only mark the factory dirty; a ticker turns dirty state into at
// most one snapshot per interval so behavior ticks never wait on the network.
type SnapshotPublisher struct {
	factory  *services.Factory
	hub      *ClientManager
	interval time.Duration

	dirty atomic.Bool
	once  sync.Once
	done  chan struct{}
}

func NewSnapshotPublisher(f *services.Factory, hub *ClientManager, interval time.Duration) *SnapshotPublisher {
	p := &SnapshotPublisher{
		factory:  f,
		hub:      hub,
		interval: interval,
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *SnapshotPublisher) ModelChanged(ev services.ChangeEvent) error {
	switch ev.Kind {
	case services.ChangeSimulationStart:
		p.publishState(true)
	case services.ChangeSimulationStop:
		p.publishState(false)
		p.hub.BroadcastMessage(snapshotMessage(p.factory.Snapshot()))
		p.Close()
	default:
		p.dirty.Store(true)
	}
	return nil
}

func (p *SnapshotPublisher) publishState(running bool) {
	p.hub.BroadcastMessage(models.WebSocketMessage{
		Type:      models.MessageTypeSimulation,
		FactoryID: p.factory.ID(),
		Data: map[string]interface{}{
			"running": running,
			"name":    p.factory.Name(),
		},
	})
}

// Close stops the ticker loop. Safe to call more than once.
func (p *SnapshotPublisher) Close() {
	p.once.Do(func() { close(p.done) })
}

func (p *SnapshotPublisher) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if p.dirty.Swap(false) {
				p.hub.BroadcastMessage(snapshotMessage(p.factory.Snapshot()))
			}
		}
	}
}
