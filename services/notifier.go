package services

import (
	"fmt"
	"sync"
	"time"

	"robotsim-backend/logger"
	"robotsim-backend/models"

	"github.com/sirupsen/logrus"
)

// ChangeKind - what happened to the model
type ChangeKind string

const (
	ChangeComponentAdded   ChangeKind = "component_added"
	ChangeComponentRemoved ChangeKind = "component_removed"
	ChangeComponentMoved   ChangeKind = "component_moved"
	ChangeComponentUpdated ChangeKind = "component_updated"
	ChangeSimulationStart  ChangeKind = "simulation_started"
	ChangeSimulationStop   ChangeKind = "simulation_stopped"
)

// ChangeEvent is delivered to observers after a mutation of the factory model.
type ChangeEvent struct {
	Kind        ChangeKind
	FactoryID   string
	ComponentID string
	Position    models.Position
	At          time.Time
}

// Observer is told about model changes. Implementations must be comparable
// (pointer types) so they can be unsubscribed.
type Observer interface {
	ModelChanged(ev ChangeEvent) error
}

type funcObserver struct {
	fn func(ChangeEvent) error
}

func (o *funcObserver) ModelChanged(ev ChangeEvent) error { return o.fn(ev) }

// ObserverFunc wraps fn into an Observer that can later be unsubscribed.
func ObserverFunc(fn func(ChangeEvent) error) Observer {
	return &funcObserver{fn: fn}
}

// Notifier - observer registry that fans change events out
type Notifier interface {
	Subscribe(o Observer) bool
	Unsubscribe(o Observer) bool
	NotifyChanged(ev ChangeEvent)
}

// LocalNotifier delivers events synchronously on the caller's goroutine.
// A failing or panicking observer is logged and does not affect the others.
type LocalNotifier struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{}
}

func (n *LocalNotifier) Subscribe(o Observer) bool {
	if o == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, existing := range n.observers {
		if existing == o {
			return false
		}
	}
	n.observers = append(n.observers, o)
	return true
}

func (n *LocalNotifier) Unsubscribe(o Observer) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, existing := range n.observers {
		if existing == o {
			n.observers = append(n.observers[:i], n.observers[i+1:]...)
			return true
		}
	}
	return false
}

func (n *LocalNotifier) NotifyChanged(ev ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	n.mu.RLock()
	observers := append([]Observer(nil), n.observers...)
	n.mu.RUnlock()

	for _, o := range observers {
		if err := deliver(o, ev); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"event":     ev.Kind,
				"factory":   ev.FactoryID,
				"component": ev.ComponentID,
			}).WithError(err).Warn("observer failed")
		}
	}
}

func deliver(o Observer, ev ChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()
	return o.ModelChanged(ev)
}
