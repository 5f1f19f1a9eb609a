package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"robotsim-backend/logger"
	"robotsim-backend/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultTickInterval is the pause between two behavior steps of one component.
const DefaultTickInterval = 16 * time.Millisecond

var ErrInvalidFactory = errors.New("invalid factory")

// EventRecorder receives notable simulation events (reached targets, livelocks...).
type EventRecorder interface {
	Record(ev models.SimulationEvent)
}

// Motion - requested move of a component to a new top-left position
type Motion struct {
	From models.Position
	To   models.Position
}

// Displacement - Manhattan distance covered by the motion
func (m Motion) Displacement() int {
	return abs(m.To.X-m.From.X) + abs(m.To.Y-m.From.Y)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Factory is the rectangular floor that owns every component. It answers
// spatial queries and arbitrates movement so that no two robots ever occupy
// the same space.
type Factory struct {
	id     string
	name   string
	width  int
	height int

	mu         sync.RWMutex // guards components
	components []Component

	// moveMu makes "check destination then commit" atomic across all movers.
	// Lock order: moveMu before mu.
	moveMu sync.Mutex

	notifier     Notifier
	metrics      *Metrics
	events       EventRecorder
	tickInterval time.Duration
	log          *logrus.Entry

	running  atomic.Bool
	runMu    sync.Mutex // serializes start/stop
	cancel   context.CancelFunc
	group    *errgroup.Group
	groupCtx context.Context
	units    map[string]context.CancelFunc
}

// FactoryOption - optional factory setting
type FactoryOption func(*Factory)

func WithFactoryID(id string) FactoryOption {
	return func(f *Factory) {
		if id != "" {
			f.id = id
		}
	}
}

func WithNotifier(n Notifier) FactoryOption {
	return func(f *Factory) {
		if n != nil {
			f.notifier = n
		}
	}
}

func WithMetrics(m *Metrics) FactoryOption {
	return func(f *Factory) { f.metrics = m }
}

func WithEventRecorder(r EventRecorder) FactoryOption {
	return func(f *Factory) { f.events = r }
}

func WithTickInterval(d time.Duration) FactoryOption {
	return func(f *Factory) {
		if d > 0 {
			f.tickInterval = d
		}
	}
}

// NewFactory creates an empty factory floor of width x height units.
func NewFactory(name string, width, height int, opts ...FactoryOption) (*Factory, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %q has size %dx%d", ErrInvalidFactory, name, width, height)
	}

	f := &Factory{
		id:           uuid.NewString(),
		name:         name,
		width:        width,
		height:       height,
		notifier:     NewLocalNotifier(),
		tickInterval: DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = logger.Log.WithFields(logrus.Fields{"factory": f.name, "factory_id": f.id})
	return f, nil
}

func (f *Factory) ID() string                  { return f.id }
func (f *Factory) Name() string                { return f.name }
func (f *Factory) Width() int                  { return f.width }
func (f *Factory) Height() int                 { return f.height }
func (f *Factory) TickInterval() time.Duration { return f.tickInterval }
func (f *Factory) Metrics() *Metrics           { return f.metrics }

// Bounds - the floor rectangle
func (f *Factory) Bounds() models.Shape {
	return models.Rect(0, 0, f.width, f.height)
}

// InBounds reports whether s lies completely on the floor.
func (f *Factory) InBounds(s models.Shape) bool {
	return f.Bounds().Contains(s)
}

// ========================================
// Registry
// ========================================

// AddComponent registers c. Adding the same component twice is a no-op.
func (f *Factory) AddComponent(c Component) bool {
	if c == nil {
		return false
	}

	f.mu.Lock()
	for _, existing := range f.components {
		if existing == c {
			f.mu.Unlock()
			return false
		}
	}
	f.components = append(f.components, c)
	f.mu.Unlock()

	// components added to a running simulation get their own unit
	f.runMu.Lock()
	if f.running.Load() {
		f.spawnUnit(c)
	}
	f.runMu.Unlock()

	f.notifyChanged(ChangeEvent{Kind: ChangeComponentAdded, ComponentID: c.ID(), Position: c.Position()})
	return true
}

// RemoveComponent unregisters c and stops its unit if the simulation runs.
func (f *Factory) RemoveComponent(c Component) bool {
	if c == nil {
		return false
	}

	f.mu.Lock()
	idx := -1
	for i, existing := range f.components {
		if existing == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		f.mu.Unlock()
		return false
	}
	f.components = append(f.components[:idx], f.components[idx+1:]...)
	f.mu.Unlock()

	f.runMu.Lock()
	if cancel, ok := f.units[c.ID()]; ok {
		cancel()
		delete(f.units, c.ID())
	}
	f.runMu.Unlock()

	f.notifyChanged(ChangeEvent{Kind: ChangeComponentRemoved, ComponentID: c.ID(), Position: c.Position()})
	return true
}

// arrange replaces the insertion order with order, which must hold exactly the
// registered components. Only used while building, before any simulation runs.
func (f *Factory) arrange(order []Component) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(order) != len(f.components) {
		return
	}
	f.components = append(f.components[:0], order...)
}

// Components returns the components in insertion order.
func (f *Factory) Components() []Component {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Component(nil), f.components...)
}

// Component finds a component by id or, failing that, by name.
func (f *Factory) Component(ref string) (Component, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, c := range f.components {
		if c.ID() == ref {
			return c, nil
		}
	}
	for _, c := range f.components {
		if c.Name() == ref {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in factory %q", ErrComponentNotFound, ref, f.name)
}

// Robots returns the robots in insertion order.
func (f *Factory) Robots() []*Robot {
	var robots []*Robot
	for _, c := range f.Components() {
		if r, ok := c.(*Robot); ok {
			robots = append(robots, r)
		}
	}
	return robots
}

// ========================================
// Spatial queries
// ========================================

// HasObstacleAt reports whether some component overlaps shape and refuses to
// be overlaid there. Components listed in exempt are ignored.
func (f *Factory) HasObstacleAt(shape models.Shape, exempt ...Component) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, c := range f.components {
		if isExempt(c, exempt) {
			continue
		}
		if c.Overlaps(shape) && !c.CanBeOverlaid(shape) {
			return true
		}
	}
	return false
}

func isExempt(c Component, exempt []Component) bool {
	for _, e := range exempt {
		if e == c {
			return true
		}
	}
	return false
}

// HasMobileComponentAt reports whether a mobile component other than
// excluding overlaps shape.
func (f *Factory) HasMobileComponentAt(shape models.Shape, excluding Component) bool {
	return f.MobileComponentAt(shape, excluding) != nil
}

// MobileComponentAt returns the first mobile component other than excluding
// that overlaps shape, or nil.
func (f *Factory) MobileComponentAt(shape models.Shape, excluding Component) Component {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, c := range f.components {
		if c == excluding || !c.IsMobile() {
			continue
		}
		if c.Overlaps(shape) {
			return c
		}
	}
	return nil
}

// MobileComponentAtPosition tests pos with the footprint of mover and
// returns the mobile component found there.
func (f *Factory) MobileComponentAtPosition(pos models.Position, mover Component) Component {
	s := mover.Shape()
	return f.MobileComponentAt(models.Rect(pos.X, pos.Y, s.BoundsWidth(), s.BoundsHeight()), mover)
}

// ========================================
// Movement
// ========================================

// MoveComponent moves mover to m.To if that spot is on the floor, free of
// other mobile components and free of obstacles (the mover's current target
// excepted). Check and commit happen under one lock, so concurrent movers can
// never end up in the same place. Returns the displacement, 0 when refused.
func (f *Factory) MoveComponent(m Motion, mover Component) int {
	f.moveMu.Lock()

	cur := mover.Shape()
	dest := models.Rect(m.To.X, m.To.Y, cur.BoundsWidth(), cur.BoundsHeight())

	if f.HasMobileComponentAt(dest, mover) {
		f.moveMu.Unlock()
		f.metrics.move(moveResultOccupied)
		return 0
	}
	if !f.InBounds(dest) || f.HasObstacleAt(dest, targetOf(mover)...) {
		f.moveMu.Unlock()
		f.metrics.move(moveResultObstructed)
		return 0
	}

	mover.base().setShape(cur.MovedTo(m.To))
	f.moveMu.Unlock()

	displacement := Motion{From: cur.Position(), To: m.To}.Displacement()
	f.metrics.move(moveResultMoved)
	if displacement != 0 {
		f.notifyChanged(ChangeEvent{Kind: ChangeComponentMoved, ComponentID: mover.ID(), Position: m.To})
	}
	return displacement
}

// StepAside moves mover to the first candidate position that is on the floor
// and free, under the same arbitration as MoveComponent.
func (f *Factory) StepAside(mover Component, candidates []models.Position) (models.Position, bool) {
	f.moveMu.Lock()

	cur := mover.Shape()
	exempt := targetOf(mover)
	for _, p := range candidates {
		if p.X < 0 || p.Y < 0 {
			continue
		}
		dest := models.Rect(p.X, p.Y, cur.BoundsWidth(), cur.BoundsHeight())
		if !f.InBounds(dest) || f.HasMobileComponentAt(dest, mover) || f.HasObstacleAt(dest, exempt...) {
			continue
		}

		mover.base().setShape(cur.MovedTo(p))
		f.moveMu.Unlock()
		f.notifyChanged(ChangeEvent{Kind: ChangeComponentMoved, ComponentID: mover.ID(), Position: p})
		return p, true
	}

	f.moveMu.Unlock()
	return models.Position{}, false
}

func targetOf(c Component) []Component {
	if r, ok := c.(*Robot); ok {
		if t := r.CurrentTarget(); t != nil {
			return []Component{t}
		}
	}
	return nil
}

// ========================================
// Observers
// ========================================

func (f *Factory) Subscribe(o Observer) bool   { return f.notifier.Subscribe(o) }
func (f *Factory) Unsubscribe(o Observer) bool { return f.notifier.Unsubscribe(o) }

func (f *Factory) notifyChanged(ev ChangeEvent) {
	ev.FactoryID = f.id
	f.notifier.NotifyChanged(ev)
}

func (f *Factory) recordEvent(eventType string, c Component, target Component, detail string) {
	if f.events == nil {
		return
	}
	ev := models.SimulationEvent{
		CreatedAt: time.Now(),
		FactoryID: f.id,
		EventType: eventType,
		Detail:    detail,
	}
	if c != nil {
		p := c.Position()
		ev.ComponentID = c.ID()
		ev.ComponentName = c.Name()
		ev.PositionX, ev.PositionY = p.X, p.Y
	}
	if target != nil {
		ev.TargetName = target.Name()
	}
	f.events.Record(ev)
}
