package services

import (
	"errors"
	"fmt"
	"sync/atomic"

	"robotsim-backend/models"

	"github.com/google/uuid"
)

var (
	ErrComponentNotFound    = errors.New("component not found")
	ErrUnknownComponentKind = errors.New("unknown component kind")
)

// Component is anything placed in a factory. The set of implementations is
// closed: StaticComponent, Room, Door and Robot.
type Component interface {
	ID() string
	Name() string
	Kind() models.ComponentKind
	Shape() models.Shape
	Position() models.Position
	IsMobile() bool

	// Overlaps reports whether the component occupies any part of s.
	Overlaps(s models.Shape) bool
	// CanBeOverlaid reports whether another shape may legally coincide with
	// this component at s.
	CanBeOverlaid(s models.Shape) bool

	// Behave performs one behavior step and reports whether anything moved.
	Behave() bool

	base() *component
}

// ComponentOption - construction option shared by all component kinds
type ComponentOption func(*component)

// WithComponentID keeps a known identifier instead of generating one.
func WithComponentID(id string) ComponentOption {
	return func(c *component) {
		if id != "" {
			c.id = id
		}
	}
}

// component holds what every kind shares. The shape is published through an
// atomic pointer so other robots' goroutines can read it while the owner moves.
type component struct {
	id      string
	name    string
	kind    models.ComponentKind
	factory *Factory // lookup only, the factory owns the component
	shape   atomic.Pointer[models.Shape]
}

// init fills the base in place; the owning struct embeds it by value and the
// atomic shape pointer must not be copied afterwards.
func (c *component) init(f *Factory, kind models.ComponentKind, name string, shape models.Shape, opts []ComponentOption) error {
	if f == nil {
		return fmt.Errorf("%s %q: factory is required", kind, name)
	}
	if name == "" {
		return fmt.Errorf("%s: name is required", kind)
	}
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("%s %q: %w", kind, name, err)
	}

	c.id = uuid.NewString()
	c.name = name
	c.kind = kind
	c.factory = f
	for _, opt := range opts {
		opt(c)
	}
	c.shape.Store(&shape)
	return nil
}

func (c *component) ID() string                 { return c.id }
func (c *component) Name() string               { return c.name }
func (c *component) Kind() models.ComponentKind { return c.kind }
func (c *component) Factory() *Factory          { return c.factory }
func (c *component) IsMobile() bool             { return false }
func (c *component) Behave() bool               { return false }
func (c *component) base() *component           { return c }

func (c *component) Shape() models.Shape {
	return *c.shape.Load()
}

func (c *component) setShape(s models.Shape) {
	c.shape.Store(&s)
}

func (c *component) Position() models.Position {
	return c.Shape().Position()
}

func (c *component) Width() int  { return c.Shape().BoundsWidth() }
func (c *component) Height() int { return c.Shape().BoundsHeight() }

func (c *component) Overlaps(s models.Shape) bool {
	return c.Shape().Overlaps(s)
}

func (c *component) CanBeOverlaid(models.Shape) bool { return false }

func (c *component) String() string {
	return fmt.Sprintf("%s[name=%s shape=%s]", c.kind, c.name, c.Shape())
}

// ========================================
// Static components
// ========================================

// StaticComponent - machine, conveyor, charging station or floor area.
// Areas are floor markings and can always be overlaid; the others are obstacles.
type StaticComponent struct {
	component
}

// NewStaticComponent places a static component and registers it in f.
func NewStaticComponent(f *Factory, kind models.ComponentKind, name string, shape models.Shape, opts ...ComponentOption) (*StaticComponent, error) {
	switch kind {
	case models.KindMachine, models.KindConveyor, models.KindChargingStation, models.KindArea:
	default:
		return nil, fmt.Errorf("%w: %q is not a static kind", ErrUnknownComponentKind, kind)
	}

	s := &StaticComponent{}
	if err := s.component.init(f, kind, name, shape, opts); err != nil {
		return nil, err
	}
	f.AddComponent(s)
	return s, nil
}

func NewMachine(f *Factory, name string, shape models.Shape, opts ...ComponentOption) (*StaticComponent, error) {
	return NewStaticComponent(f, models.KindMachine, name, shape, opts...)
}

func NewConveyor(f *Factory, name string, shape models.Shape, opts ...ComponentOption) (*StaticComponent, error) {
	return NewStaticComponent(f, models.KindConveyor, name, shape, opts...)
}

func NewChargingStation(f *Factory, name string, shape models.Shape, opts ...ComponentOption) (*StaticComponent, error) {
	return NewStaticComponent(f, models.KindChargingStation, name, shape, opts...)
}

func NewArea(f *Factory, name string, shape models.Shape, opts ...ComponentOption) (*StaticComponent, error) {
	return NewStaticComponent(f, models.KindArea, name, shape, opts...)
}

func (s *StaticComponent) CanBeOverlaid(models.Shape) bool {
	return s.kind == models.KindArea
}
