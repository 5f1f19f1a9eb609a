package services

import (
	"fmt"
	"os"
	"time"

	"robotsim-backend/models"

	"gopkg.in/yaml.v3"
)

// Snapshot captures the factory and every component in insertion order.
func (f *Factory) Snapshot() *models.FacilitySnapshot {
	components := f.Components()
	snap := &models.FacilitySnapshot{
		ID:                f.id,
		Name:              f.name,
		Width:             f.width,
		Height:            f.height,
		SimulationRunning: f.IsSimulationStarted(),
		Components:        make([]models.ComponentSnapshot, 0, len(components)),
		CapturedAt:        time.Now(),
	}
	for _, c := range components {
		snap.Components = append(snap.Components, snapshotOf(c))
	}
	return snap
}

func snapshotOf(c Component) models.ComponentSnapshot {
	cs := models.ComponentSnapshot{
		ID:    c.ID(),
		Name:  c.Name(),
		Kind:  c.Kind(),
		Shape: c.Shape(),
	}

	switch v := c.(type) {
	case *Room:
		cs.WallThickness = v.WallThickness()
	case *Door:
		cs.Room = v.room.ID()
		cs.Side = v.side
		cs.Offset = v.offset
		cs.Length = v.length
		cs.Open = v.IsOpen()
	case *Robot:
		for _, t := range v.Targets() {
			cs.Targets = append(cs.Targets, t.ID())
		}
		battery := v.Battery()
		cs.Battery = &battery
		cs.State = v.State().String()
		cs.Blocked = v.Blocked()
		cs.MemorizedPosition = v.MemorizedPosition()
		if t := v.CurrentTarget(); t != nil {
			cs.CurrentTarget = t.ID()
		}
	}
	return cs
}

// BuildFactory reconstructs a factory from a snapshot. Rooms and static
// components are created first, then doors, then robots; robot targets are
// resolved last so they may refer to any component by id or name. The
// snapshot's component order is restored at the end, and robots get their
// current target, memorized position and state back.
func BuildFactory(snap *models.FacilitySnapshot, pf PathFinder, opts ...FactoryOption) (*Factory, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: empty snapshot", ErrInvalidFactory)
	}
	f, err := NewFactory(snap.Name, snap.Width, snap.Height, append([]FactoryOption{WithFactoryID(snap.ID)}, opts...)...)
	if err != nil {
		return nil, err
	}
	built := make([]Component, len(snap.Components))

	// first pass: rooms and static components
	for i, cs := range snap.Components {
		idOpt := WithComponentID(cs.ID)
		switch cs.Kind {
		case models.KindRoom:
			built[i], err = NewRoom(f, cs.Name, cs.Shape, cs.WallThickness, idOpt)
		case models.KindMachine, models.KindConveyor, models.KindChargingStation, models.KindArea:
			built[i], err = NewStaticComponent(f, cs.Kind, cs.Name, cs.Shape, idOpt)
		case models.KindDoor, models.KindRobot:
		default:
			err = fmt.Errorf("%w: %q (component %q)", ErrUnknownComponentKind, cs.Kind, cs.Name)
		}
		if err != nil {
			return nil, err
		}
	}

	// second pass: doors need their room
	for i, cs := range snap.Components {
		if cs.Kind != models.KindDoor {
			continue
		}
		ref, err := f.Component(cs.Room)
		if err != nil {
			return nil, fmt.Errorf("door %q: %w", cs.Name, err)
		}
		room, ok := ref.(*Room)
		if !ok {
			return nil, fmt.Errorf("door %q: %q is a %s, not a room", cs.Name, cs.Room, ref.Kind())
		}
		if built[i], err = NewDoor(f, room, cs.Name, cs.Side, cs.Offset, cs.Length, cs.Open, WithComponentID(cs.ID)); err != nil {
			return nil, err
		}
	}

	// third pass: robots
	robots := make(map[int]*Robot)
	for i, cs := range snap.Components {
		if cs.Kind != models.KindRobot {
			continue
		}
		var battery models.Battery
		if cs.Battery != nil {
			battery = *cs.Battery
		}
		r, err := NewRobot(f, cs.Name, cs.Shape, battery, pf, WithComponentID(cs.ID))
		if err != nil {
			return nil, err
		}
		robots[i] = r
		built[i] = r
	}

	for i, cs := range snap.Components {
		r, ok := robots[i]
		if !ok {
			continue
		}
		for _, ref := range cs.Targets {
			t, err := f.Component(ref)
			if err != nil {
				return nil, fmt.Errorf("robot %q: target: %w", r.Name(), err)
			}
			r.AddTarget(t)
		}

		var current Component
		if cs.CurrentTarget != "" {
			if current, err = f.Component(cs.CurrentTarget); err != nil {
				return nil, fmt.Errorf("robot %q: current target: %w", r.Name(), err)
			}
		}
		state, _ := parseRobotState(cs.State)
		r.restoreState(current, cs.MemorizedPosition, state, cs.Blocked)
	}

	f.arrange(built)
	return f, nil
}

// LoadLayoutFile reads a facility layout from a YAML file.
func LoadLayoutFile(path string) (*models.FacilitySnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout decodes a YAML facility layout.
func ParseLayout(data []byte) (*models.FacilitySnapshot, error) {
	var snap models.FacilitySnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if snap.Width <= 0 || snap.Height <= 0 {
		return nil, fmt.Errorf("%w: layout %q has size %dx%d", ErrInvalidFactory, snap.Name, snap.Width, snap.Height)
	}
	for i, cs := range snap.Components {
		if cs.Name == "" {
			return nil, fmt.Errorf("parse layout: component #%d has no name", i)
		}
	}
	return &snap, nil
}

// MarshalLayout encodes a snapshot as a YAML layout. Runtime state is dropped.
func MarshalLayout(snap *models.FacilitySnapshot) ([]byte, error) {
	return yaml.Marshal(snap)
}
