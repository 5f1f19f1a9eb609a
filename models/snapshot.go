package models

import "time"

// ComponentKind - component variant tag
type ComponentKind string

const (
	KindRoom            ComponentKind = "room"
	KindDoor            ComponentKind = "door"
	KindMachine         ComponentKind = "machine"
	KindConveyor        ComponentKind = "conveyor"
	KindChargingStation ComponentKind = "charging_station"
	KindArea            ComponentKind = "area"
	KindRobot           ComponentKind = "robot"
)

// WallSide - which wall of a room a door sits in
type WallSide string

const (
	SideTop    WallSide = "top"
	SideBottom WallSide = "bottom"
	SideLeft   WallSide = "left"
	SideRight  WallSide = "right"
)

// ========================================
// Facility snapshot (persistence / viewers)
// ========================================

// FacilitySnapshot - fully describes a factory and its components
type FacilitySnapshot struct {
	ID                string              `json:"id" yaml:"id"`
	Name              string              `json:"name" yaml:"name"`
	Width             int                 `json:"width" yaml:"width"`
	Height            int                 `json:"height" yaml:"height"`
	SimulationRunning bool                `json:"simulation_running" yaml:"simulation_running,omitempty"`
	Components        []ComponentSnapshot `json:"components" yaml:"components"`
	CapturedAt        time.Time           `json:"captured_at" yaml:"-"`
}

// ComponentSnapshot - one placed component. Kind-specific fields are
// left empty for kinds that do not use them.
type ComponentSnapshot struct {
	ID    string        `json:"id" yaml:"id,omitempty"`
	Name  string        `json:"name" yaml:"name"`
	Kind  ComponentKind `json:"kind" yaml:"kind"`
	Shape Shape         `json:"shape" yaml:"shape"`

	// room
	WallThickness int `json:"wall_thickness,omitempty" yaml:"wall_thickness,omitempty"`

	// door
	Room   string   `json:"room,omitempty" yaml:"room,omitempty"`
	Side   WallSide `json:"side,omitempty" yaml:"side,omitempty"`
	Offset int      `json:"offset,omitempty" yaml:"offset,omitempty"`
	Length int      `json:"length,omitempty" yaml:"length,omitempty"`
	Open   bool     `json:"open,omitempty" yaml:"open,omitempty"`

	// robot
	Targets           []string  `json:"targets,omitempty" yaml:"targets,omitempty"`
	Battery           *Battery  `json:"battery,omitempty" yaml:"battery,omitempty"`
	State             string    `json:"state,omitempty" yaml:"-"`
	CurrentTarget     string    `json:"current_target,omitempty" yaml:"-"`
	MemorizedPosition *Position `json:"memorized_position,omitempty" yaml:"-"`
	Blocked           bool      `json:"blocked,omitempty" yaml:"-"`
}

// Battery - capacity metadata carried by robots
type Battery struct {
	Capacity float64 `json:"capacity" yaml:"capacity"`
	Level    float64 `json:"level" yaml:"level"`
}
