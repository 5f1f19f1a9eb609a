package models

import "time"

// FactoryRecord - stored facility snapshot
type FactoryRecord struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Snapshot  string    `gorm:"type:text" json:"snapshot"` // FacilitySnapshot JSON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Simulation event types
const (
	EventSimulationStart   = "simulation_start"
	EventSimulationStop    = "simulation_stop"
	EventTargetReached     = "target_reached"
	EventTargetUnreachable = "target_unreachable"
	EventLivelock          = "livelock"
	EventStepAside         = "step_aside"
)

// SimulationEvent - robot/factory event row
type SimulationEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	FactoryID string    `gorm:"size:64;index" json:"factory_id"`
	EventType string    `gorm:"size:64;index" json:"event_type"`

	ComponentID   string `gorm:"size:64" json:"component_id"`
	ComponentName string `json:"component_name"`
	PositionX     int    `json:"position_x"`
	PositionY     int    `json:"position_y"`
	TargetName    string `json:"target_name"`
	Detail        string `json:"detail"`
}
