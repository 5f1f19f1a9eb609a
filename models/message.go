package models

// ========================================
// Message type constants
// ========================================
const (
	// Server → Web
	MessageTypeSnapshot   = "snapshot"    // full facility snapshot
	MessageTypeSimulation = "simulation"  // simulation started / stopped
	MessageTypeSystemInfo = "system_info" // connection info

	// Web → Server
	MessageTypeCommand = "command" // start / stop requests from viewers
)

// WebSocketMessage - common websocket envelope
type WebSocketMessage struct {
	Type      string      `json:"type"`
	FactoryID string      `json:"factory_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // Unix timestamp (ms)
}

// SimulationCommand - viewer command payload
type SimulationCommand struct {
	Action string `json:"action"` // "start" | "stop"
}

// PathData - computed path returned to clients
type PathData struct {
	Robot     string     `json:"robot"`
	Target    string     `json:"target"`
	Points    []Position `json:"points"`
	Length    float64    `json:"length"`
	Algorithm string     `json:"algorithm"` // "dijkstra" | "graph"
}
