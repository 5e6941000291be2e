package models

// LocationHistory is one accepted position sample from an agent. Rows are
// append-only: written once per accepted location update, never mutated or
// deleted by the service.
type LocationHistory struct {
	ID           string   `json:"id" db:"id"`
	AgentID      string   `json:"agent_id" db:"agent_id"`
	Latitude     float64  `json:"latitude" db:"latitude"`
	Longitude    float64  `json:"longitude" db:"longitude"`
	Accuracy     *float64 `json:"accuracy,omitempty" db:"accuracy"` // GPS accuracy in meters
	AssignmentID *string  `json:"assignment_id,omitempty" db:"assignment_id"`
	RecordedAt   int64    `json:"recorded_at" db:"recorded_at"`
}
