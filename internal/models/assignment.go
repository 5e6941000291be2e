package models

import (
	"errors"
	"time"
)

// AssignmentStatus represents the lifecycle state of an assignment
type AssignmentStatus string

const (
	StatusAssigned   AssignmentStatus = "assigned"
	StatusInProgress AssignmentStatus = "in_progress"
	StatusCompleted  AssignmentStatus = "completed"
	StatusCancelled  AssignmentStatus = "cancelled"
)

// ErrInvalidTransition is returned when a requested status change is not
// allowed from the assignment's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// Assignment links one agent to one client visit and tracks its lifecycle
type Assignment struct {
	ID                 string           `json:"id" db:"id"`
	AgentID            string           `json:"agent_id" db:"agent_id"`
	ClientID           string           `json:"client_id" db:"client_id"`
	Status             AssignmentStatus `json:"status" db:"status"`
	AssignedAt         int64            `json:"assigned_at" db:"assigned_at"`
	StartedAt          *int64           `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *int64           `json:"completed_at,omitempty" db:"completed_at"`
	Notes              *string          `json:"notes,omitempty" db:"notes"`
	EstimatedDuration  *int64           `json:"estimated_duration_secs,omitempty" db:"estimated_duration_secs"` // seconds
	ActualDuration     *int64           `json:"actual_duration_secs,omitempty" db:"actual_duration_secs"`       // seconds
	DistanceToClientKm *float64         `json:"distance_to_client_km,omitempty" db:"distance_to_client_km"`
	CreatedBy          *string          `json:"created_by,omitempty" db:"created_by"`
}

// AssignmentDetail is an assignment joined with the names the dashboards
// and notification payloads need.
type AssignmentDetail struct {
	Assignment
	AgentName     string  `json:"agent_name" db:"agent_name"`
	ClientName    string  `json:"client_name" db:"client_name"`
	ClientAddress string  `json:"client_address" db:"client_address"`
	ClientLat     float64 `json:"client_latitude" db:"client_latitude"`
	ClientLng     float64 `json:"client_longitude" db:"client_longitude"`
}

// IsActive reports whether the assignment still blocks its agent and client
// from being matched again.
func (a *Assignment) IsActive() bool {
	return a.Status == StatusAssigned || a.Status == StatusInProgress
}

// Apply moves the assignment to requested and derives the lifecycle
// timestamps. The two named transitions are guarded:
//
//	assigned    -> in_progress   sets StartedAt
//	in_progress -> completed     sets CompletedAt and ActualDuration
//	assigned/in_progress -> cancelled
//
// Any other requested status is written through together with notes and no
// timestamp derivation. Callers treat that as a fallback path and log it;
// it is kept so manager-side overrides are not rejected.
func (a *Assignment) Apply(requested AssignmentStatus, notes string, now time.Time) error {
	switch requested {
	case StatusInProgress:
		if a.Status != StatusAssigned {
			return ErrInvalidTransition
		}
		started := now.Unix()
		a.Status = StatusInProgress
		a.StartedAt = &started

	case StatusCompleted:
		if a.Status != StatusInProgress {
			return ErrInvalidTransition
		}
		completed := now.Unix()
		a.Status = StatusCompleted
		a.CompletedAt = &completed
		if a.StartedAt != nil {
			duration := completed - *a.StartedAt
			a.ActualDuration = &duration
		}
		if notes != "" {
			a.Notes = &notes
		}

	case StatusCancelled:
		if a.Status != StatusAssigned && a.Status != StatusInProgress {
			return ErrInvalidTransition
		}
		a.Status = StatusCancelled
		if notes != "" {
			a.Notes = &notes
		}

	default:
		// Pass-through write for statuses outside the guarded lifecycle.
		a.Status = requested
		if notes != "" {
			a.Notes = &notes
		}
	}

	return nil
}
