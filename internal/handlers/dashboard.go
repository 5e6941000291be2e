package handlers

import (
	"log"
	"net/http"
	"time"

	"fieldops-backend/internal/models"
	"fieldops-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// DashboardStats are the manager dashboard counters.
type DashboardStats struct {
	TotalAgents       int `json:"total_agents" db:"total_agents"`
	ActiveAgents      int `json:"active_agents" db:"active_agents"`
	TotalClients      int `json:"total_clients" db:"total_clients"`
	ActiveAssignments int `json:"active_assignments" db:"active_assignments"`
	CompletedToday    int `json:"completed_today" db:"completed_today"`
}

// AgentOverview is one row of the manager's live-agents view.
type AgentOverview struct {
	AgentID           string   `json:"agent_id" db:"agent_id"`
	Name              string   `json:"name" db:"name"`
	IsActiveAgent     bool     `json:"is_active_agent" db:"is_active_agent"`
	CurrentLat        *float64 `json:"current_latitude,omitempty" db:"current_latitude"`
	CurrentLng        *float64 `json:"current_longitude,omitempty" db:"current_longitude"`
	AssignmentID      *string  `json:"assignment_id,omitempty" db:"assignment_id"`
	AssignmentStatus  *string  `json:"assignment_status,omitempty" db:"assignment_status"`
	AssignedClient    *string  `json:"assigned_client,omitempty" db:"assigned_client"`
	LastLocationAt    *int64   `json:"last_location_at,omitempty" db:"last_location_at"`
}

// GetDashboardStats returns the manager dashboard counters. Manager-only.
func GetDashboardStats(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var stats DashboardStats
		query := `SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'agent') AS total_agents,
			(SELECT COUNT(*) FROM users WHERE role = 'agent' AND is_active_agent = TRUE) AS active_agents,
			(SELECT COUNT(*) FROM clients WHERE is_active = TRUE) AS total_clients,
			(SELECT COUNT(*) FROM assignments WHERE status IN ('assigned', 'in_progress')) AS active_assignments,
			(SELECT COUNT(*) FROM assignments WHERE status = 'completed' AND completed_at >= $1) AS completed_today`
		if err := db.Get(&stats, query, startOfDay(time.Now())); err != nil {
			log.Printf("❌ Error getting dashboard stats: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": stats})
	}
}

// startOfDay returns the epoch second of midnight in now's time zone, so
// the completed-today counter rolls over at local midnight rather than at
// the UTC day boundary.
func startOfDay(now time.Time) int64 {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()).Unix()
}

// GetAgentsOverview lists every agent with last known position and active
// assignment. Manager-only.
func GetAgentsOverview(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var agents []AgentOverview
		query := `SELECT
				u.id AS agent_id,
				u.name,
				u.is_active_agent,
				u.current_latitude,
				u.current_longitude,
				a.id AS assignment_id,
				a.status AS assignment_status,
				c.name AS assigned_client,
				(SELECT MAX(recorded_at) FROM location_history lh WHERE lh.agent_id = u.id) AS last_location_at
			FROM users u
			LEFT JOIN assignments a
				ON a.agent_id = u.id AND a.status IN ('assigned', 'in_progress')
			LEFT JOIN clients c ON c.id = a.client_id
			WHERE u.role = 'agent'
			ORDER BY u.name ASC`
		if err := db.Select(&agents, query); err != nil {
			log.Printf("❌ Error getting agents overview: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": agents})
	}
}

// GetRecentAssignments returns the latest assignments across all agents.
// Manager-only.
func GetRecentAssignments(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var recent []models.AssignmentDetail
		query := `SELECT a.*,
				u.name AS agent_name,
				c.name AS client_name,
				c.address AS client_address,
				c.latitude AS client_latitude,
				c.longitude AS client_longitude
			FROM assignments a
			JOIN users u ON u.id = a.agent_id
			JOIN clients c ON c.id = a.client_id
			ORDER BY a.assigned_at DESC
			LIMIT 10`
		if err := db.Select(&recent, query); err != nil {
			log.Printf("❌ Error getting recent assignments: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": recent})
	}
}
