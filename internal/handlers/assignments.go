package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fieldops-backend/internal/dispatch"
	"fieldops-backend/internal/middleware"
	"fieldops-backend/internal/models"
	"fieldops-backend/internal/services"
	"fieldops-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type autoAssignRequest struct {
	AgentID string `json:"agent_id"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// AutoAssign matches an agent to an available client. Manager-only.
func AutoAssign(d *dispatch.Dispatcher, db *sqlx.DB, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req autoAssignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" {
			utils.RespondError(w, http.StatusBadRequest, "agent_id is required")
			return
		}

		detail, err := d.RequestAssignment(r.Context(), req.AgentID, userClaims.UserID)
		if err != nil {
			respondDispatchError(w, err)
			return
		}

		notifyAgentDevices(db, fcm, detail)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message":       "Assignment created successfully",
			"assignment_id": detail.ID,
			"client_name":   detail.ClientName,
		})
	}
}

// UpdateAssignmentStatus drives the assignment state machine.
func UpdateAssignmentStatus(d *dispatch.Dispatcher, db *sqlx.DB, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := chi.URLParam(r, "id")

		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
			utils.RespondError(w, http.StatusBadRequest, "status is required")
			return
		}

		assignment, err := d.TransitionAssignment(r.Context(), assignmentID, models.AssignmentStatus(req.Status), req.Notes)
		if err != nil {
			respondDispatchError(w, err)
			return
		}

		notifyStatusChange(db, fcm, assignment)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Assignment status updated successfully",
			"status":  assignment.Status,
		})
	}
}

// GetCurrentAssignment returns the requester's active assignment, or null.
func GetCurrentAssignment(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var detail models.AssignmentDetail
		query := `SELECT a.*,
				u.name AS agent_name,
				c.name AS client_name,
				c.address AS client_address,
				c.latitude AS client_latitude,
				c.longitude AS client_longitude
			FROM assignments a
			JOIN users u ON u.id = a.agent_id
			JOIN clients c ON c.id = a.client_id
			WHERE a.agent_id = $1 AND a.status IN ('assigned', 'in_progress')
			LIMIT 1`
		err := db.Get(&detail, query, userClaims.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": nil})
			return
		}
		if err != nil {
			log.Printf("❌ Error getting current assignment: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": detail})
	}
}

// GetAssignmentHistory returns the requester's recent assignments.
func GetAssignmentHistory(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var history []models.AssignmentDetail
		query := `SELECT a.*,
				u.name AS agent_name,
				c.name AS client_name,
				c.address AS client_address,
				c.latitude AS client_latitude,
				c.longitude AS client_longitude
			FROM assignments a
			JOIN users u ON u.id = a.agent_id
			JOIN clients c ON c.id = a.client_id
			WHERE a.agent_id = $1
			ORDER BY a.assigned_at DESC
			LIMIT 10`
		if err := db.Select(&history, query, userClaims.UserID); err != nil {
			log.Printf("❌ Error getting assignment history: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": history})
	}
}

// notifyAgentDevices pushes an FCM notification for each of the agent's
// registered devices. Best-effort: failures are logged, never surfaced.
func notifyAgentDevices(db *sqlx.DB, fcm *services.FCMService, detail *models.AssignmentDetail) {
	if fcm == nil {
		return
	}

	var tokens []string
	if err := db.Select(&tokens, `SELECT token FROM device_tokens WHERE user_id = $1`, detail.AgentID); err != nil {
		log.Printf("⚠️  Failed to load device tokens for %s: %v", detail.AgentID, err)
		return
	}
	for _, token := range tokens {
		if err := fcm.SendAssignmentNotification(token, detail.ID, detail.ClientName); err != nil {
			log.Printf("⚠️  FCM push failed for %s: %v", detail.AgentID, err)
		}
	}
}

// notifyStatusChange mirrors notifyAgentDevices for status transitions.
func notifyStatusChange(db *sqlx.DB, fcm *services.FCMService, assignment *models.Assignment) {
	if fcm == nil {
		return
	}

	var tokens []string
	if err := db.Select(&tokens, `SELECT token FROM device_tokens WHERE user_id = $1`, assignment.AgentID); err != nil {
		log.Printf("⚠️  Failed to load device tokens for %s: %v", assignment.AgentID, err)
		return
	}
	for _, token := range tokens {
		if err := fcm.SendStatusUpdateNotification(token, assignment.ID, string(assignment.Status)); err != nil {
			log.Printf("⚠️  FCM push failed for %s: %v", assignment.AgentID, err)
		}
	}
}

// respondDispatchError maps dispatcher failures onto the wire taxonomy:
// bad input 400, not found 404, conflict 409.
func respondDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrInvalidCoordinate):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrAgentLocationUnknown):
		utils.RespondError(w, http.StatusBadRequest, "Agent location not available")
	case errors.Is(err, dispatch.ErrAgentAlreadyAssigned):
		utils.RespondError(w, http.StatusConflict, "Agent already has an active assignment")
	case errors.Is(err, dispatch.ErrNoAvailableClients):
		utils.RespondError(w, http.StatusNotFound, "No available clients")
	case errors.Is(err, dispatch.ErrAgentNotFound),
		errors.Is(err, dispatch.ErrAssignmentNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		utils.RespondError(w, http.StatusConflict, "Invalid status transition")
	default:
		log.Printf("❌ Dispatch error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
