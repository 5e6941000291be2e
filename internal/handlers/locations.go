package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"fieldops-backend/internal/dispatch"
	"fieldops-backend/internal/middleware"
	"fieldops-backend/internal/models"
	"fieldops-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

type updateLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

type registerDeviceTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"` // "ios" or "android"
}

// UpdateLocation records the requesting agent's position. The REST variant
// of the WebSocket location_update message; sent every few seconds while an
// agent is in the field.
func UpdateLocation(d *dispatch.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if userClaims.Role != models.RoleAgent {
			utils.RespondError(w, http.StatusForbidden, "Only agents report locations")
			return
		}

		var req updateLocationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Latitude == nil || req.Longitude == nil {
			utils.RespondError(w, http.StatusBadRequest, "latitude and longitude are required")
			return
		}

		_, err := d.UpdateLocation(r.Context(), userClaims.UserID, *req.Latitude, *req.Longitude, req.Accuracy)
		if err != nil {
			respondDispatchError(w, err)
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"message": "Location updated successfully",
		})
	}
}

// RegisterDeviceToken stores an FCM device token for the requester.
func RegisterDeviceToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req registerDeviceTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}
		if req.Platform != "ios" && req.Platform != "android" {
			utils.RespondError(w, http.StatusBadRequest, "platform must be ios or android")
			return
		}

		query := `INSERT INTO device_tokens (user_id, token, platform)
			VALUES ($1, $2, $3)
			ON CONFLICT (token)
			DO UPDATE SET
				user_id = EXCLUDED.user_id,
				platform = EXCLUDED.platform,
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT`
		if _, err := db.Exec(query, userClaims.UserID, req.Token, req.Platform); err != nil {
			log.Printf("❌ Error registering device token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"message": "Device token registered",
		})
	}
}
