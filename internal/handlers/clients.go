package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"fieldops-backend/internal/models"
	"fieldops-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type createClientRequest struct {
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Email     *string  `json:"email,omitempty"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Priority  int      `json:"priority"`
	Notes     *string  `json:"notes,omitempty"`
}

// GetClients lists all clients, highest priority first. Manager-only.
func GetClients(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var clients []models.Client
		query := `SELECT * FROM clients ORDER BY priority DESC, name ASC`
		if err := db.Select(&clients, query); err != nil {
			log.Printf("❌ Error getting clients: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": clients})
	}
}

// CreateClient adds a single visit target. Manager-only. Bulk spreadsheet
// import stays on the admin side of the system.
func CreateClient(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createClientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" || req.Phone == "" || req.Address == "" {
			utils.RespondError(w, http.StatusBadRequest, "name, phone and address are required")
			return
		}
		if req.Latitude == nil || req.Longitude == nil {
			utils.RespondError(w, http.StatusBadRequest, "latitude and longitude are required")
			return
		}

		point, err := models.NewGeoPoint(*req.Latitude, *req.Longitude)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		priority := req.Priority
		if priority == 0 {
			priority = 2
		}
		if priority < 1 || priority > 4 {
			utils.RespondError(w, http.StatusBadRequest, "priority must be between 1 and 4")
			return
		}

		id := uuid.New().String()
		query := `INSERT INTO clients (id, name, phone, email, address, latitude, longitude, priority, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err = db.Exec(query, id, req.Name, req.Phone, req.Email, req.Address,
			point.Latitude, point.Longitude, priority, req.Notes)
		if err != nil {
			log.Printf("❌ Error creating client: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"message":   "Client created successfully",
			"client_id": id,
		})
	}
}
