package handlers

import (
	"net/http"
	"strconv"

	"fieldops-backend/internal/models"
	"fieldops-backend/pkg/utils"
)

// GetRoute returns a straight-line placeholder route between two points.
// Deliberately not a routing engine: the response is the two endpoints with
// zero distance and duration, which the map layer renders as a direct line
// until a real routing provider is wired in.
func GetRoute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startLat, err1 := strconv.ParseFloat(r.URL.Query().Get("start_lat"), 64)
		startLng, err2 := strconv.ParseFloat(r.URL.Query().Get("start_lng"), 64)
		endLat, err3 := strconv.ParseFloat(r.URL.Query().Get("end_lat"), 64)
		endLng, err4 := strconv.ParseFloat(r.URL.Query().Get("end_lng"), 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			utils.RespondError(w, http.StatusBadRequest, "start_lat, start_lng, end_lat, end_lng are required")
			return
		}

		if _, err := models.NewGeoPoint(startLat, startLng); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := models.NewGeoPoint(endLat, endLng); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"coordinates":  [][]float64{{startLng, startLat}, {endLng, endLat}},
			"distance":     0,
			"duration":     0,
			"instructions": []string{"Follow the route to destination"},
		})
	}
}
