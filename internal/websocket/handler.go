package websocket

import (
	"log"
	"net/http"

	"fieldops-backend/internal/dispatch"
	"fieldops-backend/internal/middleware"
	"fieldops-backend/internal/models"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Restrict in production
		return true
	},
}

// Serve returns the connect handler for one channel kind ("agent" or
// "manager"). The caller's identity comes from the token query parameter;
// an unauthenticated connection, or one whose role does not match the
// channel, is refused before the upgrade and never joins a group.
func Serve(hub *Hub, ledger LocationUpdater, role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userClaims, err := middleware.ParseToken(tokenString)
		if err != nil {
			log.Printf("❌ WebSocket auth failed: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if userClaims.Role != role {
			log.Printf("❌ WebSocket role mismatch: channel %q, token role %q", role, userClaims.Role)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(userClaims.UserID, userClaims.Role, conn, hub, ledger)

		switch role {
		case models.RoleAgent:
			hub.Join(dispatch.AgentGroup(client.UserID), client)
		case models.RoleManager:
			// Managers get their own group plus the shared broadcast group
			hub.Join(dispatch.ManagerGroup(client.UserID), client)
			hub.Join(dispatch.GroupManagers, client)
		}

		go client.WritePump()
		go client.ReadPump()

		log.Printf("✅ WebSocket connection established: %s (%s)", userClaims.Email, userClaims.UserID)
	}
}
