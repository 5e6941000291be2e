package main

import (
	"log"
	"net/http"
	"os"

	"fieldops-backend/internal/database"
	"fieldops-backend/internal/dispatch"
	"fieldops-backend/internal/handlers"
	"fieldops-backend/internal/middleware"
	"fieldops-backend/internal/models"
	"fieldops-backend/internal/services"
	"fieldops-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("🚀 FIELDOPS BACKEND SERVER STARTING")

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables from system")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	if os.Getenv("APP_JWT_SECRET") == "" {
		log.Fatal("APP_JWT_SECRET environment variable is required")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ Database migrations failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ User seeding failed: %v", err)
	}
	if err := database.SeedClients(db); err != nil {
		log.Fatalf("❌ Client seeding failed: %v", err)
	}

	// Firebase Cloud Messaging is optional: without credentials the server
	// runs with push disabled and WebSocket delivery only.
	var fcmService *services.FCMService
	if creds := os.Getenv("FIREBASE_CREDENTIALS_BASE64"); creds != "" {
		fcmService, err = services.NewFCMServiceFromBase64(creds)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		}
	} else if credsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE"); credsFile != "" {
		fcmService, err = services.NewFCMService(credsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		}
	}
	if fcmService != nil {
		log.Println("✅ Firebase Cloud Messaging initialized")
	}

	hub := websocket.NewHub()
	store := database.NewSQLStore(db)
	dispatcher := dispatch.NewDispatcher(store, hub, dispatch.FirstAvailable{})
	log.Println("✅ Dispatcher and WebSocket hub ready")

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication (no auth required)
	r.Post("/api/auth/login", handlers.Login(db))

	// WebSocket endpoints, one per role (token in query parameter)
	r.Get("/ws/agent", websocket.Serve(hub, dispatcher, models.RoleAgent))
	r.Get("/ws/manager", websocket.Serve(hub, dispatcher, models.RoleManager))

	r.Route("/api", func(r chi.Router) {
		// Route placeholder (no auth required, read-only)
		r.Get("/route", handlers.GetRoute())

		// Agent endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Get("/assignments/current", handlers.GetCurrentAssignment(db))
			r.Get("/assignments/history", handlers.GetAssignmentHistory(db))
			r.Post("/assignments/{id}/status", handlers.UpdateAssignmentStatus(dispatcher, db, fcmService))

			r.Post("/agent/location", handlers.UpdateLocation(dispatcher))
			r.Post("/agent/device-token", handlers.RegisterDeviceToken(db))
		})

		// Manager endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole(models.RoleManager))

			r.Post("/assignments/auto-assign", handlers.AutoAssign(dispatcher, db, fcmService))

			r.Get("/dashboard/stats", handlers.GetDashboardStats(db))
			r.Get("/dashboard/agents", handlers.GetAgentsOverview(db))
			r.Get("/dashboard/recent-assignments", handlers.GetRecentAssignments(db))

			r.Get("/clients", handlers.GetClients(db))
			r.Post("/clients", handlers.CreateClient(db))
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🌐 Server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
