package main

import (
	"log"
	"os"

	"fieldops-backend/internal/database"

	"github.com/joho/godotenv"
)

// Standalone migration runner for deploy pipelines that migrate before
// rolling the server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables from system")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ Migrations failed: %v", err)
	}

	log.Println("✅ Migrations completed")
}
