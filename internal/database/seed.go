package database

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedUsers creates the demo manager and five field agents scattered
// around central Bangalore. Skipped when users already exist.
func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}
	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	users := []struct {
		email string
		name  string
		role  string
		phone string
		lat   *float64
		lng   *float64
	}{
		{"manager@example.com", "Manager User", "manager", "+91-9876500000", nil, nil},
		{"agent1@example.com", "Agent 1", "agent", "+91-9876543200", f(12.9716), f(77.5946)},
		{"agent2@example.com", "Agent 2", "agent", "+91-9876543201", f(12.9352), f(77.6245)},
		{"agent3@example.com", "Agent 3", "agent", "+91-9876543202", f(13.0067), f(77.5667)},
		{"agent4@example.com", "Agent 4", "agent", "+91-9876543203", f(12.9141), f(77.6101)},
		{"agent5@example.com", "Agent 5", "agent", "+91-9876543204", f(12.9982), f(77.6530)},
	}

	for _, u := range users {
		_, err := db.Exec(`
			INSERT INTO users (id, email, password, name, role, phone, current_latitude, current_longitude)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New().String(), u.email, string(hash), u.name, u.role, u.phone, u.lat, u.lng)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.email, err)
		}
	}

	log.Printf("🌱 Seeded %d users (login: manager@example.com / password123)", len(users))
	return nil
}

// SeedClients creates the sample visit targets. Skipped when clients
// already exist.
func SeedClients(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM clients"); err != nil {
		return err
	}
	if count > 0 {
		log.Println("✓ Clients already seeded, skipping...")
		return nil
	}

	clients := []struct {
		name     string
		phone    string
		email    string
		address  string
		lat      float64
		lng      float64
		priority int
	}{
		{"TechCorp Solutions", "+91-9876510001", "client1@example.com", "Koramangala, Bangalore", 12.9279, 77.6271, 3},
		{"Global Systems Inc", "+91-9876510002", "client2@example.com", "Indiranagar, Bangalore", 12.9719, 77.6412, 2},
		{"Innovate Corp", "+91-9876510003", "client3@example.com", "Whitefield, Bangalore", 12.9698, 77.7500, 4},
		{"StartUp Inc", "+91-9876510004", "client4@example.com", "Electronic City, Bangalore", 12.8456, 77.6621, 1},
		{"Enterprise Ltd", "+91-9876510005", "client5@example.com", "Hebbal, Bangalore", 13.0355, 77.5986, 2},
	}

	for i, c := range clients {
		notes := fmt.Sprintf("Sample client %d for testing", i+1)
		_, err := db.Exec(`
			INSERT INTO clients (id, name, phone, email, address, latitude, longitude, priority, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New().String(), c.name, c.phone, c.email, c.address, c.lat, c.lng, c.priority, notes)
		if err != nil {
			return fmt.Errorf("seed client %s: %w", c.name, err)
		}
	}

	log.Printf("🌱 Seeded %d clients", len(clients))
	return nil
}

func f(v float64) *float64 { return &v }
