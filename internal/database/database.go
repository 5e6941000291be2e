package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('agent', 'manager')),
			phone TEXT,
			current_latitude DOUBLE PRECISION,
			current_longitude DOUBLE PRECISION,
			is_active_agent BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			CHECK (current_latitude IS NULL OR (current_latitude BETWEEN -90 AND 90)),
			CHECK (current_longitude IS NULL OR (current_longitude BETWEEN -180 AND 180))
		)`,

		// Create clients table
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL,
			email TEXT,
			address TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
			longitude DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
			priority INT NOT NULL DEFAULT 2 CHECK (priority BETWEEN 1 AND 4),
			notes TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create assignments table
		`CREATE TABLE IF NOT EXISTS assignments (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'assigned',
			assigned_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			started_at BIGINT,
			completed_at BIGINT,
			notes TEXT,
			estimated_duration_secs BIGINT,
			actual_duration_secs BIGINT,
			distance_to_client_km DOUBLE PRECISION,
			created_by TEXT,
			FOREIGN KEY (agent_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE,
			FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE SET NULL
		)`,

		// Exclusivity backstop: at most one active assignment per agent and
		// per client, enforced even across multiple service instances
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_active_agent
			ON assignments(agent_id) WHERE status IN ('assigned', 'in_progress')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_active_client
			ON assignments(client_id) WHERE status IN ('assigned', 'in_progress')`,

		// Create location_history table (append-only)
		`CREATE TABLE IF NOT EXISTS location_history (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
			longitude DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
			accuracy DOUBLE PRECISION,
			assignment_id TEXT,
			recorded_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (agent_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (assignment_id) REFERENCES assignments(id) ON DELETE SET NULL
		)`,

		// Create device_tokens table (FCM push targets)
		`CREATE TABLE IF NOT EXISTS device_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			platform TEXT NOT NULL CHECK(platform IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_is_active ON clients(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_agent_id ON assignments(agent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_client_id ON assignments(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_status ON assignments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_assigned_at ON assignments(assigned_at)`,
		`CREATE INDEX IF NOT EXISTS idx_location_history_agent_id ON location_history(agent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_location_history_recorded_at ON location_history(recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_device_tokens_user_id ON device_tokens(user_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
