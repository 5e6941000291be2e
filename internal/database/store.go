package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fieldops-backend/internal/dispatch"
	"fieldops-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SQLStore implements dispatch.Store on PostgreSQL.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) AgentByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE id = $1 AND role = 'agent'`
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dispatch.ErrAgentNotFound
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &user, nil
}

// AvailableClients returns active clients not referenced by any assignment
// in {assigned, in_progress}, ordered by priority then name like the
// client listing.
func (s *SQLStore) AvailableClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	query := `SELECT * FROM clients
			  WHERE is_active = TRUE
			  AND id NOT IN (
			      SELECT client_id FROM assignments WHERE status IN ('assigned', 'in_progress')
			  )
			  ORDER BY priority DESC, name ASC`
	if err := s.db.SelectContext(ctx, &clients, query); err != nil {
		return nil, fmt.Errorf("list available clients: %w", err)
	}
	return clients, nil
}

func (s *SQLStore) ActiveAssignmentByAgent(ctx context.Context, agentID string) (*models.Assignment, error) {
	var assignment models.Assignment
	query := `SELECT * FROM assignments
			  WHERE agent_id = $1 AND status IN ('assigned', 'in_progress')
			  LIMIT 1`
	err := s.db.GetContext(ctx, &assignment, query, agentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active assignment: %w", err)
	}
	return &assignment, nil
}

func (s *SQLStore) AssignmentByID(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	query := `SELECT * FROM assignments WHERE id = $1`
	if err := s.db.GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dispatch.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return &assignment, nil
}

func (s *SQLStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	query := `INSERT INTO assignments (
			id, agent_id, client_id, status, assigned_at, notes,
			estimated_duration_secs, distance_to_client_km, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.AgentID, a.ClientID, a.Status, a.AssignedAt, a.Notes,
		a.EstimatedDuration, a.DistanceToClientKm, a.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (s *SQLStore) SaveAssignment(ctx context.Context, a *models.Assignment) error {
	query := `UPDATE assignments SET
			status = $2,
			started_at = $3,
			completed_at = $4,
			notes = $5,
			actual_duration_secs = $6
		WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query,
		a.ID, a.Status, a.StartedAt, a.CompletedAt, a.Notes, a.ActualDuration)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return dispatch.ErrAssignmentNotFound
	}
	return nil
}

// SetAgentLocation overwrites the agent's current position and appends one
// location_history row in a single transaction.
func (s *SQLStore) SetAgentLocation(ctx context.Context, agentID string, point models.GeoPoint, accuracy *float64, assignmentID *string) (*models.LocationHistory, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	updateQuery := `UPDATE users SET
			current_latitude = $2,
			current_longitude = $3,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $1`
	result, err := tx.ExecContext(ctx, updateQuery, agentID, point.Latitude, point.Longitude)
	if err != nil {
		return nil, fmt.Errorf("update current location: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, dispatch.ErrAgentNotFound
	}

	entry := &models.LocationHistory{
		ID:           uuid.New().String(),
		AgentID:      agentID,
		Latitude:     point.Latitude,
		Longitude:    point.Longitude,
		Accuracy:     accuracy,
		AssignmentID: assignmentID,
		RecordedAt:   time.Now().Unix(),
	}
	insertQuery := `INSERT INTO location_history (
			id, agent_id, latitude, longitude, accuracy, assignment_id, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = tx.ExecContext(ctx, insertQuery,
		entry.ID, entry.AgentID, entry.Latitude, entry.Longitude,
		entry.Accuracy, entry.AssignmentID, entry.RecordedAt)
	if err != nil {
		return nil, fmt.Errorf("append location history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit location update: %w", err)
	}
	return entry, nil
}
