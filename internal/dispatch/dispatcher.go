package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"fieldops-backend/internal/models"

	"github.com/google/uuid"
)

// Store is the persistence surface the dispatcher needs. The SQL
// implementation lives in internal/database; tests run against an
// in-memory implementation.
type Store interface {
	AgentByID(ctx context.Context, id string) (*models.User, error)

	// AvailableClients returns every active client that has no assignment
	// in {assigned, in_progress}.
	AvailableClients(ctx context.Context) ([]models.Client, error)

	// ActiveAssignmentByAgent returns the agent's assignment in
	// {assigned, in_progress}, or nil when the agent has none.
	ActiveAssignmentByAgent(ctx context.Context, agentID string) (*models.Assignment, error)
	AssignmentByID(ctx context.Context, id string) (*models.Assignment, error)
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	SaveAssignment(ctx context.Context, a *models.Assignment) error

	// SetAgentLocation atomically overwrites the agent's current position
	// and appends one location history row.
	SetAgentLocation(ctx context.Context, agentID string, point models.GeoPoint, accuracy *float64, assignmentID *string) (*models.LocationHistory, error)
}

// Notifier fans an event out to every live connection in a group. Delivery
// is best-effort; the dispatcher never waits on it.
type Notifier interface {
	Broadcast(group string, event Event)
}

// Event is one notification frame pushed to connected clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Dispatcher owns the assignment matching policy, the assignment state
// machine, and the location ledger. All writes to assignments go through
// here.
type Dispatcher struct {
	store    Store
	notifier Notifier
	selector ClientSelector

	// matchMu serializes the check-then-create sequence of
	// RequestAssignment so two concurrent requests cannot double-assign an
	// agent or a client.
	matchMu sync.Mutex

	// assignMu serializes transitions per assignment ID.
	assignMu *keyedMutex

	now func() time.Time
}

func NewDispatcher(store Store, notifier Notifier, selector ClientSelector) *Dispatcher {
	if selector == nil {
		selector = FirstAvailable{}
	}
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		selector: selector,
		assignMu: newKeyedMutex(),
		now:      time.Now,
	}
}

// RequestAssignment matches agentID to an available client and creates an
// assignment in state "assigned". requestedBy is the user who triggered the
// match (a manager, or the agent itself).
func (d *Dispatcher) RequestAssignment(ctx context.Context, agentID, requestedBy string) (*models.AssignmentDetail, error) {
	agent, err := d.store.AgentByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	location := agent.CurrentLocation()
	if location == nil {
		return nil, ErrAgentLocationUnknown
	}

	d.matchMu.Lock()
	defer d.matchMu.Unlock()

	active, err := d.store.ActiveAssignmentByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrAgentAlreadyAssigned
	}

	available, err := d.store.AvailableClients(ctx)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, ErrNoAvailableClients
	}

	client := d.selector.Select(agent, available)
	distance := models.HaversineKm(*location, client.Location())

	assignment := &models.Assignment{
		ID:                 uuid.New().String(),
		AgentID:            agent.ID,
		ClientID:           client.ID,
		Status:             models.StatusAssigned,
		AssignedAt:         d.now().Unix(),
		DistanceToClientKm: &distance,
	}
	if requestedBy != "" {
		assignment.CreatedBy = &requestedBy
	}

	if err := d.store.CreateAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	detail := &models.AssignmentDetail{
		Assignment:    *assignment,
		AgentName:     agent.Name,
		ClientName:    client.Name,
		ClientAddress: client.Address,
		ClientLat:     client.Latitude,
		ClientLng:     client.Longitude,
	}

	log.Printf("📋 Assignment %s created: agent %s -> client %s (%.2f km)",
		assignment.ID, agent.Name, client.Name, distance)

	d.notifier.Broadcast(AgentGroup(agent.ID), Event{Type: "assignment", Data: detail})
	d.notifier.Broadcast(GroupManagers, Event{Type: "assignment", Data: detail})

	return detail, nil
}

// TransitionAssignment applies a status change to one assignment.
// Concurrent transitions on the same assignment serialize on its ID, so the
// state machine's validity checks always see a consistent prior state.
func (d *Dispatcher) TransitionAssignment(ctx context.Context, assignmentID string, requested models.AssignmentStatus, notes string) (*models.Assignment, error) {
	d.assignMu.Lock(assignmentID)
	defer d.assignMu.Unlock(assignmentID)

	assignment, err := d.store.AssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	previous := assignment.Status
	if err := assignment.Apply(requested, notes, d.now()); err != nil {
		return nil, err
	}

	switch requested {
	case models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
	default:
		log.Printf("⚠️  Assignment %s: pass-through status write %q -> %q", assignmentID, previous, requested)
	}

	if err := d.store.SaveAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("save assignment: %w", err)
	}

	update := map[string]interface{}{
		"assignment_id": assignment.ID,
		"agent_id":      assignment.AgentID,
		"client_id":     assignment.ClientID,
		"status":        assignment.Status,
		"started_at":    assignment.StartedAt,
		"completed_at":  assignment.CompletedAt,
	}
	d.notifier.Broadcast(AgentGroup(assignment.AgentID), Event{Type: "status_update", Data: update})
	d.notifier.Broadcast(GroupManagers, Event{Type: "status_update", Data: update})

	return assignment, nil
}

// UpdateLocation validates the coordinates, overwrites the agent's current
// position, and appends one history row stamped with the agent's active
// assignment at the moment of the call. Validation failures are returned to
// the caller immediately; nothing is clamped or retried.
func (d *Dispatcher) UpdateLocation(ctx context.Context, agentID string, latitude, longitude float64, accuracy *float64) (*models.LocationHistory, error) {
	point, err := models.NewGeoPoint(latitude, longitude)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinate, err)
	}

	if _, err := d.store.AgentByID(ctx, agentID); err != nil {
		return nil, err
	}

	var assignmentID *string
	if active, err := d.store.ActiveAssignmentByAgent(ctx, agentID); err != nil {
		return nil, err
	} else if active != nil {
		assignmentID = &active.ID
	}

	entry, err := d.store.SetAgentLocation(ctx, agentID, point, accuracy, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("set agent location: %w", err)
	}
	return entry, nil
}

// CurrentAssignment returns the agent's active assignment, or nil.
func (d *Dispatcher) CurrentAssignment(ctx context.Context, agentID string) (*models.Assignment, error) {
	return d.store.ActiveAssignmentByAgent(ctx, agentID)
}
