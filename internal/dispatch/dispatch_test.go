package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"fieldops-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store used to exercise the dispatcher without a
// database. It relies on the dispatcher's own locking for the matching
// sequence, which is exactly the property under test.
type memStore struct {
	mu          sync.Mutex
	agents      map[string]*models.User
	clients     map[string]*models.Client
	clientOrder []string
	assignments map[string]*models.Assignment
	history     []models.LocationHistory
}

func newMemStore() *memStore {
	return &memStore{
		agents:      make(map[string]*models.User),
		clients:     make(map[string]*models.Client),
		assignments: make(map[string]*models.Assignment),
	}
}

func (s *memStore) addAgent(id string, lat, lng *float64) {
	s.agents[id] = &models.User{
		ID: id, Name: "Agent " + id, Role: models.RoleAgent,
		CurrentLat: lat, CurrentLng: lng, IsActiveAgent: true,
	}
}

func (s *memStore) addClient(id string, active bool) {
	s.clients[id] = &models.Client{
		ID: id, Name: "Client " + id, Phone: "+91-000", Address: "Bangalore",
		Latitude: 12.93, Longitude: 77.62, Priority: 2, IsActive: active,
	}
	s.clientOrder = append(s.clientOrder, id)
}

func (s *memStore) AgentByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	copied := *agent
	return &copied, nil
}

func (s *memStore) AvailableClients(_ context.Context) ([]models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var available []models.Client
	for _, id := range s.clientOrder {
		client := s.clients[id]
		if !client.IsActive {
			continue
		}
		if s.activeAssignmentForClientLocked(id) != nil {
			continue
		}
		available = append(available, *client)
	}
	return available, nil
}

func (s *memStore) activeAssignmentForClientLocked(clientID string) *models.Assignment {
	for _, a := range s.assignments {
		if a.ClientID == clientID && a.IsActive() {
			return a
		}
	}
	return nil
}

func (s *memStore) ActiveAssignmentByAgent(_ context.Context, agentID string) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.AgentID == agentID && a.IsActive() {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) AssignmentByID(_ context.Context, id string) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *memStore) CreateAssignment(_ context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *a
	s.assignments[a.ID] = &copied
	return nil
}

func (s *memStore) SaveAssignment(_ context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[a.ID]; !ok {
		return ErrAssignmentNotFound
	}
	copied := *a
	s.assignments[a.ID] = &copied
	return nil
}

func (s *memStore) SetAgentLocation(_ context.Context, agentID string, point models.GeoPoint, accuracy *float64, assignmentID *string) (*models.LocationHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return nil, ErrAgentNotFound
	}
	agent.CurrentLat = &point.Latitude
	agent.CurrentLng = &point.Longitude
	entry := models.LocationHistory{
		ID: uuid.New().String(), AgentID: agentID,
		Latitude: point.Latitude, Longitude: point.Longitude,
		Accuracy: accuracy, AssignmentID: assignmentID,
		RecordedAt: time.Now().Unix(),
	}
	s.history = append(s.history, entry)
	return &entry, nil
}

// recordingNotifier captures broadcasts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]Event // group -> events
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string][]Event)}
}

func (n *recordingNotifier) Broadcast(group string, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[group] = append(n.events[group], event)
}

func (n *recordingNotifier) eventsFor(group string) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events[group]...)
}

func ptr(v float64) *float64 { return &v }

func newTestDispatcher(store *memStore) (*Dispatcher, *recordingNotifier) {
	notifier := newRecordingNotifier()
	return NewDispatcher(store, notifier, FirstAvailable{}), notifier
}

func TestRequestAssignment(t *testing.T) {
	ctx := context.Background()

	t.Run("fails when agent has no location", func(t *testing.T) {
		store := newMemStore()
		store.addAgent("a1", nil, nil)
		store.addClient("c1", true)
		d, _ := newTestDispatcher(store)

		_, err := d.RequestAssignment(ctx, "a1", "mgr")
		require.ErrorIs(t, err, ErrAgentLocationUnknown)
	})

	t.Run("fails for unknown agent", func(t *testing.T) {
		store := newMemStore()
		d, _ := newTestDispatcher(store)

		_, err := d.RequestAssignment(ctx, "ghost", "mgr")
		require.ErrorIs(t, err, ErrAgentNotFound)
	})

	t.Run("fails when agent already assigned", func(t *testing.T) {
		store := newMemStore()
		store.addAgent("a1", ptr(12.97), ptr(77.59))
		store.addClient("c1", true)
		store.addClient("c2", true)
		d, _ := newTestDispatcher(store)

		_, err := d.RequestAssignment(ctx, "a1", "mgr")
		require.NoError(t, err)

		_, err = d.RequestAssignment(ctx, "a1", "mgr")
		require.ErrorIs(t, err, ErrAgentAlreadyAssigned)
	})

	t.Run("fails when no clients available", func(t *testing.T) {
		store := newMemStore()
		store.addAgent("a1", ptr(12.97), ptr(77.59))
		store.addClient("c1", false) // inactive
		d, _ := newTestDispatcher(store)

		_, err := d.RequestAssignment(ctx, "a1", "mgr")
		require.ErrorIs(t, err, ErrNoAvailableClients)
	})

	t.Run("skips clients covered by an active assignment", func(t *testing.T) {
		store := newMemStore()
		store.addAgent("other", ptr(12.90), ptr(77.60))
		store.addAgent("a1", ptr(12.97), ptr(77.59))
		store.addClient("c1", true)
		store.addClient("c2", true)
		d, _ := newTestDispatcher(store)

		// c1 is first in store order, so "other" takes it
		first, err := d.RequestAssignment(ctx, "other", "mgr")
		require.NoError(t, err)
		require.Equal(t, "c1", first.ClientID)

		// a1 must get c2, never c1
		second, err := d.RequestAssignment(ctx, "a1", "mgr")
		require.NoError(t, err)
		require.Equal(t, "c2", second.ClientID)
	})

	t.Run("created assignment has assigned state and metadata", func(t *testing.T) {
		store := newMemStore()
		store.addAgent("a1", ptr(12.9716), ptr(77.5946))
		store.addClient("c1", true)
		d, notifier := newTestDispatcher(store)

		detail, err := d.RequestAssignment(ctx, "a1", "mgr")
		require.NoError(t, err)
		require.Equal(t, models.StatusAssigned, detail.Status)
		require.NotZero(t, detail.AssignedAt)
		require.NotNil(t, detail.CreatedBy)
		require.Equal(t, "mgr", *detail.CreatedBy)
		require.NotNil(t, detail.DistanceToClientKm)
		require.Greater(t, *detail.DistanceToClientKm, 0.0)
		require.Equal(t, "Client c1", detail.ClientName)

		// Pushed to the matched agent's group and the managers group
		agentEvents := notifier.eventsFor(AgentGroup("a1"))
		require.Len(t, agentEvents, 1)
		require.Equal(t, "assignment", agentEvents[0].Type)
		require.Len(t, notifier.eventsFor(GroupManagers), 1)
	})
}

func TestRequestAssignmentExclusivityUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	const agents = 8
	const clients = 5
	const attemptsPerAgent = 10

	for i := 0; i < agents; i++ {
		store.addAgent(fmt.Sprintf("a%d", i), ptr(12.9+float64(i)*0.01), ptr(77.6))
	}
	for i := 0; i < clients; i++ {
		store.addClient(fmt.Sprintf("c%d", i), true)
	}

	d, _ := newTestDispatcher(store)

	var wg sync.WaitGroup
	for i := 0; i < agents; i++ {
		for j := 0; j < attemptsPerAgent; j++ {
			wg.Add(1)
			go func(agent string) {
				defer wg.Done()
				_, _ = d.RequestAssignment(ctx, agent, "mgr")
			}(fmt.Sprintf("a%d", i))
		}
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()

	activePerAgent := make(map[string]int)
	activePerClient := make(map[string]int)
	for _, a := range store.assignments {
		if a.IsActive() {
			activePerAgent[a.AgentID]++
			activePerClient[a.ClientID]++
		}
	}
	for agent, count := range activePerAgent {
		require.LessOrEqual(t, count, 1, "agent %s has %d active assignments", agent, count)
	}
	for client, count := range activePerClient {
		require.LessOrEqual(t, count, 1, "client %s has %d active assignments", client, count)
	}

	// 8 agents racing over 5 clients: every client ends up taken
	require.Len(t, activePerClient, clients)
}

func TestTransitionAssignment(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Dispatcher, *recordingNotifier, string) {
		store := newMemStore()
		store.addAgent("a1", ptr(12.97), ptr(77.59))
		store.addClient("c1", true)
		d, notifier := newTestDispatcher(store)
		detail, err := d.RequestAssignment(ctx, "a1", "mgr")
		require.NoError(t, err)
		return d, notifier, detail.ID
	}

	t.Run("full lifecycle", func(t *testing.T) {
		d, notifier, id := setup(t)

		a, err := d.TransitionAssignment(ctx, id, models.StatusInProgress, "")
		require.NoError(t, err)
		require.Equal(t, models.StatusInProgress, a.Status)
		require.NotNil(t, a.StartedAt)

		a, err = d.TransitionAssignment(ctx, id, models.StatusCompleted, "done")
		require.NoError(t, err)
		require.Equal(t, models.StatusCompleted, a.Status)
		require.NotNil(t, a.CompletedAt)
		require.NotNil(t, a.ActualDuration)

		// assignment + two status updates on the agent group, mirrored to managers
		require.Len(t, notifier.eventsFor(AgentGroup("a1")), 3)
		require.Len(t, notifier.eventsFor(GroupManagers), 3)
	})

	t.Run("invalid transition is rejected", func(t *testing.T) {
		d, _, id := setup(t)

		_, err := d.TransitionAssignment(ctx, id, models.StatusCompleted, "")
		require.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		d, _, _ := setup(t)
		_, err := d.TransitionAssignment(ctx, "nope", models.StatusInProgress, "")
		require.ErrorIs(t, err, ErrAssignmentNotFound)
	})

	t.Run("concurrent starts yield exactly one success", func(t *testing.T) {
		d, _, id := setup(t)

		const racers = 16
		results := make(chan error, racers)
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := d.TransitionAssignment(ctx, id, models.StatusInProgress, "")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var successes, conflicts int
		for err := range results {
			if err == nil {
				successes++
			} else {
				require.ErrorIs(t, err, models.ErrInvalidTransition)
				conflicts++
			}
		}
		require.Equal(t, 1, successes)
		require.Equal(t, racers-1, conflicts)
	})

	t.Run("pass-through status is written", func(t *testing.T) {
		d, _, id := setup(t)

		a, err := d.TransitionAssignment(ctx, id, models.AssignmentStatus("on_hold"), "escalated")
		require.NoError(t, err)
		require.Equal(t, models.AssignmentStatus("on_hold"), a.Status)
		require.Nil(t, a.StartedAt)
	})
}

func TestUpdateLocation(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects out-of-range coordinates", func(t *testing.T) {
		store := newMemStore()
		store.addAgent("a1", nil, nil)
		d, _ := newTestDispatcher(store)

		_, err := d.UpdateLocation(ctx, "a1", 91, 0, nil)
		require.ErrorIs(t, err, ErrInvalidCoordinate)
		require.Empty(t, store.history)
	})

	t.Run("updates current location and appends one history row", func(t *testing.T) {
		store := newMemStore()
		store.addAgent("a1", nil, nil)
		d, _ := newTestDispatcher(store)

		entry, err := d.UpdateLocation(ctx, "a1", 12.9, 77.6, ptr(5.0))
		require.NoError(t, err)
		require.Len(t, store.history, 1)
		require.Equal(t, 12.9, entry.Latitude)
		require.Equal(t, 77.6, entry.Longitude)
		require.NotNil(t, entry.Accuracy)
		require.Equal(t, 5.0, *entry.Accuracy)
		require.Nil(t, entry.AssignmentID)

		agent, err := store.AgentByID(ctx, "a1")
		require.NoError(t, err)
		location := agent.CurrentLocation()
		require.NotNil(t, location)
		require.Equal(t, 12.9, location.Latitude)
		require.Equal(t, 77.6, location.Longitude)
	})

	t.Run("history row is stamped with the active assignment", func(t *testing.T) {
		store := newMemStore()
		store.addAgent("a1", ptr(12.97), ptr(77.59))
		store.addClient("c1", true)
		d, _ := newTestDispatcher(store)

		detail, err := d.RequestAssignment(ctx, "a1", "mgr")
		require.NoError(t, err)

		entry, err := d.UpdateLocation(ctx, "a1", 12.95, 77.61, nil)
		require.NoError(t, err)
		require.NotNil(t, entry.AssignmentID)
		require.Equal(t, detail.ID, *entry.AssignmentID)
	})

	t.Run("unknown agent", func(t *testing.T) {
		store := newMemStore()
		d, _ := newTestDispatcher(store)
		_, err := d.UpdateLocation(ctx, "ghost", 12.9, 77.6, nil)
		require.ErrorIs(t, err, ErrAgentNotFound)
	})
}

func TestFirstAvailableSelector(t *testing.T) {
	available := []models.Client{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	picked := FirstAvailable{}.Select(&models.User{ID: "a"}, available)
	require.Equal(t, "x", picked.ID)
}
