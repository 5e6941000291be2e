package dispatch

import "errors"

// Sentinel errors returned by the Dispatcher. Handlers map these onto HTTP
// statuses; none of them are retried inside the dispatcher.
var (
	// ErrInvalidCoordinate is returned when a latitude/longitude pair is
	// outside the WGS84 ranges.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrAgentNotFound is returned when the referenced user does not exist
	// or is not a field agent.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAssignmentNotFound is returned when the referenced assignment does
	// not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrAgentLocationUnknown is returned when matching is requested for an
	// agent that has never reported a position.
	ErrAgentLocationUnknown = errors.New("agent location not available")

	// ErrAgentAlreadyAssigned is returned when the agent already has an
	// active assignment.
	ErrAgentAlreadyAssigned = errors.New("agent already has an active assignment")

	// ErrNoAvailableClients is returned when every active client is already
	// covered by an active assignment.
	ErrNoAvailableClients = errors.New("no available clients")
)
