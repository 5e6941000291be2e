package dispatch

import "fieldops-backend/internal/models"

// ClientSelector picks one client from the available set computed by the
// dispatcher. The selection policy deliberately does not rank candidates by
// distance to the requesting agent; any pick from the set is conformant.
// Keeping the policy behind this interface isolates that limitation so a
// distance-ranked strategy can be substituted without touching the
// exclusivity logic.
type ClientSelector interface {
	// Select returns one client from available. available is never empty.
	Select(agent *models.User, available []models.Client) models.Client
}

// FirstAvailable picks the first client in the set, in store order.
type FirstAvailable struct{}

func (FirstAvailable) Select(_ *models.User, available []models.Client) models.Client {
	return available[0]
}
