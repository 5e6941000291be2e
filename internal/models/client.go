package models

// Client is a visit target created by the import/admin side of the system.
// The dispatcher treats a client as available when it is active and no
// assignment in {assigned, in_progress} references it.
type Client struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Phone     string  `json:"phone" db:"phone"`
	Email     *string `json:"email,omitempty" db:"email"`
	Address   string  `json:"address" db:"address"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Priority  int     `json:"priority" db:"priority"` // 1=Low, 2=Medium, 3=High, 4=Urgent
	Notes     *string `json:"notes,omitempty" db:"notes"`
	IsActive  bool    `json:"is_active" db:"is_active"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
	UpdatedAt int64   `json:"updated_at" db:"updated_at"`
}

// Location returns the client's coordinates as a GeoPoint.
func (c *Client) Location() GeoPoint {
	return GeoPoint{Latitude: c.Latitude, Longitude: c.Longitude}
}
