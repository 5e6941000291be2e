package models

// User roles
const (
	RoleAgent   = "agent"
	RoleManager = "manager"
)

type User struct {
	ID            string   `json:"id" db:"id"`
	Email         string   `json:"email" db:"email"`
	Password      string   `json:"-" db:"password"` // Never return password in JSON
	Name          string   `json:"name" db:"name"`
	Role          string   `json:"role" db:"role"` // "agent" or "manager"
	Phone         *string  `json:"phone,omitempty" db:"phone"`
	CurrentLat    *float64 `json:"current_latitude,omitempty" db:"current_latitude"`
	CurrentLng    *float64 `json:"current_longitude,omitempty" db:"current_longitude"`
	IsActiveAgent bool     `json:"is_active_agent" db:"is_active_agent"`
	CreatedAt     int64    `json:"created_at" db:"created_at"`
	UpdatedAt     int64    `json:"updated_at" db:"updated_at"`
}

// CurrentLocation returns the agent's last reported position, or nil if the
// agent has never reported one.
func (u *User) CurrentLocation() *GeoPoint {
	if u.CurrentLat == nil || u.CurrentLng == nil {
		return nil
	}
	return &GeoPoint{Latitude: *u.CurrentLat, Longitude: *u.CurrentLng}
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
}

func (u *User) ToUserResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
