package models

import "time"

// Workshop roles. Role names are stored as-is and checked by the
// authorization middleware.
const (
	RoleAdmin      = "admin"
	RoleAdvisor    = "advisor"
	RoleTechnician = "technician"
	RoleDriver     = "driver"
	RoleGuard      = "guard"
	RoleWasher     = "washer"
)

// KnownRole reports whether role is one of the workshop roles.
func KnownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAdvisor, RoleTechnician, RoleDriver, RoleGuard, RoleWasher:
		return true
	}
	return false
}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
