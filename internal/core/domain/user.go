package domain

import "time"

const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
)

// SessionTTL is the lifetime of an issued access token.
const SessionTTL = 8 * time.Hour

// PasswordResetTTL bounds how long a reset link stays valid.
const PasswordResetTTL = time.Hour

// ValidRole reports whether role is one PartPulse knows about.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleTechnician
}

// User models an authenticated actor in the system.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	PasswordHash     string     `json:"-"`
	ResetTokenHash   string     `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// UserSummary is the technician view embedded in transfer listings.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Principal is the authenticated caller extracted from a session token.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
