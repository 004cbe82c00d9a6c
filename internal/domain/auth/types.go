// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
type Role string

const (
	// RoleAdmin may use every endpoint.
	RoleAdmin Role = "admin"
	// RoleUser is a doctor: may submit jobs and keep a patient registry.
	RoleUser Role = "user"
	// RoleGuest is authenticated but without a mapped group.
	RoleGuest Role = "guest"
)

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (e.g., sub or preferred_username)
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	ExpiresAt time.Time // absolute expiry from IdP token
}

// Session is the server-side record persisted for an authenticated user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsGuest returns true if the session role is guest.
func (s Session) IsGuest() bool { return s.Role == RoleGuest }

// IsDoctor reports whether the session may submit jobs and manage patients.
func (s Session) IsDoctor() bool { return s.Role == RoleUser || s.Role == RoleAdmin }

// Principal is the identity recorded as owner, share recipient and sharer:
// the lower-cased email, or the user id when the IdP supplied no email.
func (s Session) Principal() string {
	if p := strings.ToLower(strings.TrimSpace(s.Email)); p != "" {
		return p
	}
	return strings.ToLower(strings.TrimSpace(s.UserID))
}
