package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is an issued sign-in token.
type Session struct {
	Token     string    `json:"token"`
	SessionID uuid.UUID `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// SessionInfo describes the state of a presented token.
type SessionInfo struct {
	Valid            bool      `json:"valid"`
	User             *User     `json:"user,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int64     `json:"time_remaining_seconds"`
	ShouldRefresh    bool      `json:"should_refresh"`
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID    uuid.UUID
	Email     string
	Role      string
	SessionID uuid.UUID
	ExpiresAt time.Time
}

// IsAdmin reports whether the caller has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
