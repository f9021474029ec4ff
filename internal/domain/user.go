package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization level attached to a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a role value. An empty value maps to RoleUser.
func ParseRole(v string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(v))) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, v)
	}
}

// User represents an account of the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Snapshot returns the identity view of the user carried by sessions.
func (u User) Snapshot() Snapshot {
	return Snapshot{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}
