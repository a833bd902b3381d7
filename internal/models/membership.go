package models

import (
	"time"
)

// Role represents a user's permission level inside a tenant.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleMember Role = "MEMBER"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// ParseRole converts a string to Role. Unknown values map to RoleMember.
func ParseRole(s string) Role {
	if s == string(RoleOwner) {
		return RoleOwner
	}
	return RoleMember
}

// Membership binds a User to a Tenant with a Role.
// The (TenantID, UserID) pair is the composite key; a user holds exactly
// one membership in the current single-tenant-per-user scope.
type Membership struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMembership creates a new Membership with an initialized timestamp.
func NewMembership(tenantID, userID string, role Role) *Membership {
	return &Membership{
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// MembershipDetail is a membership joined to its user and tenant rows.
type MembershipDetail struct {
	Membership
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	TenantName string `json:"tenant_name"`
}

// AuthenticatedUser is the identity resolved from a validated token.
// It is derived per request and never persisted; business operations take
// tenant and user identity from this value only, never from request input.
type AuthenticatedUser struct {
	UserID   string
	TenantID string
	Email    string
	Role     Role
}
