package models

import (
	"time"
)

// Tenant represents an organization, the unit of data isolation.
// One tenant is created per registration in the current version.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTenant creates a new Tenant with an initialized timestamp.
func NewTenant(name string) *Tenant {
	return &Tenant{
		Name:      name,
		CreatedAt: time.Now(),
	}
}
