// Package models contains shared data models used across the jobmarket codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of actor roles recognised by the platform.
type Role string

const (
	RoleAmbassador Role = "ambassador"
	RoleCompany    Role = "company"
	RoleAdmin      Role = "admin"
	// RoleSystem is never persisted. It identifies internal callers such as the expiry sweeper.
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAmbassador, RoleCompany, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// User is a registered account. Companies own jobs; ambassadors apply to them.
type User struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	Email       string    `db:"email"        json:"email"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Role        Role      `db:"role"         json:"role"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updated_at"`
}

// Actor is the identity invoking an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// SystemActor is the actor used for scheduled, platform-initiated transitions.
var SystemActor = Actor{ID: uuid.Nil, Role: RoleSystem}
