package models

import (
	"time"

	"github.com/google/uuid"
)

// ResourceType is the closed set of resources grants can scope to.
type ResourceType string

const (
	ResourceProject   ResourceType = "project"
	ResourcePrototype ResourceType = "prototype"
	ResourceUser      ResourceType = "user"
)

// Action is the closed set of operations a permission can allow.
type Action string

const (
	ActionRead     Action = "read"
	ActionWrite    Action = "write"
	ActionDelete   Action = "delete"
	ActionManage   Action = "manage"
	ActionInteract Action = "interact"
)

// Role names a bundle of permissions.
type Role struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// Well-known role names seeded by the migration.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
	RolePlayer = "player"
)

// Permission allows one action on one resource type.
type Permission struct {
	ID       uuid.UUID    `db:"id" json:"id"`
	Name     string       `db:"name" json:"name"`
	Resource ResourceType `db:"resource" json:"resource"`
	Action   Action       `db:"action" json:"action"`
}

// RolePermission joins roles to the permissions they grant.
type RolePermission struct {
	RoleID       uuid.UUID `db:"role_id" json:"role_id"`
	PermissionID uuid.UUID `db:"permission_id" json:"permission_id"`
}

// UserRole is the dynamic grant table: the user holds the role for one
// resource instance, or for every instance of the type when ResourceID
// is nil (global scope).
type UserRole struct {
	UserID       string       `db:"user_id" json:"user_id"`
	RoleID       uuid.UUID    `db:"role_id" json:"role_id"`
	ResourceType ResourceType `db:"resource_type" json:"resource_type"`
	ResourceID   *uuid.UUID   `db:"resource_id" json:"resource_id,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}
