package models

import (
	"time"

	"github.com/google/uuid"
)

// Access is a group-level grant: it records that a prototype group (an
// editable copy plus its derived instances) is administrable at all.
// Created as a side effect of replicating into a new editable copy.
type Access struct {
	ID        uuid.UUID `db:"id" json:"id"`
	GroupID   uuid.UUID `db:"group_id" json:"group_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserAccess links a user to a group-level Access grant.
type UserAccess struct {
	UserID    string    `db:"user_id" json:"user_id"`
	AccessID  uuid.UUID `db:"access_id" json:"access_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
