package models

import (
	"time"

	"github.com/google/uuid"
)

// PrototypeVariant distinguishes the editable master copy of a game from
// the derived room copies players actually sit down at.
type PrototypeVariant string

const (
	// VariantEdit is the master copy collaborators edit.
	VariantEdit PrototypeVariant = "edit"
	// VariantInstance is a derived copy created for a play session.
	VariantInstance PrototypeVariant = "instance"
)

// Project is the sharing container for prototypes. Grants on a project
// carry over to the room instances created under it.
type Project struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	OwnerUserID string    `db:"owner_user_id" json:"owner_user_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Prototype is a user-owned game definition, the root of one or more
// versions. Maps to: prototype table.
type Prototype struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProjectID   uuid.UUID `db:"project_id" json:"project_id"`

	// GroupID links an editable prototype with every instance derived
	// from it. All copies in one group share a single Access grant.
	GroupID uuid.UUID `db:"group_id" json:"group_id"`

	OwnerUserID string           `db:"owner_user_id" json:"owner_user_id"`
	Name        string           `db:"name" json:"name"`
	Variant     PrototypeVariant `db:"variant" json:"variant"`

	MinPlayers int `db:"min_players" json:"min_players"`
	MaxPlayers int `db:"max_players" json:"max_players"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsInstance reports whether the prototype is a derived room copy.
func (p *Prototype) IsInstance() bool {
	return p.Variant == VariantInstance
}

// PrototypeVersion is an append-only snapshot container under a
// prototype. The row itself is never updated after creation; new content
// goes into a new version.
type PrototypeVersion struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PrototypeID   uuid.UUID `db:"prototype_id" json:"prototype_id"`
	VersionNumber int       `db:"version_number" json:"version_number"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
