package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a seat within exactly one prototype version. A seat may be
// bound to a real user once someone joins the room.
type Player struct {
	ID        uuid.UUID `db:"id" json:"id"`
	VersionID uuid.UUID `db:"version_id" json:"version_id"`

	// UserID is nil while the seat is unclaimed.
	UserID *string `db:"user_id" json:"user_id,omitempty"`

	Name      string `db:"name" json:"name"`
	SeatOrder int    `db:"seat_order" json:"seat_order"`

	// OriginalPlayerID points one hop back at the seat this one was
	// cloned from; nil for an originally-authored seat. It never chains:
	// a clone of a clone still points at its direct source.
	OriginalPlayerID *uuid.UUID `db:"original_player_id" json:"original_player_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
