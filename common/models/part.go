package models

import (
	"time"

	"github.com/google/uuid"
)

// PartKind is the closed set of component types a board can hold.
type PartKind string

const (
	PartCard  PartKind = "card"
	PartDeck  PartKind = "deck"
	PartHand  PartKind = "hand"
	PartToken PartKind = "token"
	PartArea  PartKind = "area"
)

// Part is a node in the component tree scoped to one prototype version.
// ParentID and OwnerID only ever reference rows in the same version.
type Part struct {
	ID        uuid.UUID `db:"id" json:"id"`
	VersionID uuid.UUID `db:"version_id" json:"version_id"`
	Kind      PartKind  `db:"kind" json:"kind"`

	// ParentID references another part in the same version (a card on a
	// deck, a token in an area). Nil for top-level parts.
	ParentID *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`

	// OwnerID references a player in the same version. Set on hand-type
	// containers; nil everywhere else.
	OwnerID *uuid.UUID `db:"owner_id" json:"owner_id,omitempty"`

	PosX   int `db:"pos_x" json:"pos_x"`
	PosY   int `db:"pos_y" json:"pos_y"`
	Width  int `db:"width" json:"width"`
	Height int `db:"height" json:"height"`
	ZOrder int `db:"z_order" json:"z_order"`

	// Card state.
	IsReversible bool `db:"is_reversible" json:"is_reversible"`
	IsFlipped    bool `db:"is_flipped" json:"is_flipped"`

	// Deck policy: whether cards flip face-down when returned to it.
	CanReverseCardOnDeck bool `db:"can_reverse_card_on_deck" json:"can_reverse_card_on_deck"`

	// OriginalPartID is the one-hop breadcrumb to the part this one was
	// cloned from; nil if originally authored.
	OriginalPartID *uuid.UUID `db:"original_part_id" json:"original_part_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PropertySide selects which face of a part a property row describes.
type PropertySide string

const (
	SideFront PropertySide = "front"
	SideBack  PropertySide = "back"
)

// PartProperty holds per-side display data for a part.
// Primary key is (PartID, Side).
type PartProperty struct {
	PartID      uuid.UUID    `db:"part_id" json:"part_id"`
	Side        PropertySide `db:"side" json:"side"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description"`
	Color       string       `db:"color" json:"color"`
	TextColor   string       `db:"text_color" json:"text_color"`

	// ImageID is content-addressed and shared between parts; clones copy
	// the reference verbatim, never the image.
	ImageID *string `db:"image_id" json:"image_id,omitempty"`
}
