package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/cache"
	"github.com/boardforge/boardforge/common/logger"
	"github.com/boardforge/boardforge/common/models"
	"github.com/boardforge/boardforge/common/validation"
)

// PartStore is the persistence surface behind the part routes.
type PartStore interface {
	GetVersion(ctx context.Context, id uuid.UUID) (*models.PrototypeVersion, error)
	ListPlayers(ctx context.Context, versionID uuid.UUID) ([]*models.Player, error)

	GetPart(ctx context.Context, id uuid.UUID) (*models.Part, error)
	CreatePart(ctx context.Context, part *models.Part) error
	UpdatePart(ctx context.Context, part *models.Part) error
	DeletePart(ctx context.Context, id uuid.UUID) error

	GetProperty(ctx context.Context, partID uuid.UUID, side models.PropertySide) (*models.PartProperty, error)
	UpsertProperty(ctx context.Context, prop *models.PartProperty) error
}

// CreatePartInput is the payload of the part create endpoint.
type CreatePartInput struct {
	Kind     models.PartKind `json:"kind"`
	ParentID *uuid.UUID      `json:"parent_id"`
	OwnerID  *uuid.UUID      `json:"owner_id"`

	PosX   int `json:"pos_x"`
	PosY   int `json:"pos_y"`
	Width  int `json:"width"`
	Height int `json:"height"`
	ZOrder int `json:"z_order"`

	IsReversible         bool `json:"is_reversible"`
	CanReverseCardOnDeck bool `json:"can_reverse_card_on_deck"`
}

// MovePartInput is the payload of the part move endpoint. ParentID nil
// detaches the part to the top level.
type MovePartInput struct {
	PosX      int        `json:"pos_x"`
	PosY      int        `json:"pos_y"`
	ZOrder    int        `json:"z_order"`
	ParentID  *uuid.UUID `json:"parent_id"`
	IsFlipped bool       `json:"is_flipped"`
}

// PartService mutates the component tree of a version.
type PartService struct {
	store      PartStore
	authz      *AuthzEngine
	validator  *validation.RuleValidator
	graphCache cache.Cache
	notifier   *Notifier
	log        *logger.Logger
}

// PartServiceOpts contains options for creating a PartService
type PartServiceOpts struct {
	Store      PartStore
	Authz      *AuthzEngine
	Validator  *validation.RuleValidator
	GraphCache cache.Cache
	Notifier   *Notifier
	Logger     *logger.Logger
}

// NewPartService creates a new part service
func NewPartService(opts *PartServiceOpts) *PartService {
	return &PartService{
		store:      opts.Store,
		authz:      opts.Authz,
		validator:  opts.Validator,
		graphCache: opts.GraphCache,
		notifier:   opts.Notifier,
		log:        opts.Logger,
	}
}

// authorizeVersion checks write access through the version's prototype
// and returns the prototype id for the notification.
func (s *PartService) authorizeVersion(ctx context.Context, userID string, versionID uuid.UUID) (uuid.UUID, error) {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return uuid.Nil, err
	}
	prototypeID := version.PrototypeID

	allowed, err := s.authz.HasPermission(ctx, userID, models.ResourcePrototype, models.ActionWrite, &prototypeID)
	if err != nil {
		return uuid.Nil, err
	}
	if !allowed {
		return uuid.Nil, fmt.Errorf("write prototype: %w", ErrForbidden)
	}
	return prototypeID, nil
}

func (s *PartService) invalidateGraph(ctx context.Context, versionID uuid.UUID) {
	if err := s.graphCache.Delete(ctx, graphCacheKey(versionID)); err != nil {
		s.log.Warn("failed to invalidate graph cache", "version_id", versionID, "error", err)
	}
}

// CreatePart adds a part to the version's component tree. A hand with
// no explicit owner is assigned to the version's first seat.
func (s *PartService) CreatePart(ctx context.Context, userID string, versionID uuid.UUID, input CreatePartInput) (*models.Part, error) {
	prototypeID, err := s.authorizeVersion(ctx, userID, versionID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.CheckPart(map[string]interface{}{
		"pos_x":         input.PosX,
		"pos_y":         input.PosY,
		"width":         input.Width,
		"height":        input.Height,
		"is_flipped":    false,
		"is_reversible": input.IsReversible,
	}); err != nil {
		return nil, err
	}

	if input.ParentID != nil {
		if err := s.requireSameVersionPart(ctx, *input.ParentID, versionID, "parent"); err != nil {
			return nil, err
		}
	}

	ownerID := input.OwnerID
	if ownerID == nil && input.Kind == models.PartHand {
		ownerID, err = s.firstSeat(ctx, versionID)
		if err != nil {
			return nil, err
		}
	}
	if ownerID != nil {
		if err := s.requireSameVersionPlayer(ctx, *ownerID, versionID); err != nil {
			return nil, err
		}
	}

	part := &models.Part{
		VersionID:            versionID,
		Kind:                 input.Kind,
		ParentID:             input.ParentID,
		OwnerID:              ownerID,
		PosX:                 input.PosX,
		PosY:                 input.PosY,
		Width:                input.Width,
		Height:               input.Height,
		ZOrder:               input.ZOrder,
		IsReversible:         input.IsReversible,
		CanReverseCardOnDeck: input.CanReverseCardOnDeck,
	}
	if err := s.store.CreatePart(ctx, part); err != nil {
		return nil, fmt.Errorf("failed to create part: %w", err)
	}

	s.invalidateGraph(ctx, versionID)
	s.notifier.Notify(ctx, Event{
		Type:        EventPartCreated,
		PrototypeID: prototypeID,
		VersionID:   &versionID,
		PartID:      &part.ID,
		UserID:      userID,
	})
	return part, nil
}

// MovePart updates a part's placement and flip state.
func (s *PartService) MovePart(ctx context.Context, userID string, partID uuid.UUID, input MovePartInput) (*models.Part, error) {
	part, err := s.store.GetPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	prototypeID, err := s.authorizeVersion(ctx, userID, part.VersionID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.CheckPart(map[string]interface{}{
		"pos_x":         input.PosX,
		"pos_y":         input.PosY,
		"width":         part.Width,
		"height":        part.Height,
		"is_flipped":    input.IsFlipped,
		"is_reversible": part.IsReversible,
	}); err != nil {
		return nil, err
	}

	if input.ParentID != nil {
		if *input.ParentID == part.ID {
			return nil, fmt.Errorf("part cannot be its own parent: %w", ErrValidation)
		}
		if err := s.requireSameVersionPart(ctx, *input.ParentID, part.VersionID, "parent"); err != nil {
			return nil, err
		}
	}

	part.PosX = input.PosX
	part.PosY = input.PosY
	part.ZOrder = input.ZOrder
	part.ParentID = input.ParentID
	part.IsFlipped = input.IsFlipped

	if err := s.store.UpdatePart(ctx, part); err != nil {
		return nil, fmt.Errorf("failed to update part: %w", err)
	}

	s.invalidateGraph(ctx, part.VersionID)
	versionID := part.VersionID
	s.notifier.Notify(ctx, Event{
		Type:        EventPartMoved,
		PrototypeID: prototypeID,
		VersionID:   &versionID,
		PartID:      &part.ID,
		UserID:      userID,
	})
	return part, nil
}

// PatchProperty applies an RFC 6902 patch to one side's display
// properties. The part id and side of the row cannot be patched away.
func (s *PartService) PatchProperty(ctx context.Context, userID string, partID uuid.UUID, side models.PropertySide, patch []byte) (*models.PartProperty, error) {
	part, err := s.store.GetPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	prototypeID, err := s.authorizeVersion(ctx, userID, part.VersionID)
	if err != nil {
		return nil, err
	}

	prop, err := s.store.GetProperty(ctx, partID, side)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		// Patching an absent side starts from an empty row.
		prop = &models.PartProperty{PartID: partID, Side: side}
	}

	decoded, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("invalid patch: %s: %w", err, ErrValidation)
	}

	original, err := json.Marshal(prop)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal property: %w", err)
	}
	patched, err := decoded.Apply(original)
	if err != nil {
		return nil, fmt.Errorf("patch failed: %s: %w", err, ErrValidation)
	}

	var updated models.PartProperty
	if err := json.Unmarshal(patched, &updated); err != nil {
		return nil, fmt.Errorf("patched property undecodable: %s: %w", err, ErrValidation)
	}
	if updated.PartID != partID || updated.Side != side {
		return nil, fmt.Errorf("patch must not move the property: %w", ErrValidation)
	}

	if err := s.store.UpsertProperty(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to store property: %w", err)
	}

	s.invalidateGraph(ctx, part.VersionID)
	versionID := part.VersionID
	s.notifier.Notify(ctx, Event{
		Type:        EventPropertyUpdated,
		PrototypeID: prototypeID,
		VersionID:   &versionID,
		PartID:      &partID,
		UserID:      userID,
	})
	return &updated, nil
}

// DeletePart removes a part. Its properties go with it; child parts are
// detached to the top level.
func (s *PartService) DeletePart(ctx context.Context, userID string, partID uuid.UUID) error {
	part, err := s.store.GetPart(ctx, partID)
	if err != nil {
		return err
	}

	prototypeID, err := s.authorizeVersion(ctx, userID, part.VersionID)
	if err != nil {
		return err
	}

	if err := s.store.DeletePart(ctx, partID); err != nil {
		return fmt.Errorf("failed to delete part: %w", err)
	}

	s.invalidateGraph(ctx, part.VersionID)
	versionID := part.VersionID
	s.notifier.Notify(ctx, Event{
		Type:        EventPartDeleted,
		PrototypeID: prototypeID,
		VersionID:   &versionID,
		PartID:      &partID,
		UserID:      userID,
	})
	return nil
}

func (s *PartService) requireSameVersionPart(ctx context.Context, id, versionID uuid.UUID, edge string) error {
	other, err := s.store.GetPart(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%s %s not found: %w", edge, id, ErrValidation)
		}
		return err
	}
	if other.VersionID != versionID {
		return fmt.Errorf("%s %s belongs to another version: %w", edge, id, ErrValidation)
	}
	return nil
}

func (s *PartService) requireSameVersionPlayer(ctx context.Context, playerID, versionID uuid.UUID) error {
	players, err := s.store.ListPlayers(ctx, versionID)
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}
	for _, p := range players {
		if p.ID == playerID {
			return nil
		}
	}
	return fmt.Errorf("owner %s is not a player of the version: %w", playerID, ErrValidation)
}

func (s *PartService) firstSeat(ctx context.Context, versionID uuid.UUID) (*uuid.UUID, error) {
	players, err := s.store.ListPlayers(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("version has no seats for a hand owner: %w", ErrValidation)
	}
	first := players[0]
	for _, p := range players[1:] {
		if p.SeatOrder < first.SeatOrder {
			first = p
		}
	}
	id := first.ID
	return &id, nil
}
