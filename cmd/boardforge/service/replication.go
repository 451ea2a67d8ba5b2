package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/logger"
	"github.com/boardforge/boardforge/common/models"
)

// Store is the transactional persistence surface of the replication
// engine. Every method runs against the same transaction; Create*
// methods fill the entity's ID from the store-assigned identity. The
// pgx implementation lives in the repository package; tests use an
// in-memory fake.
type Store interface {
	GetVersion(ctx context.Context, id uuid.UUID) (*models.PrototypeVersion, error)
	GetPrototype(ctx context.Context, id uuid.UUID) (*models.Prototype, error)

	CreateProject(ctx context.Context, project *models.Project) error
	CreatePrototype(ctx context.Context, proto *models.Prototype) error
	CreateVersion(ctx context.Context, version *models.PrototypeVersion) error

	ListPlayers(ctx context.Context, versionID uuid.UUID) ([]*models.Player, error)
	CreatePlayer(ctx context.Context, player *models.Player) error

	ListParts(ctx context.Context, versionID uuid.UUID) ([]*models.Part, error)
	CreatePart(ctx context.Context, part *models.Part) error
	SetPartParent(ctx context.Context, partID, parentID uuid.UUID) error
	SetPartOwner(ctx context.Context, partID, ownerID uuid.UUID) error

	ListProperties(ctx context.Context, versionID uuid.UUID) ([]*models.PartProperty, error)
	CreateProperty(ctx context.Context, prop *models.PartProperty) error

	CreateAccess(ctx context.Context, access *models.Access) error
	CreateUserAccess(ctx context.Context, userAccess *models.UserAccess) error
}

// TxRunner runs a function against a Store inside one transaction. If
// the function returns an error, nothing it wrote survives.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// NewPrototypeParams describes the prototype row the container pass
// creates when replication targets a brand-new prototype.
type NewPrototypeParams struct {
	Name        string
	OwnerUserID string

	// ProjectID places the copy in an existing project. Ignored when
	// NewProject is set, in which case the container pass creates a
	// project for the copy inside the same transaction.
	ProjectID  uuid.UUID
	NewProject bool

	// GroupID correlates the copy with its siblings. Nil means "start a
	// new group" (an independent duplicate); set means "join an existing
	// group" (a derived room instance).
	GroupID *uuid.UUID

	Variant    models.PrototypeVariant
	MinPlayers int
	MaxPlayers int
}

// ReplicateParams describes the destination of a replication call.
type ReplicateParams struct {
	// PrototypeID is the destination prototype for a plain new version.
	// Ignored when NewPrototype is set.
	PrototypeID uuid.UUID

	// NewPrototype, when set, makes the container pass create the
	// destination prototype as well.
	NewPrototype *NewPrototypeParams

	VersionNumber int
	Description   string
}

// ReplicateOptions control access provisioning for newly-created
// editable copies.
type ReplicateOptions struct {
	ProvisionAccess bool
	CreatorUserID   string
}

// ReplicateResult carries the identifiers the caller needs to notify
// downstream listeners. PrototypeID is set only when the call created a
// prototype.
type ReplicateResult struct {
	VersionID   uuid.UUID
	PrototypeID *uuid.UUID
}

// CreatePrototypeParams describes a brand-new editable prototype.
type CreatePrototypeParams struct {
	Name        string
	OwnerUserID string
	MinPlayers  int
	MaxPlayers  int
}

// ReplicationEngine clones a version's full content graph into a new
// version or a new sibling prototype, rewiring all internal references
// to the new identity space, atomically. It does not check permissions;
// callers authorize first. It only provisions them.
type ReplicationEngine struct {
	tx  TxRunner
	log *logger.Logger
}

// NewReplicationEngine creates a new replication engine
func NewReplicationEngine(tx TxRunner, log *logger.Logger) *ReplicationEngine {
	return &ReplicationEngine{
		tx:  tx,
		log: log,
	}
}

// ReplicateVersion clones the source version's players, parts and
// properties into the destination described by params. The whole
// operation runs in one transaction; any failure aborts with zero
// persisted rows.
//
// The clone needs multiple passes because new identities are assigned
// by the store and unknown until insertion: players and parts are
// inserted flat first, then edges (parent, owner) are rewired through
// the correlation maps, then properties are copied with remapped part
// ids.
func (e *ReplicationEngine) ReplicateVersion(ctx context.Context, sourceVersionID uuid.UUID, params ReplicateParams, opts ReplicateOptions) (*ReplicateResult, error) {
	var result *ReplicateResult

	err := e.tx.InTx(ctx, func(s Store) error {
		source, err := s.GetVersion(ctx, sourceVersionID)
		if err != nil {
			return fmt.Errorf("source version %s: %w", sourceVersionID, err)
		}

		// Container pass.
		destProto, createdProto, err := e.containerPass(ctx, s, params)
		if err != nil {
			return err
		}

		version := &models.PrototypeVersion{
			PrototypeID:   destProto.ID,
			VersionNumber: params.VersionNumber,
			Description:   params.Description,
		}
		if err := s.CreateVersion(ctx, version); err != nil {
			return fmt.Errorf("create destination version: %w", err)
		}

		// Player pass.
		playerMap, err := e.playerPass(ctx, s, source.ID, version.ID, destProto, createdProto)
		if err != nil {
			return err
		}

		// Part pass and rewiring pass.
		partMap, err := e.partPasses(ctx, s, source.ID, version.ID, playerMap)
		if err != nil {
			return err
		}

		// Property pass.
		if err := e.propertyPass(ctx, s, source.ID, partMap); err != nil {
			return err
		}

		// Access provisioning shares the transaction: a committed copy
		// without its grant (or the reverse) must never be observable.
		if opts.ProvisionAccess {
			if err := e.provisionAccess(ctx, s, destProto, opts.CreatorUserID); err != nil {
				return err
			}
		}

		result = &ReplicateResult{VersionID: version.ID}
		if createdProto {
			id := destProto.ID
			result.PrototypeID = &id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("version replicated",
		"source_version_id", sourceVersionID,
		"new_version_id", result.VersionID,
		"created_prototype", result.PrototypeID != nil,
	)
	return result, nil
}

// CreatePrototype provisions a brand-new editable prototype: project
// membership, a fresh group, version 0, one unbound seat per allowed
// player, and the creator's access grant, all in one transaction.
func (e *ReplicationEngine) CreatePrototype(ctx context.Context, params CreatePrototypeParams) (*ReplicateResult, error) {
	var result *ReplicateResult

	err := e.tx.InTx(ctx, func(s Store) error {
		project := &models.Project{
			Name:        params.Name,
			OwnerUserID: params.OwnerUserID,
		}
		if err := s.CreateProject(ctx, project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		proto := &models.Prototype{
			ProjectID:   project.ID,
			GroupID:     uuid.New(),
			OwnerUserID: params.OwnerUserID,
			Name:        params.Name,
			Variant:     models.VariantEdit,
			MinPlayers:  params.MinPlayers,
			MaxPlayers:  params.MaxPlayers,
		}
		if err := s.CreatePrototype(ctx, proto); err != nil {
			return fmt.Errorf("create prototype: %w", err)
		}

		version := &models.PrototypeVersion{
			PrototypeID:   proto.ID,
			VersionNumber: 0,
			Description:   "initial version",
		}
		if err := s.CreateVersion(ctx, version); err != nil {
			return fmt.Errorf("create initial version: %w", err)
		}

		if err := e.createSeats(ctx, s, version.ID, proto.MaxPlayers); err != nil {
			return err
		}

		if err := e.provisionAccess(ctx, s, proto, params.OwnerUserID); err != nil {
			return err
		}

		id := proto.ID
		result = &ReplicateResult{VersionID: version.ID, PrototypeID: &id}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("prototype created",
		"prototype_id", *result.PrototypeID,
		"version_id", result.VersionID,
	)
	return result, nil
}

// containerPass resolves or creates the destination prototype.
func (e *ReplicationEngine) containerPass(ctx context.Context, s Store, params ReplicateParams) (*models.Prototype, bool, error) {
	if params.NewPrototype == nil {
		proto, err := s.GetPrototype(ctx, params.PrototypeID)
		if err != nil {
			return nil, false, fmt.Errorf("destination prototype %s: %w", params.PrototypeID, err)
		}
		return proto, false, nil
	}

	np := params.NewPrototype
	groupID := uuid.New()
	if np.GroupID != nil {
		groupID = *np.GroupID
	}

	projectID := np.ProjectID
	if np.NewProject {
		project := &models.Project{
			Name:        np.Name,
			OwnerUserID: np.OwnerUserID,
		}
		if err := s.CreateProject(ctx, project); err != nil {
			return nil, false, fmt.Errorf("create destination project: %w", err)
		}
		projectID = project.ID
	}

	proto := &models.Prototype{
		ProjectID:   projectID,
		GroupID:     groupID,
		OwnerUserID: np.OwnerUserID,
		Name:        np.Name,
		Variant:     np.Variant,
		MinPlayers:  np.MinPlayers,
		MaxPlayers:  np.MaxPlayers,
	}
	if err := s.CreatePrototype(ctx, proto); err != nil {
		return nil, false, fmt.Errorf("create destination prototype: %w", err)
	}
	return proto, true, nil
}

// playerPass clones every source seat and returns the old→new id map.
// When the source has no seats and the destination is a fresh editable
// copy, it synthesizes maxPlayers unbound seats instead: that is the
// first version of an editable prototype, not a clone of anything.
func (e *ReplicationEngine) playerPass(ctx context.Context, s Store, sourceVersionID, destVersionID uuid.UUID, destProto *models.Prototype, createdProto bool) (map[uuid.UUID]uuid.UUID, error) {
	sourcePlayers, err := s.ListPlayers(ctx, sourceVersionID)
	if err != nil {
		return nil, fmt.Errorf("list source players: %w", err)
	}

	playerMap := make(map[uuid.UUID]uuid.UUID, len(sourcePlayers))

	if len(sourcePlayers) == 0 && createdProto && destProto.Variant == models.VariantEdit {
		if err := e.createSeats(ctx, s, destVersionID, destProto.MaxPlayers); err != nil {
			return nil, err
		}
		return playerMap, nil
	}

	for _, src := range sourcePlayers {
		originalID := src.ID
		player := &models.Player{
			VersionID:        destVersionID,
			UserID:           src.UserID,
			Name:             src.Name,
			SeatOrder:        src.SeatOrder,
			OriginalPlayerID: &originalID,
		}
		if err := s.CreatePlayer(ctx, player); err != nil {
			return nil, fmt.Errorf("clone player %s: %w", src.ID, err)
		}
		playerMap[src.ID] = player.ID
	}

	return playerMap, nil
}

// createSeats inserts count unbound seats with no breadcrumb.
func (e *ReplicationEngine) createSeats(ctx context.Context, s Store, versionID uuid.UUID, count int) error {
	for i := 0; i < count; i++ {
		player := &models.Player{
			VersionID: versionID,
			Name:      fmt.Sprintf("Player %d", i+1),
			SeatOrder: i,
		}
		if err := s.CreatePlayer(ctx, player); err != nil {
			return fmt.Errorf("create seat %d: %w", i+1, err)
		}
	}
	return nil
}

// partPasses inserts every source part flat (no parent, no owner), then
// rewires parent and owner edges through the correlation maps. Edges
// cannot be written during the flat pass because their endpoints may
// not exist yet.
func (e *ReplicationEngine) partPasses(ctx context.Context, s Store, sourceVersionID, destVersionID uuid.UUID, playerMap map[uuid.UUID]uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	sourceParts, err := s.ListParts(ctx, sourceVersionID)
	if err != nil {
		return nil, fmt.Errorf("list source parts: %w", err)
	}

	partMap := make(map[uuid.UUID]uuid.UUID, len(sourceParts))

	// Flat copy.
	for _, src := range sourceParts {
		originalID := src.ID
		part := &models.Part{
			VersionID:            destVersionID,
			Kind:                 src.Kind,
			PosX:                 src.PosX,
			PosY:                 src.PosY,
			Width:                src.Width,
			Height:               src.Height,
			ZOrder:               src.ZOrder,
			IsReversible:         src.IsReversible,
			IsFlipped:            src.IsFlipped,
			CanReverseCardOnDeck: src.CanReverseCardOnDeck,
			OriginalPartID:       &originalID,
		}
		if err := s.CreatePart(ctx, part); err != nil {
			return nil, fmt.Errorf("clone part %s: %w", src.ID, err)
		}
		partMap[src.ID] = part.ID
	}

	// Rewiring.
	for _, src := range sourceParts {
		newID := partMap[src.ID]

		if src.ParentID != nil {
			newParentID, ok := partMap[*src.ParentID]
			if !ok {
				return nil, fmt.Errorf("part %s: parent %s not in source version", src.ID, *src.ParentID)
			}
			if err := s.SetPartParent(ctx, newID, newParentID); err != nil {
				return nil, fmt.Errorf("rewire parent of part %s: %w", newID, err)
			}
		}

		if src.OwnerID != nil {
			newOwnerID, ok := playerMap[*src.OwnerID]
			if !ok {
				return nil, fmt.Errorf("part %s: owner %s not in source version", src.ID, *src.OwnerID)
			}
			if err := s.SetPartOwner(ctx, newID, newOwnerID); err != nil {
				return nil, fmt.Errorf("rewire owner of part %s: %w", newID, err)
			}
		}
	}

	return partMap, nil
}

// propertyPass copies every property row verbatim with the part id
// remapped. Image references are content-addressed and shared, never
// owned by a part, so they are copied as-is.
func (e *ReplicationEngine) propertyPass(ctx context.Context, s Store, sourceVersionID uuid.UUID, partMap map[uuid.UUID]uuid.UUID) error {
	props, err := s.ListProperties(ctx, sourceVersionID)
	if err != nil {
		return fmt.Errorf("list source properties: %w", err)
	}

	for _, src := range props {
		newPartID, ok := partMap[src.PartID]
		if !ok {
			return fmt.Errorf("property (%s, %s): part not in source version", src.PartID, src.Side)
		}
		prop := &models.PartProperty{
			PartID:      newPartID,
			Side:        src.Side,
			Name:        src.Name,
			Description: src.Description,
			Color:       src.Color,
			TextColor:   src.TextColor,
			ImageID:     src.ImageID,
		}
		if err := s.CreateProperty(ctx, prop); err != nil {
			return fmt.Errorf("clone property (%s, %s): %w", src.PartID, src.Side, err)
		}
	}

	return nil
}

// provisionAccess writes the group-level grant linking the creator to
// the prototype's group.
func (e *ReplicationEngine) provisionAccess(ctx context.Context, s Store, proto *models.Prototype, creatorUserID string) error {
	access := &models.Access{
		GroupID: proto.GroupID,
		Name:    proto.Name,
	}
	if err := s.CreateAccess(ctx, access); err != nil {
		return fmt.Errorf("create access grant: %w", err)
	}

	userAccess := &models.UserAccess{
		UserID:   creatorUserID,
		AccessID: access.ID,
	}
	if err := s.CreateUserAccess(ctx, userAccess); err != nil {
		return fmt.Errorf("create user access grant: %w", err)
	}

	return nil
}
